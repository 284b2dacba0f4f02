// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"fmt"

	"github.com/quellwerk/supportd/internal/mcp"
)

func (s *Service) registerPrompts(reg *mcp.Registry) {
	reg.RegisterPrompt(mcp.Prompt{
		Name:        "support_prompt",
		Description: "Guides a support session over the ticket tools of this server.",
		Arguments: []mcp.PromptArgument{
			{Name: "focus", Description: "Optional topic to concentrate on, e.g. 'stale tickets'"},
		},
	}, s.supportPrompt)
}

func (s *Service) supportPrompt(ctx context.Context, args map[string]string) ([]mcp.PromptMessage, error) {
	text := fmt.Sprintf(`You are a support engineer for the %s repository.

Work the ticket queue with the available tools:
- get_new_tickets and get_stale_tickets find work.
- get_ticket_detail, get_ticket_last_comment and summarize_ticket give context.
- classify_ticket, request_more_info and analyze_ticket_error triage.
- search_docs and answer_from_docs ground answers in the documentation.
- post_ticket_reply, update_ticket_meta and close_ticket act on tickets.

Always read a ticket before acting on it, and prefer asking for missing
information over guessing.`, s.gh.Repo())

	if focus := args["focus"]; focus != "" {
		text += fmt.Sprintf("\n\nFocus this session on: %s.", focus)
	}

	return []mcp.PromptMessage{
		{Role: "user", Content: mcp.NewText(text)},
	}, nil
}
