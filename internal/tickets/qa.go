// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quellwerk/supportd/internal/mcp"
)

func (s *Service) defAnswerTicketQuestion() mcp.Tool {
	return mcp.Tool{
		Name:        "answer_ticket_question",
		Description: "Bundle a ticket, its latest comments and relevant documentation into an answering context. Nothing is posted.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number":   mcp.IntProp("Ticket number", 1, 1<<30),
			"comments_limit": mcp.IntProp("How many of the latest comments to include (default 10)", 1, 50),
		}, "issue_number"),
	}
}

func (s *Service) answerTicketQuestion(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	in := struct {
		IssueNumber   int  `json:"issue_number"`
		CommentsLimit *int `json:"comments_limit"`
	}{}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireIssueNumber(ctx, in.IssueNumber); rpcErr != nil {
		return nil, rpcErr
	}
	limit := 10
	if in.CommentsLimit != nil {
		limit = *in.CommentsLimit
	}
	if rpcErr := requireRange("comments_limit", limit, 1, 50); rpcErr != nil {
		return nil, rpcErr
	}

	issue, err := s.gh.Issue(ctx, in.IssueNumber)
	if err != nil {
		return nil, toRPCError(err)
	}

	lastUserMessage := issue.Title + " " + issue.Body
	var commentBlock strings.Builder
	if issue.Comments > 0 {
		comments, err := s.gh.Comments(ctx, in.IssueNumber, staleListPageSize)
		if err != nil {
			return nil, toRPCError(err)
		}
		if len(comments) > limit {
			comments = comments[len(comments)-limit:]
		}
		for i := range comments {
			c := &comments[i]
			fmt.Fprintf(&commentBlock, "\n%s: %s\n", c.AuthorLogin(), strings.TrimSpace(c.Body))
		}
		if len(comments) > 0 {
			lastUserMessage = comments[len(comments)-1].Body
		}
	}

	var fragments []docsHit
	if s.docs != nil {
		hits, err := s.docs.Search(lastUserMessage, 5)
		if err != nil {
			return nil, mcp.Errorf(mcp.CodeInternalError, "documentation search failed: %v", err)
		}
		for _, h := range hits {
			fragments = append(fragments, docsHit{Path: h.Path, Heading: h.Heading, Snippet: h.Snippet})
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Answer the latest question on support ticket #%d using the conversation and documentation below.\n", issue.Number)
	fmt.Fprintf(&sb, "\nTicket: %s\n%s\n", issue.Title, truncate(strings.TrimSpace(issue.Body), summaryBodyLimit))
	if commentBlock.Len() > 0 {
		sb.WriteString("\nConversation:")
		sb.WriteString(commentBlock.String())
	}
	if len(fragments) > 0 {
		sb.WriteString("\nDocumentation:\n")
		for i, f := range fragments {
			fmt.Fprintf(&sb, "\nFragment %d (%s):\n%s\n", i+1, f.Path, f.Snippet)
		}
	} else {
		sb.WriteString("\nNo relevant documentation was found; answer from the conversation only.\n")
	}

	return mcp.TextResult(sb.String(), map[string]any{
		"ticket":    viewOf(issue),
		"fragments": fragments,
	}), nil
}
