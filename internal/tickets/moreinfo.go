// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quellwerk/supportd/internal/mcp"
)

const maxClarifyingQuestions = 5

// diagnosticFact is one piece of information a support ticket should contain.
// presentSignals mark it as already provided, so the question is skipped.
type diagnosticFact struct {
	question       string
	presentSignals []string
}

var diagnosticFacts = []diagnosticFact{
	{
		question:       "Which version of the software are you running?",
		presentSignals: []string{"version", "v1.", "v2.", "v3.", "release"},
	},
	{
		question:       "What environment is this happening in (OS, container, cloud provider)?",
		presentSignals: []string{"ubuntu", "debian", "macos", "windows", "docker", "kubernetes", "aws", "gcp", "azure", "environment:"},
	},
	{
		question:       "Can you share the relevant log output or error message?",
		presentSignals: []string{"```", "traceback", "stack trace", "error:", "fatal:", "log output", "level=error"},
	},
	{
		question:       "What are the exact steps to reproduce the problem?",
		presentSignals: []string{"steps to reproduce", "reproduce", "reproduction", "1.", "step 1"},
	},
	{
		question:       "What did you expect to happen, and what happened instead?",
		presentSignals: []string{"expected", "instead", "actual behavior", "actual behaviour"},
	},
}

// clarifyingQuestions returns the questions whose facts are missing from the
// ticket text, capped at five.
func clarifyingQuestions(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, fact := range diagnosticFacts {
		if matchesAny(lower, fact.presentSignals) {
			continue
		}
		out = append(out, fact.question)
		if len(out) == maxClarifyingQuestions {
			break
		}
	}
	return out
}

func (s *Service) defRequestMoreInfo() mcp.Tool {
	return mcp.Tool{
		Name:        "request_more_info",
		Description: "Post a comment asking for missing diagnostic details (version, environment, logs, reproduction steps).",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number": mcp.IntProp("Ticket number", 1, 1<<30),
		}, "issue_number"),
	}
}

func (s *Service) requestMoreInfo(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		IssueNumber int `json:"issue_number"`
	}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireIssueNumber(ctx, in.IssueNumber); rpcErr != nil {
		return nil, rpcErr
	}

	issue, err := s.gh.Issue(ctx, in.IssueNumber)
	if err != nil {
		return nil, toRPCError(err)
	}

	text := issue.Title + "\n" + issue.Body
	if last, err := s.gh.LastComment(ctx, in.IssueNumber); err == nil && last != nil {
		text += "\n" + last.Body
	}

	questions := clarifyingQuestions(text)
	if len(questions) == 0 {
		return mcp.TextResult(
			fmt.Sprintf("Ticket #%d already contains the usual diagnostic details, nothing to ask.", in.IssueNumber),
			map[string]any{"posted": false, "questions": []string{}},
		), nil
	}

	var sb strings.Builder
	sb.WriteString("Thanks for the report! To investigate further we need a bit more information:\n")
	for i, q := range questions {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, q)
	}

	comment, err := s.gh.CreateComment(ctx, in.IssueNumber, sb.String())
	if err != nil {
		return nil, toRPCError(err)
	}

	return mcp.TextResult(
		fmt.Sprintf("Asked %d clarifying question(s) on ticket #%d.", len(questions), in.IssueNumber),
		map[string]any{
			"posted":     true,
			"questions":  questions,
			"comment_id": comment.ID,
		},
	), nil
}
