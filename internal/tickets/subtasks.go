// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/quellwerk/supportd/internal/github"
	"github.com/quellwerk/supportd/internal/mcp"
)

var (
	taskItemRe   = regexp.MustCompile(`(?m)^\s*[-*]\s*\[\s?\]\s+(.+)$`)
	numberedRe   = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+)$`)
	stepsHeadRe  = regexp.MustCompile(`(?im)^#{0,6}\s*(steps|tasks|todo|plan)\b`)
	subtaskTitle = 80 // runes
)

// extractSubtasks pulls candidate subtasks out of a ticket body: unchecked
// Markdown task-list items first, then numbered items below a steps-like
// heading.
func extractSubtasks(body string, max int) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		title := strings.TrimSpace(raw)
		if title == "" || seen[title] || len(out) >= max {
			return
		}
		seen[title] = true
		out = append(out, title)
	}

	for _, m := range taskItemRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}

	if len(out) < max {
		if loc := stepsHeadRe.FindStringIndex(body); loc != nil {
			section := body[loc[1]:]
			// Stop at the next heading.
			if next := regexp.MustCompile(`(?m)^#{1,6}\s`).FindStringIndex(section); next != nil {
				section = section[:next[0]]
			}
			for _, m := range numberedRe.FindAllStringSubmatch(section, -1) {
				add(m[1])
			}
		}
	}
	return out
}

func (s *Service) defCreateSubtasks() mcp.Tool {
	return mcp.Tool{
		Name:        "create_subtasks_from_ticket",
		Description: "Extract subtasks from a ticket's task list or steps section and create child tickets for them.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number": mcp.IntProp("Parent ticket number", 1, 1<<30),
			"max_subtasks": mcp.IntProp("Maximum subtasks to create (default 5)", 1, 20),
			"dry_run":      mcp.BoolProp("Only propose the subtasks, create nothing"),
			"subtasks": map[string]any{
				"type":        "array",
				"description": "Explicit subtask titles, overriding extraction",
				"items":       map[string]any{"type": "string"},
			},
		}, "issue_number"),
	}
}

func (s *Service) createSubtasks(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	in := struct {
		IssueNumber int      `json:"issue_number"`
		MaxSubtasks *int     `json:"max_subtasks"`
		DryRun      bool     `json:"dry_run"`
		Subtasks    []string `json:"subtasks"`
	}{}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireIssueNumber(ctx, in.IssueNumber); rpcErr != nil {
		return nil, rpcErr
	}
	max := 5
	if in.MaxSubtasks != nil {
		max = *in.MaxSubtasks
	}
	if rpcErr := requireRange("max_subtasks", max, 1, 20); rpcErr != nil {
		return nil, rpcErr
	}

	parent, err := s.gh.Issue(ctx, in.IssueNumber)
	if err != nil {
		return nil, toRPCError(err)
	}

	titles := in.Subtasks
	if len(titles) == 0 {
		titles = extractSubtasks(parent.Body, max)
	} else if len(titles) > max {
		titles = titles[:max]
	}

	if len(titles) == 0 {
		return mcp.TextResult(
			fmt.Sprintf("Ticket #%d contains no task list or steps section to split.", in.IssueNumber),
			map[string]any{"subtasks": []string{}, "created": []any{}},
		), nil
	}

	if in.DryRun {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Would create %d subtask(s) for ticket #%d:", len(titles), in.IssueNumber)
		for i, title := range titles {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, title)
		}
		return mcp.TextResult(sb.String(), map[string]any{
			"dry_run":  true,
			"subtasks": titles,
		}), nil
	}

	type created struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		URL    string `json:"url"`
	}
	var children []created
	for _, title := range titles {
		child, err := s.gh.CreateIssue(ctx, github.NewIssue{
			Title:  truncate(title, subtaskTitle),
			Body:   fmt.Sprintf("Subtask of #%d (%s).", parent.Number, parent.Title),
			Labels: []string{"subtask"},
		})
		if err != nil {
			return nil, toRPCError(err)
		}
		children = append(children, created{Number: child.Number, Title: child.Title, URL: child.HTMLURL})
	}

	var note strings.Builder
	fmt.Fprintf(&note, "Split into %d subtask(s):\n", len(children))
	for _, c := range children {
		fmt.Fprintf(&note, "- #%d %s\n", c.Number, c.Title)
	}
	if _, err := s.gh.CreateComment(ctx, parent.Number, note.String()); err != nil {
		return nil, toRPCError(err)
	}

	return mcp.TextResult(
		fmt.Sprintf("Created %d subtask(s) for ticket #%d.", len(children), parent.Number),
		map[string]any{
			"dry_run": false,
			"created": children,
		},
	), nil
}
