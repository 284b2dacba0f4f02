// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quellwerk/supportd/internal/github"
	"github.com/quellwerk/supportd/internal/mcp"
)

const (
	replyTextLimit  = 4000
	priorityPrefix  = "priority: "
	defaultResLabel = "resolved"
)

var validPriorities = map[string]bool{
	"low": true, "medium": true, "high": true, "urgent": true,
}

func (s *Service) defPostTicketReply() mcp.Tool {
	return mcp.Tool{
		Name:        "post_ticket_reply",
		Description: "Post a reply comment on a ticket.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number": mcp.IntProp("Ticket number", 1, 1<<30),
			"reply_text":   mcp.StringProp("Comment body, 1 to 4000 characters"),
		}, "issue_number", "reply_text"),
	}
}

func (s *Service) postTicketReply(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		IssueNumber int    `json:"issue_number"`
		ReplyText   string `json:"reply_text"`
	}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireIssueNumber(ctx, in.IssueNumber); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireText("reply_text", in.ReplyText, replyTextLimit); rpcErr != nil {
		return nil, rpcErr
	}

	comment, err := s.gh.CreateComment(ctx, in.IssueNumber, in.ReplyText)
	if err != nil {
		return nil, toRPCError(err)
	}

	return mcp.TextResult(
		fmt.Sprintf("Reply posted on ticket #%d: %s", in.IssueNumber, comment.HTMLURL),
		map[string]any{
			"comment_id": comment.ID,
			"url":        comment.HTMLURL,
		},
	), nil
}

func (s *Service) defUpdateTicketMeta() mcp.Tool {
	return mcp.Tool{
		Name:        "update_ticket_meta",
		Description: "Update ticket priority, labels or assignee. Priority is stored as a 'priority: <p>' label.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number": mcp.IntProp("Ticket number", 1, 1<<30),
			"priority":     mcp.EnumProp("New priority", "low", "medium", "high", "urgent"),
			"labels": map[string]any{
				"type":        "array",
				"description": "Replacement label set. Priority labels are managed separately.",
				"items":       map[string]any{"type": "string"},
			},
			"assignee": mcp.StringProp("Login to assign, or empty string to clear"),
		}, "issue_number"),
	}
}

func (s *Service) updateTicketMeta(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		IssueNumber int       `json:"issue_number"`
		Priority    *string   `json:"priority"`
		Labels      *[]string `json:"labels"`
		Assignee    *string   `json:"assignee"`
	}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireIssueNumber(ctx, in.IssueNumber); rpcErr != nil {
		return nil, rpcErr
	}
	if in.Priority != nil && !validPriorities[*in.Priority] {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "priority must be one of low, medium, high, urgent")
	}
	if in.Priority == nil && in.Labels == nil && in.Assignee == nil {
		return mcp.TextResult(
			fmt.Sprintf("Nothing to update on ticket #%d.", in.IssueNumber),
			map[string]any{"updated": false},
		), nil
	}

	issue, err := s.gh.Issue(ctx, in.IssueNumber)
	if err != nil {
		return nil, toRPCError(err)
	}

	labels := mergeLabels(issue.LabelNames(), in.Labels, in.Priority)
	patch := github.IssuePatch{Labels: &labels}
	if in.Assignee != nil {
		assignees := []string{}
		if *in.Assignee != "" {
			assignees = []string{*in.Assignee}
		}
		patch.Assignees = &assignees
	}

	updated, err := s.gh.UpdateIssue(ctx, in.IssueNumber, patch)
	if err != nil {
		return nil, toRPCError(err)
	}

	return mcp.TextResult(
		fmt.Sprintf("Ticket #%d updated. Labels: %s", updated.Number, labelList(updated.LabelNames())),
		map[string]any{
			"updated": true,
			"labels":  updated.LabelNames(),
		},
	), nil
}

// mergeLabels computes the replacement label set. An explicit labels argument
// replaces everything except priority labels, which only the priority
// argument controls. At most one priority label survives.
func mergeLabels(current []string, replacement *[]string, priority *string) []string {
	base := current
	if replacement != nil {
		base = *replacement
	}

	out := make([]string, 0, len(base)+1)
	seen := make(map[string]bool)
	for _, label := range base {
		// Match "priority:high" as well as the canonical "priority: high".
		if priority != nil && strings.HasPrefix(strings.ToLower(label), "priority:") {
			continue
		}
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}

	if priority != nil {
		out = append(out, priorityPrefix+*priority)
	}
	return out
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func (s *Service) defCloseTicket() mcp.Tool {
	return mcp.Tool{
		Name:        "close_ticket",
		Description: "Close a ticket, optionally posting a final comment and tagging it with a resolution label.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number":     mcp.IntProp("Ticket number", 1, 1<<30),
			"final_comment":    mcp.StringProp("Optional closing comment"),
			"resolution_label": mcp.StringProp("Label to add, defaults to 'resolved'"),
		}, "issue_number"),
	}
}

func (s *Service) closeTicket(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		IssueNumber     int    `json:"issue_number"`
		FinalComment    string `json:"final_comment"`
		ResolutionLabel string `json:"resolution_label"`
	}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireIssueNumber(ctx, in.IssueNumber); rpcErr != nil {
		return nil, rpcErr
	}
	resolution := strings.TrimSpace(in.ResolutionLabel)
	if resolution == "" {
		resolution = defaultResLabel
	}

	issue, err := s.gh.Issue(ctx, in.IssueNumber)
	if err != nil {
		return nil, toRPCError(err)
	}

	if strings.TrimSpace(in.FinalComment) != "" {
		if rpcErr := requireText("final_comment", in.FinalComment, replyTextLimit); rpcErr != nil {
			return nil, rpcErr
		}
		if _, err := s.gh.CreateComment(ctx, in.IssueNumber, in.FinalComment); err != nil {
			return nil, toRPCError(err)
		}
	}

	labels := issue.LabelNames()
	if !containsLabel(labels, resolution) {
		labels = append(labels, resolution)
	}
	closed := "closed"
	updated, err := s.gh.UpdateIssue(ctx, in.IssueNumber, github.IssuePatch{
		Labels: &labels,
		State:  &closed,
	})
	if err != nil {
		return nil, toRPCError(err)
	}

	return mcp.TextResult(
		fmt.Sprintf("Ticket #%d closed with label %q.", updated.Number, resolution),
		map[string]any{
			"closed": true,
			"labels": updated.LabelNames(),
		},
	), nil
}
