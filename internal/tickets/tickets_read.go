// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quellwerk/supportd/internal/github"
	"github.com/quellwerk/supportd/internal/mcp"
)

const (
	bodyPreviewLimit    = 400
	summaryBodyLimit    = 600
	newTicketsListCap   = 10
	staleTicketsListCap = 20
	staleListPageSize   = 100
)

// ticketView is the simplified ticket shape returned to clients.
type ticketView struct {
	ID          int64    `json:"id"`
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	BodyPreview string   `json:"body_preview"`
	State       string   `json:"state"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	URL         string   `json:"url"`
	User        string   `json:"user"`
	Assignee    string   `json:"assignee,omitempty"`
	Labels      []string `json:"labels"`
	Comments    int      `json:"comments"`
}

func viewOf(issue *github.Issue) ticketView {
	v := ticketView{
		ID:          issue.ID,
		Number:      issue.Number,
		Title:       issue.Title,
		BodyPreview: truncate(issue.Body, bodyPreviewLimit),
		State:       issue.State,
		CreatedAt:   issue.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   issue.UpdatedAt.UTC().Format(time.RFC3339),
		URL:         issue.HTMLURL,
		User:        issue.AuthorLogin(),
		Labels:      issue.LabelNames(),
		Comments:    issue.Comments,
	}
	if issue.Assignee != nil {
		v.Assignee = issue.Assignee.Login
	}
	return v
}

func (s *Service) defGetNewTickets() mcp.Tool {
	return mcp.Tool{
		Name:        "get_new_tickets",
		Description: "List tickets updated within the last N minutes, newest first. Pull requests are excluded.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"since_minutes": mcp.IntProp("Look-back window in minutes", 1, 1440),
		}, "since_minutes"),
	}
}

func (s *Service) getNewTickets(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		SinceMinutes int `json:"since_minutes"`
	}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireRange("since_minutes", in.SinceMinutes, 1, 1440); rpcErr != nil {
		return nil, rpcErr
	}

	since := time.Now().UTC().Add(-time.Duration(in.SinceMinutes) * time.Minute)
	issues, err := s.gh.Issues(ctx, github.IssueFilter{
		State:     "all",
		Since:     &since,
		Sort:      "updated",
		Direction: "desc",
		PerPage:   staleListPageSize,
	})
	if err != nil {
		return nil, toRPCError(err)
	}

	views := make([]ticketView, 0, len(issues))
	for i := range issues {
		views = append(views, viewOf(&issues[i]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d ticket(s) updated in the last %d minute(s).", len(views), in.SinceMinutes)
	for i, v := range views {
		if i >= newTicketsListCap {
			fmt.Fprintf(&sb, "\n… and %d more.", len(views)-newTicketsListCap)
			break
		}
		fmt.Fprintf(&sb, "\n#%d [%s] %s", v.Number, v.State, v.Title)
	}

	return mcp.TextResult(sb.String(), map[string]any{
		"count":   len(views),
		"tickets": views,
	}), nil
}

func (s *Service) defGetTicketDetail() mcp.Tool {
	return mcp.Tool{
		Name:        "get_ticket_detail",
		Description: "Fetch one ticket with a body preview, labels, assignee and comment count.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number": mcp.IntProp("Ticket number", 1, 1<<30),
		}, "issue_number"),
	}
}

func (s *Service) getTicketDetail(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
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
	v := viewOf(issue)

	text := fmt.Sprintf("#%d [%s] %s\nAuthor: %s | Labels: %s | Comments: %d\n\n%s",
		v.Number, v.State, v.Title, v.User, labelList(v.Labels), v.Comments, v.BodyPreview)

	return mcp.TextResult(text, map[string]any{"ticket": v}), nil
}

func (s *Service) defGetTicketLastComment() mcp.Tool {
	return mcp.Tool{
		Name:        "get_ticket_last_comment",
		Description: "Fetch the newest comment of a ticket, if any.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number": mcp.IntProp("Ticket number", 1, 1<<30),
		}, "issue_number"),
	}
}

func (s *Service) getTicketLastComment(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		IssueNumber int `json:"issue_number"`
	}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireIssueNumber(ctx, in.IssueNumber); rpcErr != nil {
		return nil, rpcErr
	}

	comment, err := s.gh.LastComment(ctx, in.IssueNumber)
	if err != nil {
		return nil, toRPCError(err)
	}
	if comment == nil {
		return mcp.TextResult(
			fmt.Sprintf("Ticket #%d has no comments.", in.IssueNumber),
			map[string]any{"comment": nil},
		), nil
	}

	text := fmt.Sprintf("Last comment on #%d by %s (%s):\n%s",
		in.IssueNumber, comment.AuthorLogin(),
		comment.CreatedAt.UTC().Format(time.RFC3339),
		truncate(comment.Body, summaryBodyLimit))

	return mcp.TextResult(text, map[string]any{
		"comment": map[string]any{
			"id":         comment.ID,
			"body":       comment.Body,
			"user":       comment.AuthorLogin(),
			"created_at": comment.CreatedAt.UTC().Format(time.RFC3339),
			"url":        comment.HTMLURL,
		},
	}), nil
}

func (s *Service) defGetStaleTickets() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stale_tickets",
		Description: "List open tickets without activity for at least N days, oldest first.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"inactive_days": mcp.IntProp("Minimum days without updates", 1, 365),
		}, "inactive_days"),
	}
}

func (s *Service) getStaleTickets(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		InactiveDays int `json:"inactive_days"`
	}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireRange("inactive_days", in.InactiveDays, 1, 365); rpcErr != nil {
		return nil, rpcErr
	}

	issues, err := s.gh.Issues(ctx, github.IssueFilter{
		State:     "open",
		Sort:      "updated",
		Direction: "asc",
		PerPage:   staleListPageSize,
	})
	if err != nil {
		return nil, toRPCError(err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -in.InactiveDays)
	var stale []ticketView
	for i := range issues {
		if issues[i].UpdatedAt.After(cutoff) {
			continue
		}
		stale = append(stale, viewOf(&issues[i]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d open ticket(s) inactive for %d+ day(s).", len(stale), in.InactiveDays)
	for i, v := range stale {
		if i >= staleTicketsListCap {
			fmt.Fprintf(&sb, "\n… and %d more.", len(stale)-staleTicketsListCap)
			break
		}
		fmt.Fprintf(&sb, "\n#%d (last update %s) %s", v.Number, v.UpdatedAt, v.Title)
	}

	return mcp.TextResult(sb.String(), map[string]any{
		"count":   len(stale),
		"tickets": stale,
	}), nil
}

func (s *Service) defSummarizeTicket() mcp.Tool {
	return mcp.Tool{
		Name:        "summarize_ticket",
		Description: "Build a structural summary of a ticket: description, metadata and the latest comments.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number":   mcp.IntProp("Ticket number", 1, 1<<30),
			"comments_limit": mcp.IntProp("How many of the latest comments to include", 0, 50),
		}, "issue_number"),
	}
}

func (s *Service) summarizeTicket(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
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
	if rpcErr := requireRange("comments_limit", limit, 0, 50); rpcErr != nil {
		return nil, rpcErr
	}

	issue, err := s.gh.Issue(ctx, in.IssueNumber)
	if err != nil {
		return nil, toRPCError(err)
	}

	var comments []github.Comment
	if limit > 0 && issue.Comments > 0 {
		all, err := s.gh.Comments(ctx, in.IssueNumber, staleListPageSize)
		if err != nil {
			return nil, toRPCError(err)
		}
		if len(all) > limit {
			all = all[len(all)-limit:]
		}
		comments = all
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Summary of ticket #%d: %s\n", issue.Number, issue.Title)
	fmt.Fprintf(&sb, "State: %s | Author: %s | Labels: %s\n",
		issue.State, issue.AuthorLogin(), labelList(issue.LabelNames()))
	fmt.Fprintf(&sb, "\nDescription:\n%s\n", truncate(strings.TrimSpace(issue.Body), summaryBodyLimit))

	commentViews := make([]map[string]any, 0, len(comments))
	if len(comments) > 0 {
		fmt.Fprintf(&sb, "\nLatest comments (%d):\n", len(comments))
		for i := range comments {
			c := &comments[i]
			fmt.Fprintf(&sb, "- %s (%s): %s\n",
				c.AuthorLogin(), c.CreatedAt.UTC().Format(time.RFC3339),
				truncate(strings.TrimSpace(c.Body), bodyPreviewLimit))
			commentViews = append(commentViews, map[string]any{
				"user":       c.AuthorLogin(),
				"created_at": c.CreatedAt.UTC().Format(time.RFC3339),
				"body":       truncate(c.Body, bodyPreviewLimit),
			})
		}
	}

	sb.WriteString("\nNext steps: review the description and latest comments, then pick a follow-up tool.")

	return mcp.TextResult(sb.String(), map[string]any{
		"ticket":   viewOf(issue),
		"comments": commentViews,
	}), nil
}

func labelList(labels []string) string {
	if len(labels) == 0 {
		return "none"
	}
	return strings.Join(labels, ", ")
}
