// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/quellwerk/supportd/internal/mcp"
)

func (s *Service) defTranslateTicket() mcp.Tool {
	return mcp.Tool{
		Name:        "translate_ticket",
		Description: "Bundle a ticket's text for translation into a target language. Nothing is posted back.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number":     mcp.IntProp("Ticket number", 1, 1<<30),
			"target_lang":      mcp.StringProp("Target language as a BCP-47 tag, e.g. 'de' or 'pt-BR'"),
			"include_comments": mcp.BoolProp("Include the latest comments (default true)"),
			"comments_limit":   mcp.IntProp("How many of the latest comments to include (default 5)", 0, 20),
		}, "issue_number", "target_lang"),
	}
}

func (s *Service) translateTicket(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	in := struct {
		IssueNumber     int    `json:"issue_number"`
		TargetLang      string `json:"target_lang"`
		IncludeComments *bool  `json:"include_comments"`
		CommentsLimit   *int   `json:"comments_limit"`
	}{}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireIssueNumber(ctx, in.IssueNumber); rpcErr != nil {
		return nil, rpcErr
	}

	tag, err := language.Parse(strings.TrimSpace(in.TargetLang))
	if err != nil {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "target_lang is not a valid BCP-47 tag: %v", err)
	}
	langName := display.English.Tags().Name(tag)

	includeComments := true
	if in.IncludeComments != nil {
		includeComments = *in.IncludeComments
	}
	limit := 5
	if in.CommentsLimit != nil {
		limit = *in.CommentsLimit
	}
	if rpcErr := requireRange("comments_limit", limit, 0, 20); rpcErr != nil {
		return nil, rpcErr
	}

	issue, err := s.gh.Issue(ctx, in.IssueNumber)
	if err != nil {
		return nil, toRPCError(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Translate the following support ticket into %s (%s). Preserve code blocks, log lines and URLs untranslated.\n", langName, tag.String())
	fmt.Fprintf(&sb, "\nTitle: %s\n\nBody:\n%s\n", issue.Title, strings.TrimSpace(issue.Body))

	commentCount := 0
	if includeComments && limit > 0 && issue.Comments > 0 {
		comments, err := s.gh.Comments(ctx, in.IssueNumber, staleListPageSize)
		if err != nil {
			return nil, toRPCError(err)
		}
		if len(comments) > limit {
			comments = comments[len(comments)-limit:]
		}
		commentCount = len(comments)
		for i := range comments {
			c := &comments[i]
			fmt.Fprintf(&sb, "\nComment by %s:\n%s\n", c.AuthorLogin(), strings.TrimSpace(c.Body))
		}
	}

	return mcp.TextResult(sb.String(), map[string]any{
		"target_lang":       tag.String(),
		"language_name":     langName,
		"comments_included": commentCount,
	}), nil
}
