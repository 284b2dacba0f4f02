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

// classification is the result of the rule-based ticket classifier.
type classification struct {
	Type     string `json:"type"`     // bug, feature, question, support
	Priority string `json:"priority"` // low, medium, high, urgent
}

var bugSignals = []string{
	"crash", "panic", "traceback", "stack trace", "stacktrace", "exception",
	"segfault", "error:", "fatal:", "broken", "fails", "failure", "regression",
	"does not work", "doesn't work", "connection refused",
}

var featureSignals = []string{
	"feature request", "would be nice", "add support", "could you add",
	"please add", "enhancement", "proposal", "it would help",
}

var questionSignals = []string{
	"how do i", "how can i", "how to", "what is the", "is it possible",
	"can i ", "where do i",
}

var urgentSignals = []string{
	"data loss", "outage", "security", "urgent", "asap", "emergency",
	"cannot work", "completely down",
}

var highSignals = []string{
	"production", "prod ", "blocker", "blocking", "critical", "many users",
	"customers affected",
}

// classify applies keyword rules over the combined ticket text. The rules run
// in precedence order: bug beats feature beats question; anything else is a
// support request.
func classify(text string) classification {
	lower := strings.ToLower(text)

	c := classification{Type: "support", Priority: "medium"}
	switch {
	case matchesAny(lower, bugSignals):
		c.Type = "bug"
	case matchesAny(lower, featureSignals):
		c.Type = "feature"
		c.Priority = "low"
	case matchesAny(lower, questionSignals) || strings.Contains(lower, "?"):
		c.Type = "question"
		c.Priority = "low"
	}

	switch {
	case matchesAny(lower, urgentSignals):
		c.Priority = "urgent"
	case matchesAny(lower, highSignals):
		c.Priority = "high"
	}
	return c
}

func matchesAny(text string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func (s *Service) defClassifyTicket() mcp.Tool {
	return mcp.Tool{
		Name:        "classify_ticket",
		Description: "Classify a ticket by type and priority using keyword rules, then apply the result as labels.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number": mcp.IntProp("Ticket number", 1, 1<<30),
		}, "issue_number"),
	}
}

func (s *Service) classifyTicket(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
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

	result := classify(text)

	// Apply: add the type label, replace any priority label.
	labels := issue.LabelNames()
	if !containsLabel(labels, result.Type) {
		labels = append(labels, result.Type)
	}
	merged := mergeLabels(labels, &labels, &result.Priority)
	if _, err := s.gh.UpdateIssue(ctx, in.IssueNumber, github.IssuePatch{Labels: &merged}); err != nil {
		return nil, toRPCError(err)
	}

	return mcp.TextResult(
		fmt.Sprintf("Ticket #%d classified as %s with priority %s.", in.IssueNumber, result.Type, result.Priority),
		map[string]any{
			"type":     result.Type,
			"priority": result.Priority,
			"labels":   merged,
		},
	), nil
}
