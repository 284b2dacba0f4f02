// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/quellwerk/supportd/internal/mcp"
)

const analyzerContextLimit = 8000 // runes, tail wins

// failureRule matches one known failure category in extracted error evidence.
type failureRule struct {
	Category    string
	pattern     *regexp.Regexp
	Cause       string
	Diagnostics []string
	Remediation string
}

// The rules table. Database connectivity dominates the support load, so the
// PostgreSQL patterns come first and are the most specific.
var failureRules = []failureRule{
	{
		Category: "database authentication failure",
		pattern:  regexp.MustCompile(`(?i)password authentication failed for user`),
		Cause:    "The database rejected the supplied credentials.",
		Diagnostics: []string{
			"Verify the username and password the application is configured with.",
			"Check which authentication method pg_hba.conf prescribes for this host and user.",
			"Confirm the credentials work with psql from the same host.",
		},
		Remediation: "Correct the credentials in the application configuration, or update the database role's password.",
	},
	{
		Category: "database connection refused",
		pattern:  regexp.MustCompile(`(?i)(connection refused|could not connect to server)`),
		Cause:    "Nothing is listening at the configured host and port, or a firewall drops the connection.",
		Diagnostics: []string{
			"Check that the database server process is running.",
			"Verify listen_addresses and port in postgresql.conf match the client configuration.",
			"Test reachability from the application host (nc or psql).",
		},
		Remediation: "Start the database, fix the host/port configuration, or open the firewall path between the hosts.",
	},
	{
		Category: "unknown database",
		pattern:  regexp.MustCompile(`(?i)database "[^"]*" does not exist`),
		Cause:    "The client connects successfully but names a database that has not been created.",
		Diagnostics: []string{
			"List the databases on the server (\\l in psql).",
			"Compare the configured database name against the actual one, including case.",
		},
		Remediation: "Create the database, or point the application at the existing one.",
	},
	{
		Category: "missing pg_hba rule",
		pattern:  regexp.MustCompile(`(?i)no pg_hba\.conf entry for host`),
		Cause:    "pg_hba.conf has no rule allowing this client address, user and database combination.",
		Diagnostics: []string{
			"Find the client address, user and database in the error line.",
			"Review pg_hba.conf rule order; the first matching rule wins.",
		},
		Remediation: "Add a matching pg_hba.conf rule and reload the server configuration.",
	},
	{
		Category: "DNS resolution failure",
		pattern:  regexp.MustCompile(`(?i)(could not translate host name|no such host|name or service not known)`),
		Cause:    "The configured hostname does not resolve from the application host.",
		Diagnostics: []string{
			"Resolve the hostname from the application host (dig or getent hosts).",
			"Check /etc/resolv.conf and any container DNS configuration.",
		},
		Remediation: "Fix the hostname, the DNS record, or the resolver configuration.",
	},
	{
		Category: "connection timeout",
		pattern:  regexp.MustCompile(`(?i)(connection timed out|timeout expired|i/o timeout|context deadline exceeded)`),
		Cause:    "Packets to the server are silently dropped or the server is overloaded.",
		Diagnostics: []string{
			"Check network path and security groups between the hosts.",
			"Look at server load and connection counts.",
		},
		Remediation: "Open the network path, raise the connect timeout, or relieve server load.",
	},
	{
		Category: "TLS mismatch",
		pattern:  regexp.MustCompile(`(?i)(ssl is not enabled on the server|server does not support ssl|certificate verify failed|tls handshake)`),
		Cause:    "Client and server disagree about TLS, or the certificate chain does not validate.",
		Diagnostics: []string{
			"Compare the client sslmode with the server's ssl setting.",
			"Inspect the server certificate chain and its validity dates.",
		},
		Remediation: "Align the TLS settings on both sides, or install a certificate the client trusts.",
	},
}

var evidencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^.*\b(FATAL|PANIC|CRITICAL)\b.*$`),
	regexp.MustCompile(`(?m)^.*level=error.*$`),
	regexp.MustCompile(`(?m)^.*\bERROR\b.*$`),
	regexp.MustCompile(`(?m)^.*(Error:|Exception|Traceback).*$`),
	regexp.MustCompile(`(?m)^\s+(at\s+\S+\(|File ").*$`),
	regexp.MustCompile(`(?m)^.*exit (code|status) [1-9]\d*.*$`),
}

// extractEvidence pulls error-looking lines out of the ticket context,
// deduplicated and in first-seen order.
func extractEvidence(text string) []string {
	seen := make(map[string]bool)
	var lines []string
	for _, re := range evidencePatterns {
		for _, m := range re.FindAllString(text, -1) {
			line := strings.TrimSpace(m)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			lines = append(lines, line)
		}
	}
	return lines
}

// matchRules returns every rule whose pattern matches the evidence, and the
// evidence lines no rule explains.
func matchRules(evidence []string) (matched []failureRule, unmatched []string) {
	joined := strings.Join(evidence, "\n")
	for _, rule := range failureRules {
		if rule.pattern.MatchString(joined) {
			matched = append(matched, rule)
		}
	}

	for _, line := range evidence {
		explained := false
		for _, rule := range matched {
			if rule.pattern.MatchString(line) {
				explained = true
				break
			}
		}
		if !explained {
			unmatched = append(unmatched, line)
		}
	}
	return matched, unmatched
}

func (s *Service) defAnalyzeTicketError() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_ticket_error",
		Description: "Extract error evidence from a ticket and match it against known failure categories.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"issue_number":   mcp.IntProp("Ticket number", 1, 1<<30),
			"comments_limit": mcp.IntProp("How many of the latest comments to scan", 0, 20),
			"post_comment":   mcp.BoolProp("Post the analysis as a ticket comment (default true)"),
		}, "issue_number"),
	}
}

func (s *Service) analyzeTicketError(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	in := struct {
		IssueNumber   int   `json:"issue_number"`
		CommentsLimit *int  `json:"comments_limit"`
		PostComment   *bool `json:"post_comment"`
	}{}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireIssueNumber(ctx, in.IssueNumber); rpcErr != nil {
		return nil, rpcErr
	}
	limit := 5
	if in.CommentsLimit != nil {
		limit = *in.CommentsLimit
	}
	if rpcErr := requireRange("comments_limit", limit, 0, 20); rpcErr != nil {
		return nil, rpcErr
	}
	post := true
	if in.PostComment != nil {
		post = *in.PostComment
	}

	issue, err := s.gh.Issue(ctx, in.IssueNumber)
	if err != nil {
		return nil, toRPCError(err)
	}

	var sb strings.Builder
	sb.WriteString(issue.Title)
	sb.WriteString("\n")
	sb.WriteString(issue.Body)
	if limit > 0 && issue.Comments > 0 {
		comments, err := s.gh.Comments(ctx, in.IssueNumber, staleListPageSize)
		if err != nil {
			return nil, toRPCError(err)
		}
		if len(comments) > limit {
			comments = comments[len(comments)-limit:]
		}
		for i := range comments {
			sb.WriteString("\n")
			sb.WriteString(comments[i].Body)
		}
	}
	scanText := tail(sb.String(), analyzerContextLimit)

	evidence := extractEvidence(scanText)
	matched, unmatched := matchRules(evidence)

	analysis := renderAnalysis(in.IssueNumber, evidence, matched, unmatched)

	commented := false
	if post && len(evidence) > 0 && s.gh.HasToken() {
		if _, err := s.gh.CreateComment(ctx, in.IssueNumber, analysis); err != nil {
			return nil, toRPCError(err)
		}
		commented = true
	}

	categories := make([]map[string]any, 0, len(matched))
	for _, rule := range matched {
		categories = append(categories, map[string]any{
			"category":    rule.Category,
			"cause":       rule.Cause,
			"diagnostics": rule.Diagnostics,
			"remediation": rule.Remediation,
		})
	}

	return mcp.TextResult(analysis, map[string]any{
		"evidence_lines": len(evidence),
		"categories":     categories,
		"unmatched":      unmatched,
		"comment_posted": commented,
	}), nil
}

func renderAnalysis(number int, evidence []string, matched []failureRule, unmatched []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error analysis for ticket #%d\n", number)

	if len(evidence) == 0 {
		sb.WriteString("\nNo error evidence found in the ticket text or recent comments.")
		return sb.String()
	}

	if len(matched) == 0 {
		sb.WriteString("\nNo known failure category matched. Evidence found:\n")
		for _, line := range evidence {
			fmt.Fprintf(&sb, "```\n%s\n```\n", line)
		}
		return sb.String()
	}

	for _, rule := range matched {
		fmt.Fprintf(&sb, "\n**%s**\nProbable cause: %s\nDiagnostic steps:\n", rule.Category, rule.Cause)
		for i, step := range rule.Diagnostics {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
		fmt.Fprintf(&sb, "Remediation: %s\n", rule.Remediation)
	}

	if len(unmatched) > 0 {
		sb.WriteString("\nUnexplained evidence:\n")
		for _, line := range unmatched {
			fmt.Fprintf(&sb, "```\n%s\n```\n", line)
		}
	}
	return sb.String()
}
