// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/quellwerk/supportd/internal/audit"
	"github.com/quellwerk/supportd/internal/github"
	"github.com/quellwerk/supportd/internal/mcp"
)

var ticketTypes = []string{"bug", "feature", "question", "support"}

func (s *Service) defGenerateReport() mcp.Tool {
	return mcp.Tool{
		Name:        "generate_support_report",
		Description: "Count tickets by state, type and priority over a period, persist the report and export it as Markdown.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"period_days": mcp.IntProp("Reporting window in days (default 7)", 1, 90),
		}),
	}
}

func (s *Service) generateReport(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	in := struct {
		PeriodDays *int `json:"period_days"`
	}{}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	period := 7
	if in.PeriodDays != nil {
		period = *in.PeriodDays
	}
	if rpcErr := requireRange("period_days", period, 1, 90); rpcErr != nil {
		return nil, rpcErr
	}

	since := time.Now().UTC().AddDate(0, 0, -period)
	issues, err := s.gh.Issues(ctx, github.IssueFilter{
		State:   "all",
		Since:   &since,
		PerPage: staleListPageSize,
	})
	if err != nil {
		return nil, toRPCError(err)
	}

	total, opened, closed := len(issues), 0, 0
	types := make(map[string]int)
	priorities := make(map[string]int)
	for i := range issues {
		if issues[i].State == "open" {
			opened++
		} else {
			closed++
		}
		for _, label := range issues[i].LabelNames() {
			lower := strings.ToLower(label)
			if strings.HasPrefix(lower, priorityPrefix) {
				priorities[strings.TrimSpace(strings.TrimPrefix(lower, priorityPrefix))]++
				continue
			}
			for _, t := range ticketTypes {
				if lower == t {
					types[t]++
				}
			}
		}
	}

	markdown := renderReport(s.gh.Repo(), period, total, opened, closed, types, priorities)

	var reportID int64
	if s.audit != nil {
		id, err := s.audit.RecordReport(ctx, audit.ReportRow{
			PeriodDays: period,
			Total:      total,
			Opened:     opened,
			Closed:     closed,
			Types:      types,
			Priorities: priorities,
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("report persistence failed")
		} else {
			reportID = id
		}
	}

	var exportPath string
	if s.reportDir != "" {
		if err := os.MkdirAll(s.reportDir, 0o755); err != nil {
			return nil, mcp.Errorf(mcp.CodeInternalError, "cannot create report directory: %v", err)
		}
		exportPath = filepath.Join(s.reportDir,
			fmt.Sprintf("support-report-%s.md", time.Now().UTC().Format("2006-01-02")))
		if err := renameio.WriteFile(exportPath, []byte(markdown), 0o644); err != nil {
			return nil, mcp.Errorf(mcp.CodeInternalError, "cannot write report: %v", err)
		}
	}

	return mcp.TextResult(markdown, map[string]any{
		"report_id":   reportID,
		"export_path": exportPath,
		"total":       total,
		"open":        opened,
		"closed":      closed,
		"types":       types,
		"priorities":  priorities,
	}), nil
}

func renderReport(repo string, period, total, opened, closed int, types, priorities map[string]int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Support report for %s\n\n", repo)
	fmt.Fprintf(&sb, "Period: last %d day(s), generated %s.\n\n", period, time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Tickets touched | %d |\n", total)
	fmt.Fprintf(&sb, "| Currently open | %d |\n", opened)
	fmt.Fprintf(&sb, "| Closed | %d |\n", closed)

	writeSection := func(title string, counts map[string]int) {
		if len(counts) == 0 {
			return
		}
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&sb, "\n## %s\n\n", title)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %d\n", k, counts[k])
		}
	}
	writeSection("By type", types)
	writeSection("By priority", priorities)
	return sb.String()
}
