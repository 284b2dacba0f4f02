// SPDX-License-Identifier: MIT

// Package tickets implements the support tools exposed over MCP. Tickets are
// GitHub issues of one configured repository; the docs index and the audit
// store back the knowledge-base and reporting tools.
package tickets

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/quellwerk/supportd/internal/audit"
	"github.com/quellwerk/supportd/internal/docs"
	"github.com/quellwerk/supportd/internal/github"
	"github.com/quellwerk/supportd/internal/log"
	"github.com/quellwerk/supportd/internal/mcp"
	"github.com/quellwerk/supportd/internal/telemetry"
)

// Service wires the ticket tools to their backends.
type Service struct {
	gh        *github.Client
	docs      *docs.Index
	audit     *audit.Store
	reportDir string
	logger    zerolog.Logger
}

// New creates the service. audit may be nil to disable persistence, docs may
// be nil when no documentation directory is configured.
func New(gh *github.Client, ix *docs.Index, store *audit.Store, reportDir string) *Service {
	return &Service{
		gh:        gh,
		docs:      ix,
		audit:     store,
		reportDir: reportDir,
		logger:    log.WithComponent("tickets"),
	}
}

// Register adds every tool and prompt to the registry. Order matches the
// listing the clients see.
func (s *Service) Register(reg *mcp.Registry) {
	reg.RegisterTool(s.defGetNewTickets(), s.audited("get_new_tickets", s.getNewTickets))
	reg.RegisterTool(s.defGetTicketDetail(), s.audited("get_ticket_detail", s.getTicketDetail))
	reg.RegisterTool(s.defGetTicketLastComment(), s.audited("get_ticket_last_comment", s.getTicketLastComment))
	reg.RegisterTool(s.defPostTicketReply(), s.audited("post_ticket_reply", s.postTicketReply))
	reg.RegisterTool(s.defUpdateTicketMeta(), s.audited("update_ticket_meta", s.updateTicketMeta))
	reg.RegisterTool(s.defClassifyTicket(), s.audited("classify_ticket", s.classifyTicket))
	reg.RegisterTool(s.defRequestMoreInfo(), s.audited("request_more_info", s.requestMoreInfo))
	reg.RegisterTool(s.defGetStaleTickets(), s.audited("get_stale_tickets", s.getStaleTickets))
	reg.RegisterTool(s.defAnalyzeTicketError(), s.audited("analyze_ticket_error", s.analyzeTicketError))
	reg.RegisterTool(s.defListDocs(), s.audited("list_docs", s.listDocs))
	reg.RegisterTool(s.defSearchDocs(), s.audited("search_docs", s.searchDocs))
	reg.RegisterTool(s.defAnswerFromDocs(), s.audited("answer_from_docs", s.answerFromDocs))
	reg.RegisterTool(s.defCreateSubtasks(), s.audited("create_subtasks_from_ticket", s.createSubtasks))
	reg.RegisterTool(s.defTranslateTicket(), s.audited("translate_ticket", s.translateTicket))
	reg.RegisterTool(s.defGenerateReport(), s.audited("generate_support_report", s.generateReport))
	reg.RegisterTool(s.defAnswerTicketQuestion(), s.audited("answer_ticket_question", s.answerTicketQuestion))
	reg.RegisterTool(s.defSummarizeTicket(), s.audited("summarize_ticket", s.summarizeTicket))
	reg.RegisterTool(s.defCloseTicket(), s.audited("close_ticket", s.closeTicket))

	s.registerPrompts(reg)
}

// audited wraps a handler with best-effort audit persistence.
func (s *Service) audited(name string, handler mcp.ToolHandler) mcp.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
		telemetry.RecordRepo(ctx, s.gh.Repo())
		start := time.Now()
		result, err := handler(ctx, args)

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		if s.audit != nil {
			s.audit.RecordInvocation(ctx, name, string(args), outcome, time.Since(start))
		}
		return result, err
	}
}
