// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quellwerk/supportd/internal/mcp"
	"github.com/quellwerk/supportd/internal/telemetry"
)

func (s *Service) defListDocs() mcp.Tool {
	return mcp.Tool{
		Name:        "list_docs",
		Description: "List the documentation files available for answering tickets.",
		InputSchema: mcp.ObjectSchema(map[string]any{}),
	}
}

func (s *Service) listDocs(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	if s.docs == nil {
		return mcp.TextResult(
			"No documentation directory is configured.",
			map[string]any{"files": []string{}},
		), nil
	}

	documents, err := s.docs.Documents()
	if err != nil {
		return nil, mcp.Errorf(mcp.CodeInternalError, "cannot read documentation: %v", err)
	}
	if len(documents) == 0 {
		return mcp.TextResult(
			"The documentation directory is empty or missing.",
			map[string]any{"files": []string{}},
		), nil
	}

	files := make([]map[string]any, 0, len(documents))
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d documentation file(s):", len(documents))
	for _, doc := range documents {
		fmt.Fprintf(&sb, "\n- %s (%s)", doc.Path, doc.Title)
		files = append(files, map[string]any{
			"path":  doc.Path,
			"title": doc.Title,
			"size":  doc.Size,
		})
	}

	return mcp.TextResult(sb.String(), map[string]any{"files": files}), nil
}

func (s *Service) defSearchDocs() mcp.Tool {
	return mcp.Tool{
		Name:        "search_docs",
		Description: "Full-text search over the documentation, returning the best matching paragraphs.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"query":       mcp.StringProp("Search terms"),
			"max_results": mcp.IntProp("Maximum snippets to return (default 5)", 1, 20),
		}, "query"),
	}
}

func (s *Service) searchDocs(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	in := struct {
		Query      string `json:"query"`
		MaxResults *int   `json:"max_results"`
	}{}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireText("query", in.Query, 0); rpcErr != nil {
		return nil, rpcErr
	}
	limit := 5
	if in.MaxResults != nil {
		limit = *in.MaxResults
	}
	if rpcErr := requireRange("max_results", limit, 1, 20); rpcErr != nil {
		return nil, rpcErr
	}

	if s.docs == nil {
		return mcp.TextResult(
			"No documentation directory is configured.",
			map[string]any{"results": []any{}},
		), nil
	}

	hits, err := s.docs.Search(in.Query, limit)
	if err != nil {
		return nil, mcp.Errorf(mcp.CodeInternalError, "documentation search failed: %v", err)
	}
	telemetry.RecordDocsQuery(ctx, in.Query, len(hits))
	if len(hits) == 0 {
		return mcp.TextResult(
			fmt.Sprintf("No documentation matches %q.", in.Query),
			map[string]any{"results": []any{}},
		), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d match(es) for %q:", len(hits), in.Query)
	for _, hit := range hits {
		heading := hit.Heading
		if heading == "" {
			heading = "(no heading)"
		}
		fmt.Fprintf(&sb, "\n\n%s :: %s\n%s", hit.Path, heading, hit.Snippet)
	}

	return mcp.TextResult(sb.String(), map[string]any{"results": hits}), nil
}

func (s *Service) defAnswerFromDocs() mcp.Tool {
	return mcp.Tool{
		Name:        "answer_from_docs",
		Description: "Collect the most relevant documentation fragments for a question so the caller can compose an answer.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"query":                 mcp.StringProp("The question to answer"),
			"max_context_fragments": mcp.IntProp("How many fragments to include (default 5)", 1, 20),
		}, "query"),
	}
}

func (s *Service) answerFromDocs(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	in := struct {
		Query        string `json:"query"`
		MaxFragments *int   `json:"max_context_fragments"`
	}{}
	if rpcErr := decode(args, &in); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireText("query", in.Query, 0); rpcErr != nil {
		return nil, rpcErr
	}
	limit := 5
	if in.MaxFragments != nil {
		limit = *in.MaxFragments
	}
	if rpcErr := requireRange("max_context_fragments", limit, 1, 20); rpcErr != nil {
		return nil, rpcErr
	}

	var hits []docsHit
	if s.docs != nil {
		found, err := s.docs.Search(in.Query, limit)
		if err != nil {
			return nil, mcp.Errorf(mcp.CodeInternalError, "documentation search failed: %v", err)
		}
		for _, h := range found {
			hits = append(hits, docsHit{Path: h.Path, Heading: h.Heading, Snippet: h.Snippet})
		}
	}

	telemetry.RecordDocsQuery(ctx, in.Query, len(hits))
	if len(hits) == 0 {
		return mcp.TextResult(
			fmt.Sprintf("The documentation contains nothing relevant to %q.", in.Query),
			map[string]any{"answer": nil, "fragments": []any{}},
		), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Answer the following question using only the documentation fragments below.\n\nQuestion: %s\n", in.Query)
	for i, hit := range hits {
		fmt.Fprintf(&sb, "\nFragment %d (%s", i+1, hit.Path)
		if hit.Heading != "" {
			fmt.Fprintf(&sb, ", %s", hit.Heading)
		}
		fmt.Fprintf(&sb, "):\n%s\n", hit.Snippet)
	}

	return mcp.TextResult(sb.String(), map[string]any{
		"answer":    nil,
		"fragments": hits,
	}), nil
}

// docsHit is the fragment shape exposed in structured content.
type docsHit struct {
	Path    string `json:"path"`
	Heading string `json:"heading,omitempty"`
	Snippet string `json:"snippet"`
}
