// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Tool attributes
	ToolNameKey    = "tool.name"
	ToolOutcomeKey = "tool.outcome"

	// Ticket attributes
	TicketNumberKey = "ticket.number"
	TicketRepoKey   = "ticket.repo"

	// Docs attributes
	DocsQueryKey   = "docs.query"
	DocsResultsKey = "docs.results"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// ToolAttributes creates the span attributes shared by every tool call.
func ToolAttributes(tool, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ToolNameKey, tool),
		attribute.String(ToolOutcomeKey, outcome),
	}
}

// TicketAttributes creates ticket-scoped span attributes.
func TicketAttributes(number int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(TicketNumberKey, number),
	}
}

// RecordTicket tags the active span with the ticket being operated on.
// A no-op when the context carries no recording span.
func RecordTicket(ctx context.Context, number int) {
	trace.SpanFromContext(ctx).SetAttributes(TicketAttributes(number)...)
}

// RecordRepo tags the active span with the configured ticket repository.
func RecordRepo(ctx context.Context, repo string) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String(TicketRepoKey, repo))
}

// RecordDocsQuery tags the active span with a documentation search and its
// hit count.
func RecordDocsQuery(ctx context.Context, query string, results int) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(DocsQueryKey, query),
		attribute.Int(DocsResultsKey, results),
	)
}

// ErrorAttributes creates error span attributes.
func ErrorAttributes(errType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errType),
	}
}
