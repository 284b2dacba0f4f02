// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldTool      = "tool"

	// Ticket fields
	FieldTicket   = "ticket"
	FieldRepo     = "repo"
	FieldLabels   = "labels"
	FieldPriority = "priority"

	// Process fields
	FieldEvent    = "event"
	FieldOutcome  = "outcome"
	FieldDuration = "duration_ms"

	// Upstream fields
	FieldOperation = "operation"
	FieldStatus    = "status"
)
