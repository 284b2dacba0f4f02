// SPDX-License-Identifier: MIT
package tickets

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/quellwerk/supportd/internal/mcp"
	"github.com/quellwerk/supportd/internal/telemetry"
)

// decode unmarshals raw tool arguments. A missing arguments object decodes
// into the zero value so optional-only tools work without one.
func decode(args json.RawMessage, into any) *mcp.RPCError {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, into); err != nil {
		return mcp.Errorf(mcp.CodeInvalidParams, "invalid arguments: %v", err)
	}
	return nil
}

func requireRange(name string, value, min, max int) *mcp.RPCError {
	if value < min || value > max {
		return mcp.Errorf(mcp.CodeInvalidParams, "%s must be between %d and %d", name, min, max)
	}
	return nil
}

// requireIssueNumber validates the ticket number and tags the active span
// with it.
func requireIssueNumber(ctx context.Context, n int) *mcp.RPCError {
	if n < 1 {
		return mcp.Errorf(mcp.CodeInvalidParams, "issue_number must be a positive integer")
	}
	telemetry.RecordTicket(ctx, n)
	return nil
}

func requireText(name, value string, maxRunes int) *mcp.RPCError {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return mcp.Errorf(mcp.CodeInvalidParams, "%s must not be empty", name)
	}
	if maxRunes > 0 && len([]rune(value)) > maxRunes {
		return mcp.Errorf(mcp.CodeInvalidParams, "%s exceeds %d characters", name, maxRunes)
	}
	return nil
}

// truncate caps text at limit runes, appending an ellipsis when cut.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

// tail keeps the last limit runes of text, the end of a log is where the
// failure usually is.
func tail(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return "…" + string(runes[len(runes)-limit:])
}
