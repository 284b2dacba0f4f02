// SPDX-License-Identifier: MIT
package tickets

import (
	"errors"

	"github.com/quellwerk/supportd/internal/github"
	"github.com/quellwerk/supportd/internal/mcp"
)

// toRPCError maps boundary errors onto JSON-RPC codes. Bad issue numbers and
// missing write credentials are parameter problems from the client's point of
// view; everything upstream is internal.
func toRPCError(err error) *mcp.RPCError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, github.ErrNotFound):
		return mcp.Errorf(mcp.CodeInvalidParams, "ticket not found")
	case errors.Is(err, github.ErrIsPullRequest):
		return mcp.Errorf(mcp.CodeInvalidParams, "the number refers to a pull request, not a ticket")
	case errors.Is(err, github.ErrTokenRequired):
		return mcp.Errorf(mcp.CodeInvalidParams, "this operation requires a configured GitHub token")
	case errors.Is(err, github.ErrForbidden):
		return mcp.Errorf(mcp.CodeInternalError, "access to the ticket repository was denied")
	case errors.Is(err, github.ErrTimeout):
		return mcp.Errorf(mcp.CodeInternalError, "the ticket backend timed out")
	default:
		return mcp.Errorf(mcp.CodeInternalError, "ticket backend error: %v", err)
	}
}
