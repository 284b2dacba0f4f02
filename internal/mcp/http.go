// SPDX-License-Identifier: MIT
package mcp

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/quellwerk/supportd/internal/log"
)

// maxRequestBody caps a single JSON-RPC message. Ticket bodies and doc
// queries are small; anything beyond this is abuse.
const maxRequestBody = 1 << 20

// Handler serves the streamable HTTP transport on a single endpoint.
type Handler struct {
	registry *Registry
}

// NewHandler wraps a registry for HTTP serving.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// ServeHTTP implements the stateless streamable HTTP transport. Only POST is
// supported; the server never opens a standalone SSE stream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeResponse(w, r, errorResponse(nil, Errorf(CodeParseError, "cannot read request body")))
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, r, errorResponse(nil, Errorf(CodeParseError, "invalid JSON: %v", err)))
		return
	}
	if req.JSONRPC != "2.0" {
		writeResponse(w, r, errorResponse(req.ID, Errorf(CodeInvalidRequest, "jsonrpc must be \"2.0\"")))
		return
	}

	// Notifications get acknowledged without a body.
	if req.IsNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	writeResponse(w, r, h.dispatch(r, &req))
}

func (h *Handler) dispatch(r *http.Request, req *Request) Response {
	ctx := r.Context()

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, h.registry.InitializeResult())

	case "ping":
		return resultResponse(req.ID, map[string]any{})

	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": h.registry.Tools()})

	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			return errorResponse(req.ID, Errorf(CodeInvalidParams, "tools/call requires a tool name"))
		}
		result, rpcErr := h.registry.CallTool(ctx, params.Name, params.Arguments)
		if rpcErr != nil {
			return errorResponse(req.ID, rpcErr)
		}
		return resultResponse(req.ID, result)

	case "prompts/list":
		return resultResponse(req.ID, map[string]any{"prompts": h.registry.Prompts()})

	case "prompts/get":
		var params struct {
			Name      string            `json:"name"`
			Arguments map[string]string `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			return errorResponse(req.ID, Errorf(CodeInvalidParams, "prompts/get requires a prompt name"))
		}
		messages, rpcErr := h.registry.GetPrompt(ctx, params.Name, params.Arguments)
		if rpcErr != nil {
			return errorResponse(req.ID, rpcErr)
		}
		return resultResponse(req.ID, map[string]any{
			"description": params.Name,
			"messages":    messages,
		})

	default:
		return errorResponse(req.ID, Errorf(CodeMethodNotFound, "method not found: %s", req.Method))
	}
}

func resultResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: "2.0", ID: normalizeID(id), Result: result}
}

func errorResponse(id json.RawMessage, rpcErr *RPCError) Response {
	return Response{JSONRPC: "2.0", ID: normalizeID(id), Error: rpcErr}
}

// normalizeID maps an absent id to JSON null as required for error responses
// to unparseable requests.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// writeResponse emits the response either as a single SSE message event or as
// plain JSON, depending on what the client accepts. MCP clients send
// "Accept: application/json, text/event-stream" and expect the SSE form.
func writeResponse(w http.ResponseWriter, r *http.Request, res Response) {
	payload, err := json.Marshal(res)
	if err != nil {
		l := log.WithComponent("mcp")
		l.Error().Err(err).Msg("cannot marshal response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if acceptsSSE(r) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte("event: message\ndata: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func acceptsSSE(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
