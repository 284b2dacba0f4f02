// SPDX-License-Identifier: MIT
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/quellwerk/supportd/internal/log"
	"github.com/quellwerk/supportd/internal/metrics"
	"github.com/quellwerk/supportd/internal/telemetry"
)

// ToolHandler executes one tool call. Arguments arrive as raw JSON; the
// handler owns decoding and validation. A returned *RPCError passes through
// to the client verbatim, any other error becomes an internal error.
type ToolHandler func(ctx context.Context, args json.RawMessage) (*ToolResult, error)

// PromptHandler renders one prompt from its arguments.
type PromptHandler func(ctx context.Context, args map[string]string) ([]PromptMessage, error)

type toolEntry struct {
	def     Tool
	handler ToolHandler
}

type promptEntry struct {
	def     Prompt
	handler PromptHandler
}

// Registry holds the tools and prompts a server exposes. Registration order
// is preserved in list responses. Register before serving; the registry is
// read-only afterwards.
type Registry struct {
	serverName    string
	serverVersion string
	tools         []toolEntry
	toolIndex     map[string]int
	prompts       []promptEntry
	promptIndex   map[string]int
}

// NewRegistry creates an empty registry identifying the server.
func NewRegistry(name, version string) *Registry {
	return &Registry{
		serverName:    name,
		serverVersion: version,
		toolIndex:     make(map[string]int),
		promptIndex:   make(map[string]int),
	}
}

// RegisterTool adds a tool. Re-registering a name panics, that is a
// programming error.
func (r *Registry) RegisterTool(def Tool, handler ToolHandler) {
	if _, exists := r.toolIndex[def.Name]; exists {
		panic("mcp: duplicate tool " + def.Name)
	}
	r.toolIndex[def.Name] = len(r.tools)
	r.tools = append(r.tools, toolEntry{def: def, handler: handler})
}

// RegisterPrompt adds a prompt template.
func (r *Registry) RegisterPrompt(def Prompt, handler PromptHandler) {
	if _, exists := r.promptIndex[def.Name]; exists {
		panic("mcp: duplicate prompt " + def.Name)
	}
	r.promptIndex[def.Name] = len(r.prompts)
	r.prompts = append(r.prompts, promptEntry{def: def, handler: handler})
}

// Tools returns the tool definitions in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.tools))
	for i, e := range r.tools {
		out[i] = e.def
	}
	return out
}

// Prompts returns the prompt definitions in registration order.
func (r *Registry) Prompts() []Prompt {
	out := make([]Prompt, len(r.prompts))
	for i, e := range r.prompts {
		out[i] = e.def
	}
	return out
}

// InitializeResult is the response payload of the initialize method.
func (r *Registry) InitializeResult() map[string]any {
	capabilities := map[string]any{
		"tools": map[string]any{},
	}
	if len(r.prompts) > 0 {
		capabilities["prompts"] = map[string]any{}
	}
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    capabilities,
		"serverInfo": map[string]any{
			"name":    r.serverName,
			"version": r.serverVersion,
		},
	}
}

// CallTool dispatches a tools/call by name. Unknown names yield an invalid
// params error so clients can distinguish them from transport problems.
func (r *Registry) CallTool(ctx context.Context, name string, args json.RawMessage) (*ToolResult, *RPCError) {
	idx, ok := r.toolIndex[name]
	if !ok {
		return nil, Errorf(CodeInvalidParams, "unknown tool: %s", name)
	}

	ctx = log.ContextWithTool(ctx, name)
	ctx, span := telemetry.Tracer("supportd/mcp").Start(ctx, "mcp.tool."+name)
	defer span.End()

	logger := log.WithComponentFromContext(ctx, "mcp")
	start := time.Now()

	result, err := r.tools[idx].handler(ctx, args)
	elapsed := time.Since(start)

	if err != nil {
		rpcErr := asRPCError(err)
		metrics.RecordToolCall(name, "error", elapsed.Seconds())
		span.SetAttributes(telemetry.ErrorAttributes(strconv.Itoa(rpcErr.Code))...)
		logger.Warn().
			Str(log.FieldTool, name).
			Int("code", rpcErr.Code).
			Dur(log.FieldDuration, elapsed).
			Str(log.FieldEvent, "tool.call").
			Msg(rpcErr.Message)
		return nil, rpcErr
	}

	metrics.RecordToolCall(name, "ok", elapsed.Seconds())
	span.SetAttributes(telemetry.ToolAttributes(name, "ok")...)
	logger.Info().
		Str(log.FieldTool, name).
		Dur(log.FieldDuration, elapsed).
		Str(log.FieldEvent, "tool.call").
		Str(log.FieldOutcome, "ok").
		Msg("tool call completed")
	return result, nil
}

// GetPrompt renders a prompts/get by name.
func (r *Registry) GetPrompt(ctx context.Context, name string, args map[string]string) ([]PromptMessage, *RPCError) {
	idx, ok := r.promptIndex[name]
	if !ok {
		return nil, Errorf(CodeInvalidParams, "unknown prompt: %s", name)
	}
	messages, err := r.prompts[idx].handler(ctx, args)
	if err != nil {
		return nil, asRPCError(err)
	}
	return messages, nil
}

func asRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return Errorf(CodeInternalError, "%v", err)
}
