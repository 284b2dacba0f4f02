// SPDX-License-Identifier: MIT
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry("supportd-test", "0.0.0")

	reg.RegisterTool(Tool{
		Name:        "echo",
		Description: "Echoes the text argument back.",
		InputSchema: ObjectSchema(map[string]any{
			"text": StringProp("Text to echo"),
		}, "text"),
	}, func(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
		var in struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(args, &in); err != nil || in.Text == "" {
			return nil, Errorf(CodeInvalidParams, "text is required")
		}
		return TextResult(in.Text, map[string]any{"text": in.Text}), nil
	})

	reg.RegisterPrompt(Prompt{
		Name:        "greeting",
		Description: "A greeting prompt.",
	}, func(ctx context.Context, args map[string]string) ([]PromptMessage, error) {
		return []PromptMessage{{Role: "user", Content: NewText("hello")}}, nil
	})

	return reg
}

func postJSON(t *testing.T, handler http.Handler, body string, accept string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	raw := rec.Body.String()

	// Unwrap the SSE frame if present.
	if strings.HasPrefix(raw, "event: message\n") {
		idx := strings.Index(raw, "data: ")
		if idx < 0 {
			t.Fatalf("SSE frame without data line: %q", raw)
		}
		raw = strings.TrimSpace(raw[idx+len("data: "):])
	}

	var res Response
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		t.Fatalf("cannot decode response %q: %v", raw, err)
	}
	return res
}

func TestInitialize(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, "application/json")

	res := decodeResponse(t, rec)
	if res.Error != nil {
		t.Fatalf("initialize failed: %v", res.Error)
	}

	result := res.Result.(map[string]any)
	if result["protocolVersion"] != ProtocolVersion {
		t.Errorf("unexpected protocol version %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != "supportd-test" {
		t.Errorf("unexpected server name %v", info["name"])
	}
}

func TestSSEFraming(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "application/json, text/event-stream")

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected SSE content type, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "event: message\ndata: ") {
		t.Fatalf("unexpected SSE frame: %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Fatalf("SSE frame not terminated by blank line: %q", body)
	}

	res := decodeResponse(t, rec)
	if res.Error != nil {
		t.Fatalf("ping failed: %v", res.Error)
	}
}

func TestPlainJSONWhenSSENotAccepted(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "application/json")

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
}

func TestToolsList(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, "application/json")

	res := decodeResponse(t, rec)
	result := res.Result.(map[string]any)
	tools := result["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	tool := tools[0].(map[string]any)
	if tool["name"] != "echo" {
		t.Errorf("unexpected tool %v", tool["name"])
	}
	if _, ok := tool["inputSchema"].(map[string]any); !ok {
		t.Error("tool misses inputSchema")
	}
}

func TestToolsCall(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`,
		"application/json")

	res := decodeResponse(t, rec)
	if res.Error != nil {
		t.Fatalf("tools/call failed: %v", res.Error)
	}
	result := res.Result.(map[string]any)
	content := result["content"].([]any)
	block := content[0].(map[string]any)
	if block["type"] != "text" || block["text"] != "hi" {
		t.Errorf("unexpected content block %v", block)
	}
}

func TestToolsCallInvalidParams(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo","arguments":{}}}`,
		"application/json")

	res := decodeResponse(t, rec)
	if res.Error == nil {
		t.Fatal("expected an error response")
	}
	if res.Error.Code != CodeInvalidParams {
		t.Errorf("expected code %d, got %d", CodeInvalidParams, res.Error.Code)
	}
}

func TestUnknownTool(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope","arguments":{}}}`,
		"application/json")

	res := decodeResponse(t, rec)
	if res.Error == nil || res.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid params for unknown tool, got %v", res.Error)
	}
}

func TestMethodNotFound(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler, `{"jsonrpc":"2.0","id":6,"method":"resources/list"}`, "application/json")

	res := decodeResponse(t, rec)
	if res.Error == nil || res.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method not found, got %v", res.Error)
	}
}

func TestParseError(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler, `{not json`, "application/json")

	res := decodeResponse(t, rec)
	if res.Error == nil || res.Error.Code != CodeParseError {
		t.Fatalf("expected parse error, got %v", res.Error)
	}
	if string(res.ID) != "null" {
		t.Errorf("expected null id, got %s", res.ID)
	}
}

func TestNotificationAccepted(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	rec := postJSON(t, handler, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "application/json")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for notification, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("notification response must have no body, got %q", rec.Body.String())
	}
}

func TestGetNotAllowed(t *testing.T) {
	handler := NewHandler(testRegistry(t))
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestPromptsListAndGet(t *testing.T) {
	handler := NewHandler(testRegistry(t))

	rec := postJSON(t, handler, `{"jsonrpc":"2.0","id":7,"method":"prompts/list"}`, "application/json")
	res := decodeResponse(t, rec)
	prompts := res.Result.(map[string]any)["prompts"].([]any)
	if len(prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(prompts))
	}

	rec = postJSON(t, handler,
		`{"jsonrpc":"2.0","id":8,"method":"prompts/get","params":{"name":"greeting"}}`,
		"application/json")
	res = decodeResponse(t, rec)
	if res.Error != nil {
		t.Fatalf("prompts/get failed: %v", res.Error)
	}
	messages := res.Result.(map[string]any)["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
}

func TestRegistryDuplicateToolPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	reg := NewRegistry("x", "0")
	def := Tool{Name: "dup", InputSchema: ObjectSchema(nil)}
	handler := func(ctx context.Context, args json.RawMessage) (*ToolResult, error) { return nil, nil }
	reg.RegisterTool(def, handler)
	reg.RegisterTool(def, handler)
}
