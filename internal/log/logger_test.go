package log

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestReconfigureWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "supportd-test"})

	l := Base()
	l.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"service":"supportd-test"`) {
		t.Fatalf("expected service field in %q", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Fatalf("expected message in %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf})

	l := WithComponent("mcp")
	l.Info().Msg("ready")

	if !strings.Contains(buf.String(), `"component":"mcp"`) {
		t.Fatalf("expected component field in %q", buf.String())
	}
}

func TestWithComponentFromContext(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	ctx = ContextWithTool(ctx, "get_ticket_detail")

	l := WithComponentFromContext(ctx, "tickets")
	l.Info().Msg("fetch")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-42"`, `"tool":"get_ticket_detail"`, `"component":"tickets"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %q", want, out)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "abc")
	if got := RequestIDFromContext(ctx); got != "abc" {
		t.Fatalf("RequestIDFromContext = %q, want abc", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
	if got := ToolFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty tool, got %q", got)
	}
}
