// SPDX-License-Identifier: MIT
package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndListInvocations(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.RecordInvocation(ctx, "get_ticket_detail", `{"issue_number":7}`, "ok", 120*time.Millisecond)
	store.RecordInvocation(ctx, "classify_ticket", `{"issue_number":7}`, "error", 40*time.Millisecond)

	got, err := store.RecentInvocations(ctx, 10)
	if err != nil {
		t.Fatalf("RecentInvocations() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	// Newest first.
	if got[0].Tool != "classify_ticket" {
		t.Errorf("expected newest row first, got %q", got[0].Tool)
	}
	if got[1].Duration != 120*time.Millisecond {
		t.Errorf("duration not round-tripped, got %v", got[1].Duration)
	}
	if got[0].Outcome != "error" {
		t.Errorf("unexpected outcome %q", got[0].Outcome)
	}
}

func TestRecordInvocationDefaultsArgs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.RecordInvocation(ctx, "list_docs", "", "ok", time.Millisecond)

	got, err := store.RecentInvocations(ctx, 1)
	if err != nil {
		t.Fatalf("RecentInvocations() failed: %v", err)
	}
	if len(got) != 1 || got[0].Args != "{}" {
		t.Fatalf("empty args not defaulted, got %+v", got)
	}
}

func TestReportRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.RecordReport(ctx, ReportRow{
		PeriodDays: 7,
		Total:      12,
		Opened:     8,
		Closed:     4,
		Types:      map[string]int{"bug": 5, "question": 3},
		Priorities: map[string]int{"high": 2},
	})
	if err != nil {
		t.Fatalf("RecordReport() failed: %v", err)
	}
	if id == 0 {
		t.Error("expected a row id")
	}

	got, err := store.LatestReport(ctx)
	if err != nil {
		t.Fatalf("LatestReport() failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a report")
	}
	if got.Total != 12 || got.Opened != 8 || got.Closed != 4 {
		t.Errorf("counts not round-tripped: %+v", got)
	}
	if got.Types["bug"] != 5 {
		t.Errorf("types not round-tripped: %v", got.Types)
	}
	if got.Priorities["high"] != 2 {
		t.Errorf("priorities not round-tripped: %v", got.Priorities)
	}
}

func TestLatestReportEmpty(t *testing.T) {
	store := openTestStore(t)

	got, err := store.LatestReport(context.Background())
	if err != nil {
		t.Fatalf("LatestReport() failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on empty table, got %+v", got)
	}
}

func TestHealthCheck(t *testing.T) {
	store := openTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() failed: %v", err)
	}
}
