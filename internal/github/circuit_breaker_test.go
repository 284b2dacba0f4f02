// SPDX-License-Identifier: MIT
package github

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected boom, got %v", i, err)
		}
	}

	if got := cb.CurrentState(); got != StateOpen {
		t.Fatalf("expected StateOpen after threshold, got %v", got)
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	if err := cb.Execute(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure")
	}
	if got := cb.CurrentState(); got != StateOpen {
		t.Fatalf("expected StateOpen, got %v", got)
	}

	time.Sleep(20 * time.Millisecond)

	// First probe after the reset timeout is allowed; success closes the breaker.
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if got := cb.CurrentState(); got != StateClosed {
		t.Fatalf("expected StateClosed after successful probe, got %v", got)
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	_ = cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	_ = cb.Execute(func() error { return errors.New("still down") })
	if got := cb.CurrentState(); got != StateOpen {
		t.Fatalf("expected StateOpen after failed probe, got %v", got)
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)

	_ = cb.Execute(func() error { return errors.New("boom") })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errors.New("boom") })

	if got := cb.CurrentState(); got != StateClosed {
		t.Fatalf("expected StateClosed, interleaved success should reset count, got %v", got)
	}
}
