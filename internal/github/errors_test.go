// SPDX-License-Identifier: MIT
package github

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIErrorUnwrapsToSentinel(t *testing.T) {
	err := &APIError{Sentinel: ErrNotFound, Operation: "issues.get", Status: 404}

	if !errors.Is(err, ErrNotFound) {
		t.Error("APIError does not unwrap to its sentinel")
	}
	if errors.Is(err, ErrForbidden) {
		t.Error("APIError matches an unrelated sentinel")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	inner := fmt.Errorf("dial tcp: connection refused")
	err := &APIError{Sentinel: ErrUnavailable, Operation: "issues.list", Err: inner}

	msg := err.Error()
	if !strings.Contains(msg, "issues.list") {
		t.Errorf("message misses the operation: %q", msg)
	}
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("message misses the nested error: %q", msg)
	}
}

func TestAPIErrorIncludesStatus(t *testing.T) {
	err := &APIError{Sentinel: ErrUpstream, Operation: "issues.get", Status: 502, Body: "bad gateway"}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("message misses the status code: %q", err.Error())
	}
}
