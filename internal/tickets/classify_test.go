// SPDX-License-Identifier: MIT
package tickets

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantType     string
		wantPriority string
	}{
		{
			name:         "traceback is a bug",
			text:         "App crashes on start\nTraceback (most recent call last): ...",
			wantType:     "bug",
			wantPriority: "medium",
		},
		{
			name:         "production outage is urgent",
			text:         "Complete outage in production, connection refused everywhere",
			wantType:     "bug",
			wantPriority: "urgent",
		},
		{
			name:         "production bug is high",
			text:         "Login fails in production with error: invalid session",
			wantType:     "bug",
			wantPriority: "high",
		},
		{
			name:         "feature request",
			text:         "Feature request: add support for SSO login",
			wantType:     "feature",
			wantPriority: "low",
		},
		{
			name:         "how-do-i question",
			text:         "How do I configure the connection pool size?",
			wantType:     "question",
			wantPriority: "low",
		},
		{
			name:         "bare question mark",
			text:         "Is this compatible with PostgreSQL 16?",
			wantType:     "question",
			wantPriority: "low",
		},
		{
			name:         "plain request is support",
			text:         "Please take a look at my account settings",
			wantType:     "support",
			wantPriority: "medium",
		},
		{
			name:         "bug beats feature wording",
			text:         "Would be nice if it did not crash on every start",
			wantType:     "bug",
			wantPriority: "medium",
		},
		{
			name:         "urgent support",
			text:         "We are seeing data loss, please help",
			wantType:     "support",
			wantPriority: "urgent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.text)
			if got.Type != tt.wantType {
				t.Errorf("type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Priority != tt.wantPriority {
				t.Errorf("priority = %q, want %q", got.Priority, tt.wantPriority)
			}
		})
	}
}
