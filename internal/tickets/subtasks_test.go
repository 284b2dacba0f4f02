// SPDX-License-Identifier: MIT
package tickets

import "testing"

func TestExtractSubtasksTaskList(t *testing.T) {
	body := `We need to migrate the database.

- [ ] Dump the old schema
- [x] Already done item
- [ ] Create the new cluster
* [ ] Switch the application over
`
	got := extractSubtasks(body, 5)
	want := []string{"Dump the old schema", "Create the new cluster", "Switch the application over"}
	if len(got) != len(want) {
		t.Fatalf("expected %d subtasks, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("subtask %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractSubtasksNumberedSteps(t *testing.T) {
	body := `The upgrade keeps failing.

## Steps

1. Stop the workers
2. Apply the migration
3. Restart everything

## Notes

1. This numbered item is outside the steps section
`
	got := extractSubtasks(body, 5)
	if len(got) != 3 {
		t.Fatalf("expected 3 subtasks, got %d: %v", len(got), got)
	}
	if got[0] != "Stop the workers" {
		t.Errorf("first subtask = %q", got[0])
	}
}

func TestExtractSubtasksCap(t *testing.T) {
	body := "- [ ] a\n- [ ] b\n- [ ] c\n- [ ] d\n"
	got := extractSubtasks(body, 2)
	if len(got) != 2 {
		t.Fatalf("cap not applied, got %d", len(got))
	}
}

func TestExtractSubtasksNone(t *testing.T) {
	if got := extractSubtasks("just prose, no lists", 5); len(got) != 0 {
		t.Fatalf("expected no subtasks, got %v", got)
	}
}

func TestExtractSubtasksDeduplicates(t *testing.T) {
	body := "- [ ] same thing\n- [ ] same thing\n"
	if got := extractSubtasks(body, 5); len(got) != 1 {
		t.Fatalf("expected 1 deduplicated subtask, got %v", got)
	}
}
