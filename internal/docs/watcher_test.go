// SPDX-License-Identifier: MIT
package docs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReturnsOnCancelForMissingDir(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), "nope"))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, ix) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestWatchInvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "base.md", "initial content about caching\n")

	ix := NewIndex(dir)
	if docs, _ := ix.Documents(); len(docs) != 1 {
		t.Fatal("initial load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, ix) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "added.md"), []byte("new content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		docs, err := ix.Documents()
		if err != nil {
			t.Fatalf("Documents() failed: %v", err)
		}
		if len(docs) == 2 {
			cancel()
			<-done
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("index never picked up the new file")
}
