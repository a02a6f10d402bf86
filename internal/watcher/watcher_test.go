package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T) (string, chan []byte) {
	t.Helper()
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "auth.json")
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"initial"}`), 0o600); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}

	changes := make(chan []byte, 4)
	w, err := NewWatcher(tokenFile, func(data []byte) { changes <- data })
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { _ = w.Stop() })
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	return tokenFile, changes
}

func waitForChange(t *testing.T, changes <-chan []byte) []byte {
	t.Helper()
	select {
	case data := <-changes:
		return data
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
		return nil
	}
}

func expectNoChange(t *testing.T, changes <-chan []byte, wait time.Duration) {
	t.Helper()
	select {
	case data := <-changes:
		t.Fatalf("unexpected change notification: %s", data)
	case <-time.After(wait):
	}
}

func TestWatcherFiresOnContentChange(t *testing.T) {
	t.Parallel()
	tokenFile, changes := newTestWatcher(t)

	want := `{"access_token":"rotated"}`
	if err := os.WriteFile(tokenFile, []byte(want), 0o600); err != nil {
		t.Fatalf("failed to rewrite token file: %v", err)
	}

	if got := string(waitForChange(t, changes)); got != want {
		t.Errorf("onChange received %q, want %q", got, want)
	}
}

func TestWatcherSkipsUnchangedContent(t *testing.T) {
	t.Parallel()
	tokenFile, changes := newTestWatcher(t)

	// Rewriting identical bytes must not trigger a reload.
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"initial"}`), 0o600); err != nil {
		t.Fatalf("failed to rewrite token file: %v", err)
	}
	expectNoChange(t, changes, 500*time.Millisecond)

	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"fresh"}`), 0o600); err != nil {
		t.Fatalf("failed to rewrite token file: %v", err)
	}
	if got := string(waitForChange(t, changes)); got != `{"access_token":"fresh"}` {
		t.Errorf("onChange received %q after real change", got)
	}
}

func TestWatcherHandlesAtomicReplace(t *testing.T) {
	t.Parallel()
	tokenFile, changes := newTestWatcher(t)

	want := `{"access_token":"replaced"}`
	tmp := tokenFile + ".tmp"
	if err := os.WriteFile(tmp, []byte(want), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := os.Rename(tmp, tokenFile); err != nil {
		t.Fatalf("failed to rename temp file: %v", err)
	}

	if got := string(waitForChange(t, changes)); got != want {
		t.Errorf("onChange received %q, want %q", got, want)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()
	tokenFile, changes := newTestWatcher(t)

	sibling := filepath.Join(filepath.Dir(tokenFile), "notes.txt")
	if err := os.WriteFile(sibling, []byte("unrelated"), 0o600); err != nil {
		t.Fatalf("failed to write sibling file: %v", err)
	}
	expectNoChange(t, changes, 500*time.Millisecond)
}

func TestWatcherIgnoresDeletion(t *testing.T) {
	t.Parallel()
	tokenFile, changes := newTestWatcher(t)

	if err := os.Remove(tokenFile); err != nil {
		t.Fatalf("failed to remove token file: %v", err)
	}
	expectNoChange(t, changes, 500*time.Millisecond)

	// A file recreated after deletion is picked up again.
	want := `{"access_token":"recreated"}`
	if err := os.WriteFile(tokenFile, []byte(want), 0o600); err != nil {
		t.Fatalf("failed to recreate token file: %v", err)
	}
	if got := string(waitForChange(t, changes)); got != want {
		t.Errorf("onChange received %q, want %q", got, want)
	}
}
