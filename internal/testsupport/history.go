package testsupport

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"aisubs/internal/history"
)

// MustOpenHistory opens a history.Store in a temp directory and registers cleanup.
func MustOpenHistory(t testing.TB) *history.Store {
	t.Helper()

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Recorder is an in-memory history.Recorder.
type Recorder struct {
	mu   sync.Mutex
	Runs []history.Run
}

// Record appends run.
func (r *Recorder) Record(_ context.Context, run history.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Runs = append(r.Runs, run)
	return nil
}

// Last returns the most recent run, or false when none was recorded.
func (r *Recorder) Last() (history.Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Runs) == 0 {
		return history.Run{}, false
	}
	return r.Runs[len(r.Runs)-1], true
}

// MustOpenHistoryAt opens the history database at path and registers cleanup.
func MustOpenHistoryAt(t testing.TB, path string) *history.Store {
	t.Helper()

	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
