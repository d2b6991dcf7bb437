package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"aisubs/internal/logging"
)

func TestMatches(t *testing.T) {
	w := New(t.TempDir(), []string{"mp3", ".WAV", " "}, 0, nil, logging.NewNop())
	cases := map[string]bool{
		"a.mp3":     true,
		"a.MP3":     true,
		"b.wav":     true,
		"c.srt":     false,
		"no-ext":    false,
		"dir/x.mp3": true,
	}
	for path, want := range cases {
		if got := w.Matches(path); got != want {
			t.Errorf("Matches(%q) = %v, want %v", path, got, want)
		}
	}
	if !New(t.TempDir(), nil, 0, nil, nil).Matches("anything.txt") {
		t.Fatal("empty extension list should match everything")
	}
}

func TestSettledWaitsForQuietPeriod(t *testing.T) {
	w := New(t.TempDir(), []string{".mp3"}, time.Second, nil, logging.NewNop())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	w.observe(fsnotify.Event{Name: "/in/b.mp3", Op: fsnotify.Create}, base)
	w.observe(fsnotify.Event{Name: "/in/a.mp3", Op: fsnotify.Create}, base)
	w.observe(fsnotify.Event{Name: "/in/a.mp3", Op: fsnotify.Write}, base.Add(800*time.Millisecond))
	w.observe(fsnotify.Event{Name: "/in/skip.srt", Op: fsnotify.Create}, base)

	if got := w.settled(base.Add(500 * time.Millisecond)); len(got) != 0 {
		t.Fatalf("nothing should be settled yet, got %v", got)
	}
	if got := w.settled(base.Add(time.Second)); len(got) != 1 || got[0] != "/in/b.mp3" {
		t.Fatalf("expected only b.mp3 settled, got %v", got)
	}
	if got := w.settled(base.Add(2 * time.Second)); len(got) != 1 || got[0] != "/in/a.mp3" {
		t.Fatalf("expected a.mp3 settled after its last write, got %v", got)
	}
}

func TestRemoveDropsPending(t *testing.T) {
	w := New(t.TempDir(), nil, time.Second, nil, logging.NewNop())
	now := time.Now()
	w.observe(fsnotify.Event{Name: "/in/a.mp3", Op: fsnotify.Create}, now)
	w.observe(fsnotify.Event{Name: "/in/a.mp3", Op: fsnotify.Remove}, now)
	if got := w.settled(now.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("removed file should not settle, got %v", got)
	}
}

func TestRunHandlesNewFileOnce(t *testing.T) {
	dir := t.TempDir()
	var (
		mu    sync.Mutex
		calls []string
	)
	handled := make(chan struct{}, 4)
	w := New(dir, []string{".mp3"}, 50*time.Millisecond, func(_ context.Context, path string) error {
		mu.Lock()
		calls = append(calls, path)
		mu.Unlock()
		handled <- struct{}{}
		return nil
	}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	target := filepath.Join(dir, "episode.mp3")
	deadline := time.After(5 * time.Second)
	// The watch is registered asynchronously; keep touching the file until
	// the handler fires.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-handled:
			break wait
		case <-ticker.C:
			if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			mu.Lock()
			started := len(calls) > 0
			mu.Unlock()
			if !started {
				if err := os.WriteFile(target, []byte("audio"), 0o644); err != nil {
					t.Fatalf("write: %v", err)
				}
			}
		case <-deadline:
			t.Fatal("handler was not called")
		}
	}

	// Further writes to a processed file are ignored.
	if err := os.WriteFile(target, []byte("more audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0] != target {
		t.Fatalf("expected a single call for %s, got %v", target, calls)
	}
}
