package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aisubs/internal/deps"
	"aisubs/internal/preflight"
	"aisubs/internal/testsupport"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("ffmpeg", statusError, "not available", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "ffmpeg:", "[ERROR] not available")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("OpenAI API", statusOK, "API reachable", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "ffmpeg", Command: "ffmpeg", Available: true, Path: "/usr/bin/ffmpeg"},
		{Name: "ffprobe", Command: "ffprobe", Available: false},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[OK] Ready (/usr/bin/ffmpeg)") {
		t.Fatalf("expected ready line first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("expected missing ffprobe, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] ffprobe") {
		t.Fatalf("expected missing summary, got %q", lines[2])
	}
}

func TestCheckLine(t *testing.T) {
	line := checkLine(preflight.Result{Name: "OpenAI API", Detail: "API key missing"}, false)
	if !strings.Contains(line, "[ERROR] API key missing") {
		t.Fatalf("unexpected failed check line %q", line)
	}
	line = checkLine(preflight.Result{Name: "OpenAI API", Passed: true, Detail: "API key configured"}, false)
	if !strings.Contains(line, "[OK] API key configured") {
		t.Fatalf("unexpected passed check line %q", line)
	}
}

func TestSectionHeaderRuleMatchesTitle(t *testing.T) {
	lines := renderSectionHeader("Service", false)
	if len(lines) != 2 || lines[0] != "== Service ==" || len(lines[1]) != len(lines[0]) {
		t.Fatalf("unexpected header %q", lines)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "FFprobe:")
	requireContains(t, out, "[OK] API key configured")
	requireContains(t, out, env.configPath)
	requireContains(t, out, env.cfg.HistoryPath())
}

func TestStatusCheckAPIReportsAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	env := setupCLITestEnv(t, testsupport.WithBaseURL(server.URL))
	out, _, err := runCLI(t, []string{"status", "--check-api"}, env.configPath)
	if err != nil {
		t.Fatalf("status --check-api: %v", err)
	}
	requireContains(t, out, "[ERROR] auth failed (invalid api key)")
}
