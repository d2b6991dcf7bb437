package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const sampleSRT = "1\n00:00:00,000 --> 00:00:01,500\nhello\n\n"

func TestTranscribeSendsMultipartForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("response_format"); got != "srt" {
			t.Errorf("response_format = %q", got)
		}
		if got := r.FormValue("language"); got != "ja" {
			t.Errorf("language = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "audio-bytes" || header.Filename != "chunk_000.mp3" {
			t.Errorf("unexpected upload %q (%s)", data, header.Filename)
		}
		_, _ = io.WriteString(w, sampleSRT)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL})
	got, err := client.Transcribe(context.Background(), []byte("audio-bytes"), "/tmp/work/chunk_000.mp3", "ja")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if got != sampleSRT {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestTranscribeOmitsEmptyLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if _, ok := r.MultipartForm.Value["language"]; ok {
			t.Error("language field should be omitted")
		}
		_, _ = io.WriteString(w, sampleSRT)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL})
	if _, err := client.Transcribe(context.Background(), []byte("a"), "a.mp3", ""); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
}

func TestTranslateAudioUsesTranslationsEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/translations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, sampleSRT)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL})
	if _, err := client.TranslateAudio(context.Background(), []byte("a"), "a.mp3"); err != nil {
		t.Fatalf("TranslateAudio returned error: %v", err)
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, sampleSRT)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "secret", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if _, err := client.Transcribe(context.Background(), []byte("a"), "a.mp3", ""); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if len(slept) != 2 || slept[0] != 2*time.Second {
		t.Fatalf("unexpected sleeps %v", slept)
	}
}

func TestTranscribeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	_, err := client.Transcribe(context.Background(), []byte("a"), "a.mp3", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 in error chain, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Transcribe(context.Background(), []byte("a"), "a.mp3", ""); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestTranslateSubtitlesSendsPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "custom-model" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[0].Content, "Translate user's input into zh-Hans.") {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		if req.Messages[1].Content != sampleSRT {
			t.Errorf("user content = %q", req.Messages[1].Content)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": "```srt\n" + sampleSRT + "```"}},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL})
	got, err := client.TranslateSubtitles(context.Background(), sampleSRT, "zh-Hans", "custom-model")
	if err != nil {
		t.Fatalf("TranslateSubtitles returned error: %v", err)
	}
	if got != strings.TrimSpace(sampleSRT) {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestTranslateSubtitlesRetriesEmptyContent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := ""
		if calls.Add(1) > 1 {
			content = sampleSRT
		}
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if _, err := client.TranslateSubtitles(context.Background(), sampleSRT, "fr", ""); err != nil {
		t.Fatalf("TranslateSubtitles returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/models" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}

func TestBackoffDelayCaps(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 3*time.Second))
	cases := map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 3 * time.Second, 6: 3 * time.Second}
	for attempt, want := range cases {
		if got := client.backoffDelay(attempt); got != want {
			t.Errorf("backoffDelay(%d) = %s, want %s", attempt, got, want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("5"); !ok || d != 5*time.Second {
		t.Fatalf("parseRetryAfter(5) = %s, %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative value should be rejected")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("garbage should be rejected")
	}
}
