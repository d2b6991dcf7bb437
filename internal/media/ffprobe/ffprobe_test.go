package ffprobe

import (
	"math"
	"testing"
	"time"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2, "tags": {"language": "eng"}, "disposition": {"default": 0}},
    {"index": 2, "codec_type": "audio", "codec_name": "ac3", "channels": 6, "tags": {"LANGUAGE": "JPN"}, "disposition": {"default": 1}}
  ],
  "format": {"duration": "1234.5678", "format_name": "matroska,webm"}
}`

func TestParseAndHelpers(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	streams := result.AudioStreams()
	if streams[0].Language() != "eng" || streams[1].Language() != "jpn" {
		t.Fatalf("unexpected languages: %q %q", streams[0].Language(), streams[1].Language())
	}
	if streams[0].IsDefault() || !streams[1].IsDefault() {
		t.Fatal("unexpected default disposition")
	}
	if got := result.Duration(); got != 1234568*time.Millisecond {
		t.Fatalf("unexpected duration: %s", got)
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio", Duration: "61.25"}},
	}
	if got := result.Duration(); got != 61250*time.Millisecond {
		t.Fatalf("unexpected duration: %s", got)
	}
}

func TestDurationHandlesInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN, got %v", result.DurationSeconds())
	}
	if result.Duration() != 0 {
		t.Fatalf("expected zero duration, got %s", result.Duration())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
