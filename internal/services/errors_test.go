package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"aisubs/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDispatchFailure, "transcribe", "dispatch", "chunk 2 failed", base)
	if !errors.Is(err, services.ErrDispatchFailure) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcribe", "dispatch", "chunk 2 failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrOverlapDetected, "", "", "", nil)
	if !errors.Is(err, services.ErrOverlapDetected) {
		t.Fatalf("expected overlap marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestFailureStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, services.StatusSucceeded},
		{"overlap", services.Wrap(services.ErrOverlapDetected, "store", "check", "", nil), services.StatusRejected},
		{"timecode", services.Wrap(services.ErrInvalidTimecode, "", "", "bad", nil), services.StatusRejected},
		{"window", services.Wrap(services.ErrInvalidWindow, "", "", "bad", nil), services.StatusRejected},
		{"missing", services.Wrap(services.ErrInputNotFound, "", "", "gone", nil), services.StatusRejected},
		{"dispatch", services.Wrap(services.ErrDispatchFailure, "", "", "", errors.New("http 500")), services.StatusFailed},
		{"canceled", fmt.Errorf("dispatch: %w", context.Canceled), services.StatusCanceled},
		{
			"unparseable response",
			services.Wrap(services.ErrDispatchFailure, "transcribe", "dispatch", "",
				services.Wrap(services.ErrExternalTool, "transcribe", "parse response", "chunk_000.mp3",
					services.Wrap(services.ErrValidation, "subtitles", "parse", "bad cue", nil))),
			services.StatusFailed,
		},
		{"tool failure over validation cause", services.Wrap(services.ErrExternalTool, "", "", "", services.Wrap(services.ErrValidation, "", "", "", nil)), services.StatusFailed},
		{"canceled dispatch", services.Wrap(services.ErrDispatchFailure, "", "", "", context.Canceled), services.StatusCanceled},
	}
	for _, tc := range tests {
		if got := services.FailureStatus(tc.err); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}
