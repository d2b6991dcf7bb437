package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTimecode = errors.New("invalid timecode")
	ErrInvalidWindow   = errors.New("invalid window")
	ErrInputNotFound   = errors.New("input not found")
	ErrOverlapDetected = errors.New("overlap detected")
	ErrDispatchFailure = errors.New("dispatch failure")
	ErrExternalTool    = errors.New("external tool error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
)

// Run statuses recorded for a finished invocation.
const (
	StatusSucceeded = "succeeded"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a pipeline error to the status persisted in run history.
// Rejections are errors raised before any external work was attempted; a
// dispatch or tool failure is failed even when its cause carries a
// rejection marker.
func FailureStatus(err error) string {
	switch {
	case err == nil:
		return StatusSucceeded
	case errors.Is(err, context.Canceled):
		return StatusCanceled
	case errors.Is(err, ErrDispatchFailure),
		errors.Is(err, ErrExternalTool):
		return StatusFailed
	case errors.Is(err, ErrOverlapDetected),
		errors.Is(err, ErrInvalidTimecode),
		errors.Is(err, ErrInvalidWindow),
		errors.Is(err, ErrInputNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration):
		return StatusRejected
	default:
		return StatusFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
