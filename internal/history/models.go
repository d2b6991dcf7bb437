package history

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies which pipeline produced a run.
type Kind string

const (
	KindTranscribe Kind = "transcribe"
	KindTranslate  Kind = "translate"
)

// Run is one persisted pipeline execution.
type Run struct {
	ID         string
	Kind       Kind
	SourcePath string
	OutputPath string
	BackupPath string
	Language   string
	Window     string
	Chunks     int
	Entries    int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns how long the run took.
func (r Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewRunID returns a fresh identifier for correlating logs with history.
func NewRunID() string {
	return uuid.NewString()
}
