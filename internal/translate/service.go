package translate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aisubs/internal/dispatch"
	"aisubs/internal/history"
	"aisubs/internal/language"
	"aisubs/internal/logging"
	"aisubs/internal/preflight"
	"aisubs/internal/services"
	"aisubs/internal/subtitles"
	"aisubs/internal/timecode"
)

const (
	stageName = "translate"

	// DefaultLanguage is the translation target when none is given.
	DefaultLanguage = "zh-Hans"
	// DefaultBatchSize is the number of entries sent per request.
	DefaultBatchSize = 50
)

// Client translates SRT text with a chat model.
type Client interface {
	TranslateSubtitles(ctx context.Context, srtText, language, model string) (string, error)
}

// Request describes one translation run.
type Request struct {
	Input     string
	Language  string
	Model     string
	Jobs      int
	BatchSize int
	// Replace discards any existing translation instead of merging into it.
	// The previous file is still backed up.
	Replace bool
}

// Result summarizes a completed run.
type Result struct {
	RunID      string
	OutputPath string
	BackupPath string
	Batches    int
	Entries    int
	Mismatches int
}

// Service runs the translation pipeline.
type Service struct {
	client    Client
	store     *subtitles.Store
	recorder  history.Recorder
	logger    *slog.Logger
	checkDest func(outputPath string) error
	now       func() time.Time
}

// Option customizes the service.
type Option func(*Service)

// WithRecorder persists a history record for every run.
func WithRecorder(recorder history.Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// NewService constructs a translation service.
func NewService(client Client, store *subtitles.Store, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		client:    client,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "translator"),
		checkDest: preflight.CheckOutputWritable,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Batch splits entries into consecutive groups of at most size entries.
func Batch(entries []subtitles.Entry, size int) [][]subtitles.Entry {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]subtitles.Entry, 0, (len(entries)+size-1)/size)
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		batches = append(batches, entries[start:end])
	}
	return batches
}

// Span returns the half-open window covering every entry.
func Span(entries []subtitles.Entry) timecode.Window {
	if len(entries) == 0 {
		return timecode.Window{Bounded: true}
	}
	window := timecode.Window{Start: entries[0].Start, End: entries[0].End, Bounded: true}
	for _, entry := range entries[1:] {
		window.Start = min(window.Start, entry.Start)
		window.End = max(window.End, entry.End)
	}
	return window
}

// Run executes the pipeline for req.
func (s *Service) Run(ctx context.Context, req Request) (result Result, err error) {
	runID := history.NewRunID()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)
	started := s.now()

	if strings.TrimSpace(req.Language) == "" {
		req.Language = DefaultLanguage
	}
	result = Result{RunID: runID}
	defer func() {
		s.record(ctx, req, result, started, err)
	}()

	if err := checkInput(req.Input); err != nil {
		return result, err
	}
	if _, err := language.Parse(req.Language); err != nil {
		return result, services.Wrap(services.ErrValidation, stageName, "target language", "", err)
	}
	result.OutputPath = subtitles.TranslationPath(req.Input, req.Language)

	source, err := s.store.Load(req.Input)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, stageName, "parse input", "", err)
	}
	source = trimText(source)
	if len(source) == 0 {
		return result, services.Wrap(services.ErrValidation, stageName, "parse input", req.Input+" has no subtitle entries", nil)
	}

	logger.Info("translation started",
		logging.String("input", req.Input),
		logging.String("output", result.OutputPath),
		logging.String("language", req.Language),
		logging.String("language_name", language.DisplayName(req.Language)),
		logging.Int("entries", len(source)),
		logging.Bool("replace", req.Replace),
	)

	unlock, err := s.store.Lock(result.OutputPath)
	if err != nil {
		return result, err
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil {
			logging.WarnWithContext(logger, "subtitle lock release failed", "lock_release_failed",
				logging.Error(unlockErr),
				logging.String(logging.FieldErrorHint, "remove the stale lock file under the state directory"),
			)
		}
	}()

	var existing []subtitles.Entry
	if !req.Replace {
		existing, err = s.store.Load(result.OutputPath)
		if err != nil {
			return result, services.Wrap(services.ErrValidation, stageName, "load existing translation", "", err)
		}
		if err := subtitles.CheckOverlap(existing, Span(source)); err != nil {
			return result, err
		}
	}
	if err := s.checkDest(result.OutputPath); err != nil {
		return result, err
	}

	batches := Batch(source, req.BatchSize)
	result.Batches = len(batches)
	translated, mismatches, err := s.translateBatches(ctx, req, batches)
	if err != nil {
		return result, err
	}
	result.Mismatches = mismatches
	result.Entries = len(translated)

	final := translated
	if !req.Replace {
		final = subtitles.Merge(existing, translated)
	}
	backup, err := s.store.Write(result.OutputPath, final)
	result.BackupPath = backup
	if err != nil {
		return result, err
	}

	logger.Info("translation complete",
		logging.String("output", result.OutputPath),
		logging.Int("batch_count", result.Batches),
		logging.Int("entries", result.Entries),
		logging.Int("count_mismatches", mismatches),
		logging.Duration("elapsed", s.now().Sub(started)),
	)
	return result, nil
}

type batchResult struct {
	entries  []subtitles.Entry
	mismatch bool
}

func (s *Service) translateBatches(ctx context.Context, req Request, batches [][]subtitles.Entry) ([]subtitles.Entry, int, error) {
	dispatcher := dispatch.New(req.Jobs, s.logger)
	results, err := dispatch.Map(ctx, dispatcher, batches, func(ctx context.Context, index int, batch []subtitles.Entry) (batchResult, error) {
		logger := logging.WithContext(ctx, s.logger)
		logger.Info("translating batch",
			logging.Int("entries", len(batch)),
			logging.String("first_cue", subtitles.FormatTimestamp(batch[0].Start)),
		)
		text, err := s.client.TranslateSubtitles(ctx, string(subtitles.Compose(batch)), req.Language, req.Model)
		if err != nil {
			return batchResult{}, services.Wrap(services.ErrExternalTool, stageName, "chat translation", fmt.Sprintf("batch %d", index), err)
		}
		entries, err := subtitles.Parse([]byte(text))
		if err != nil {
			return batchResult{}, services.Wrap(services.ErrExternalTool, stageName, "parse response", fmt.Sprintf("batch %d", index), err)
		}
		entries = trimText(entries)
		mismatch := len(entries) != len(batch)
		if mismatch {
			logging.WarnWithContext(logger, "translated batch entry count differs from source", "translation_count_mismatch",
				logging.Int("source_entries", len(batch)),
				logging.Int("translated_entries", len(entries)),
				logging.String(logging.FieldErrorHint, "review the translated file around "+subtitles.FormatTimestamp(batch[0].Start)),
				logging.String(logging.FieldImpact, "translated cues may not line up one-to-one with the source"),
			)
		}
		logger.Debug("batch translated", logging.Int("entries", len(entries)))
		return batchResult{entries: entries, mismatch: mismatch}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	var (
		out        []subtitles.Entry
		mismatches int
	)
	for _, r := range results {
		out = append(out, r.entries...)
		if r.mismatch {
			mismatches++
		}
	}
	return out, mismatches, nil
}

func checkInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrInputNotFound, stageName, "stat input", path, nil)
		}
		return services.Wrap(services.ErrInputNotFound, stageName, "stat input", path, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrInputNotFound, stageName, "stat input", path+" is a directory", nil)
	}
	return nil
}

func trimText(entries []subtitles.Entry) []subtitles.Entry {
	out := make([]subtitles.Entry, len(entries))
	for i, entry := range entries {
		entry.Text = strings.TrimSpace(entry.Text)
		out[i] = entry
	}
	return out
}

func (s *Service) record(ctx context.Context, req Request, result Result, started time.Time, runErr error) {
	status := services.FailureStatus(runErr)
	if status == services.StatusFailed {
		logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "translation failed", "translation_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "rerun with --verbose; check the API key and model name"),
		)
	}
	if s.recorder == nil {
		return
	}
	run := history.Run{
		ID:         result.RunID,
		Kind:       history.KindTranslate,
		SourcePath: absPath(req.Input),
		OutputPath: absPath(result.OutputPath),
		BackupPath: result.BackupPath,
		Language:   req.Language,
		Chunks:     result.Batches,
		Entries:    result.Entries,
		Status:     status,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "run history not recorded", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will be missing from 'aisubs history'"),
		)
	}
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
