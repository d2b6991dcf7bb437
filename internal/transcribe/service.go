package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"aisubs/internal/audio"
	"aisubs/internal/dispatch"
	"aisubs/internal/history"
	"aisubs/internal/language"
	"aisubs/internal/logging"
	"aisubs/internal/media/ffprobe"
	"aisubs/internal/preflight"
	"aisubs/internal/services"
	"aisubs/internal/subtitles"
	"aisubs/internal/timecode"
)

const stageName = "transcribe"

// Client is the speech-to-text capability. Both calls return SRT text whose
// timestamps are relative to the start of the uploaded audio.
type Client interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
	TranslateAudio(ctx context.Context, audio []byte, filename string) (string, error)
}

// Media is the local audio tooling the pipeline needs.
type Media interface {
	audio.Library
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
	ExtractWindow(ctx context.Context, source string, streamIndex int, window timecode.Window, dest string) error
}

// Request describes one transcription run.
type Request struct {
	Source   string
	Language string
	Start    timecode.Value
	End      *timecode.Value
	Jobs     int
	Segment  audio.Options
	// Translate asks the service for English output regardless of the
	// spoken language and writes <source>.en.srt.
	Translate bool
	DryRun    bool
}

// Result summarizes a completed run.
type Result struct {
	RunID          string
	OutputPath     string
	BackupPath     string
	Window         timecode.Window
	WindowDuration time.Duration
	Chunks         []audio.Chunk
	NewEntries     int
	TotalEntries   int
	Removed        int
	DryRun         bool
}

// Service runs the transcription pipeline.
type Service struct {
	media     Media
	client    Client
	store     *subtitles.Store
	recorder  history.Recorder
	logger    *slog.Logger
	tempRoot  string
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

// WithTempRoot places per-run work directories under root.
func WithTempRoot(root string) Option {
	return func(s *Service) {
		s.tempRoot = root
	}
}

// WithOutputCheck overrides the output directory preflight.
func WithOutputCheck(check func(outputPath string) error) Option {
	return func(s *Service) {
		if check != nil {
			s.checkDest = check
		}
	}
}

// NewService constructs a transcription service.
func NewService(media Media, client Client, store *subtitles.Store, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		media:     media,
		client:    client,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "transcriber"),
		checkDest: preflight.CheckOutputWritable,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// OutputPath returns the subtitle file a request writes to.
func OutputPath(req Request) string {
	if req.Translate {
		return subtitles.TranslationPath(req.Source, "en")
	}
	return subtitles.TranscriptPath(req.Source)
}

// Run executes the pipeline for req.
func (s *Service) Run(ctx context.Context, req Request) (result Result, err error) {
	runID := history.NewRunID()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)
	started := s.now()

	result = Result{RunID: runID, DryRun: req.DryRun, OutputPath: OutputPath(req)}
	defer func() {
		if req.DryRun {
			return
		}
		s.record(ctx, req, result, started, err)
	}()

	if err := s.checkSource(req.Source); err != nil {
		return result, err
	}
	window, err := timecode.NewWindow(req.Start, req.End)
	if err != nil {
		return result, err
	}
	result.Window = window

	logger.Info("transcription started",
		logging.String("source", req.Source),
		logging.String("output", result.OutputPath),
		logging.String("window", window.String()),
		logging.Bool("translate", req.Translate),
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

	existing, err := s.store.Load(result.OutputPath)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, stageName, "load existing subtitles", "", err)
	}
	if err := subtitles.CheckOverlap(existing, window); err != nil {
		return result, err
	}
	if err := s.checkDest(result.OutputPath); err != nil {
		return result, err
	}

	workDir, err := os.MkdirTemp(s.tempRoot, "aisubs-*")
	if err != nil {
		return result, fmt.Errorf("create work directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			logger.Debug("work directory cleanup failed", logging.Error(rmErr))
		}
	}()

	windowPath, err := s.extract(ctx, req, window, workDir)
	if err != nil {
		return result, err
	}

	segmenter := audio.NewSegmenter(s.media, req.Segment, s.logger)
	chunks, total, err := segmenter.Plan(ctx, windowPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, stageName, "segment", "", err)
	}
	result.Chunks = chunks
	result.WindowDuration = total
	if len(chunks) == 0 {
		logger.Info("window is empty; nothing to transcribe")
		return result, nil
	}
	if req.DryRun {
		return result, nil
	}

	chunks, err = segmenter.Materialize(ctx, windowPath, workDir, chunks)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, stageName, "export chunks", "", err)
	}
	result.Chunks = chunks

	segments, removed, err := s.transcribeChunks(ctx, req, chunks)
	if err != nil {
		return result, err
	}
	result.Removed = removed

	fresh := subtitles.Reconcile(window.Start, segments)
	merged := subtitles.Merge(existing, fresh)
	backup, err := s.store.Write(result.OutputPath, merged)
	result.BackupPath = backup
	if err != nil {
		return result, err
	}
	result.NewEntries = len(fresh)
	result.TotalEntries = len(merged)

	logger.Info("transcription complete",
		logging.String("output", result.OutputPath),
		logging.Int("chunk_count", len(chunks)),
		logging.Int("new_entries", result.NewEntries),
		logging.Int("total_entries", result.TotalEntries),
		logging.Int("hallucinations_removed", removed),
		logging.Duration("elapsed", s.now().Sub(started)),
	)
	return result, nil
}

func (s *Service) checkSource(source string) error {
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrInputNotFound, stageName, "stat source", source, nil)
		}
		return services.Wrap(services.ErrInputNotFound, stageName, "stat source", source, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrInputNotFound, stageName, "stat source", source+" is a directory", nil)
	}
	return nil
}

func (s *Service) extract(ctx context.Context, req Request, window timecode.Window, workDir string) (string, error) {
	logger := logging.WithContext(ctx, s.logger)
	probe, err := s.media.Probe(ctx, req.Source)
	if err != nil {
		return "", err
	}
	stream, ok := audio.SelectStream(probe, req.Language)
	if !ok {
		return "", services.Wrap(services.ErrValidation, stageName, "select audio stream", req.Source+" has no audio streams", nil)
	}
	logger.Debug("audio stream selected",
		logging.Int("stream_index", stream.Index),
		logging.String("codec", stream.CodecName),
		logging.String("stream_language", stream.Language()),
		logging.Int("audio_streams", probe.AudioStreamCount()),
	)

	windowPath := filepath.Join(workDir, "window.wav")
	if err := s.media.ExtractWindow(ctx, req.Source, stream.Index, window, windowPath); err != nil {
		return "", err
	}
	return windowPath, nil
}

func (s *Service) transcribeChunks(ctx context.Context, req Request, chunks []audio.Chunk) ([]subtitles.Segment, int, error) {
	dispatcher := dispatch.New(req.Jobs, s.logger)
	hint := language.PrimarySubtag(req.Language)

	type chunkResult struct {
		segment subtitles.Segment
		removed int
	}
	results, err := dispatch.Map(ctx, dispatcher, chunks, func(ctx context.Context, index int, chunk audio.Chunk) (chunkResult, error) {
		logger := logging.WithContext(ctx, s.logger)
		logger.Info("transcribing chunk",
			logging.Duration("chunk_offset", chunk.Offset),
			logging.Duration("chunk_duration", chunk.Duration),
		)
		data, err := chunk.Load()
		if err != nil {
			return chunkResult{}, fmt.Errorf("read chunk: %w", err)
		}
		var text string
		if req.Translate {
			text, err = s.client.TranslateAudio(ctx, data, chunk.Path)
		} else {
			text, err = s.client.Transcribe(ctx, data, chunk.Path, hint)
		}
		if err != nil {
			return chunkResult{}, services.Wrap(services.ErrExternalTool, stageName, "speech-to-text", filepath.Base(chunk.Path), err)
		}
		entries, err := subtitles.Parse([]byte(text))
		if err != nil {
			return chunkResult{}, services.Wrap(services.ErrExternalTool, stageName, "parse response", filepath.Base(chunk.Path), err)
		}
		cleaned, stats := subtitles.Clean(entries)
		if stats.LoopRuns > 0 {
			logging.WarnWithContext(logger, "repeated lines collapsed", "transcript_loop_collapsed",
				logging.Int("loops", stats.LoopRuns),
				logging.Int("dropped_entries", stats.LoopEntries),
				logging.String(logging.FieldImpact, "a stretch of this chunk may be missing speech"),
			)
		}
		logger.Debug("chunk transcribed",
			logging.Int("audio_bytes", len(data)),
			logging.Int("response_bytes", len(text)),
			logging.Int("entries", len(cleaned)),
		)
		return chunkResult{
			segment: subtitles.Segment{Duration: chunk.Duration, Entries: cleaned},
			removed: stats.RemovedEntries,
		}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	segments := make([]subtitles.Segment, len(results))
	removed := 0
	for i, r := range results {
		segments[i] = r.segment
		removed += r.removed
	}
	return segments, removed, nil
}

func (s *Service) record(ctx context.Context, req Request, result Result, started time.Time, runErr error) {
	status := services.FailureStatus(runErr)
	if status == services.StatusFailed {
		logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "transcription failed", "transcription_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "rerun with --verbose; check the API key and ffmpeg availability"),
		)
	}
	if s.recorder == nil {
		return
	}
	lang := req.Language
	if req.Translate {
		lang = "en"
	}
	run := history.Run{
		ID:         result.RunID,
		Kind:       history.KindTranscribe,
		SourcePath: absPath(req.Source),
		OutputPath: absPath(result.OutputPath),
		BackupPath: result.BackupPath,
		Language:   lang,
		Window:     result.Window.String(),
		Chunks:     len(result.Chunks),
		Entries:    result.NewEntries,
		Status:     status,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// Recording must survive a canceled run context.
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
