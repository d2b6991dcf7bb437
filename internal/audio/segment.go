package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"aisubs/internal/logging"
)

// Silence is a run of sub-threshold audio. A zero End marks a run that was
// still open when the input ended.
type Silence struct {
	Start time.Duration
	End   time.Duration
}

// Chunk is a contiguous piece of the extracted window. Offset is relative to
// the window start; Path is set once the chunk has been exported.
type Chunk struct {
	Index    int
	Offset   time.Duration
	Duration time.Duration
	Path     string
}

// End returns the chunk end relative to the window start.
func (c Chunk) End() time.Duration {
	return c.Offset + c.Duration
}

// Load reads the exported chunk file.
func (c Chunk) Load() ([]byte, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("chunk %d has not been exported", c.Index)
	}
	return os.ReadFile(c.Path)
}

// Options controls segmentation and chunk export.
type Options struct {
	SilenceThreshDB int
	MinSilence      time.Duration
	MinLength       time.Duration
	MaxLength       time.Duration
	Format          string
	Normalize       bool
}

// DefaultOptions returns the stock segmentation settings: -40 dB silences of
// at least 2 s, chunks of at least 10 min, no split below 15 min.
func DefaultOptions() Options {
	return Options{
		SilenceThreshDB: -40,
		MinSilence:      2 * time.Second,
		MinLength:       10 * time.Minute,
		MaxLength:       15 * time.Minute,
		Format:          "mp3",
	}
}

// Plan splits a window of length total into chunks. Windows shorter than
// maxLength, or without interior silence, become a single chunk. Otherwise the
// window is cut at the midpoint of every interior silence and the resulting
// pieces are accumulated in order until each reaches minLength; a shorter
// trailing remainder is kept as the final chunk. Chunks tile [0, total) with
// no gaps.
func Plan(total time.Duration, silences []Silence, minLength, maxLength time.Duration) []Chunk {
	if total <= 0 {
		return nil
	}
	if total < maxLength {
		return []Chunk{{Index: 0, Offset: 0, Duration: total}}
	}

	var chunks []Chunk
	var start time.Duration
	for _, cut := range cutPoints(total, silences) {
		if cut-start < minLength {
			continue
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Offset: start, Duration: cut - start})
		start = cut
	}
	if start < total {
		chunks = append(chunks, Chunk{Index: len(chunks), Offset: start, Duration: total - start})
	}
	return chunks
}

// cutPoints returns strictly increasing split positions inside (0, total).
// Silences touching either edge stay attached to the neighbouring speech.
func cutPoints(total time.Duration, silences []Silence) []time.Duration {
	cuts := make([]time.Duration, 0, len(silences))
	var prev time.Duration
	for _, s := range silences {
		start, end := s.Start, s.End
		if end <= 0 || end > total {
			end = total
		}
		if start <= 0 || end >= total || end <= start {
			continue
		}
		mid := (start + (end-start)/2).Truncate(time.Millisecond)
		if mid <= prev || mid >= total {
			continue
		}
		cuts = append(cuts, mid)
		prev = mid
	}
	return cuts
}

// Library is the audio capability the segmenter needs.
type Library interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
	DetectSilence(ctx context.Context, path string, threshDB int, minSilence time.Duration) ([]Silence, error)
	ExportChunk(ctx context.Context, source string, chunk Chunk, format string, normalize bool, dest string) error
}

// Segmenter plans and materializes chunks for an extracted window.
type Segmenter struct {
	lib    Library
	opts   Options
	logger *slog.Logger
}

// NewSegmenter constructs a Segmenter. Zero option fields take defaults.
func NewSegmenter(lib Library, opts Options, logger *slog.Logger) *Segmenter {
	defaults := DefaultOptions()
	if opts.MinSilence <= 0 {
		opts.MinSilence = defaults.MinSilence
	}
	if opts.MinLength <= 0 {
		opts.MinLength = defaults.MinLength
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = defaults.MaxLength
	}
	if opts.Format == "" {
		opts.Format = defaults.Format
	}
	return &Segmenter{lib: lib, opts: opts, logger: logging.NewComponentLogger(logger, "segmenter")}
}

// Plan measures the file at path and returns its chunk plan and duration.
// Silence detection only runs when the file is long enough to be split.
func (s *Segmenter) Plan(ctx context.Context, path string) ([]Chunk, time.Duration, error) {
	logger := logging.WithContext(ctx, s.logger)
	total, err := s.lib.Duration(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	if total <= 0 {
		logger.Info("window contains no audio", logging.String("path", path))
		return nil, 0, nil
	}

	var silences []Silence
	if total >= s.opts.MaxLength {
		silences, err = s.lib.DetectSilence(ctx, path, s.opts.SilenceThreshDB, s.opts.MinSilence)
		if err != nil {
			return nil, 0, err
		}
		logger.Debug("silence detection complete",
			logging.Int("silence_runs", len(silences)),
			logging.Int("threshold_db", s.opts.SilenceThreshDB),
		)
	}

	chunks := Plan(total, silences, s.opts.MinLength, s.opts.MaxLength)
	logger.Info("segmentation planned",
		logging.Duration("window_duration", total),
		logging.Int("chunk_count", len(chunks)),
	)
	return chunks, total, nil
}

// Materialize exports every planned chunk into workDir and returns the chunks
// with Path populated.
func (s *Segmenter) Materialize(ctx context.Context, source, workDir string, chunks []Chunk) ([]Chunk, error) {
	out := make([]Chunk, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dest := filepath.Join(workDir, fmt.Sprintf("chunk_%03d.%s", chunk.Index, s.opts.Format))
		if err := s.lib.ExportChunk(ctx, source, chunk, s.opts.Format, s.opts.Normalize, dest); err != nil {
			return nil, err
		}
		chunk.Path = dest
		out[i] = chunk
	}
	return out, nil
}
