package subtitles

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"aisubs/internal/fileutil"
	"aisubs/internal/logging"
	"aisubs/internal/services"
	"aisubs/internal/timecode"
)

const backupTimestampLayout = "2006-01-02_15-04-05"

// Store reads and writes subtitle files with backup and overlap safeguards.
type Store struct {
	lockDir string
	now     func() time.Time
	logger  *slog.Logger
}

// NewStore constructs a Store. Lock files are kept under lockDir.
func NewStore(lockDir string, logger *slog.Logger) *Store {
	return &Store{
		lockDir: lockDir,
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "subtitle-store"),
	}
}

// WithClock overrides the clock used for backup names (for testing).
func (s *Store) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Load parses the subtitle file at path. A missing file is an empty document.
func (s *Store) Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Overlapping returns the existing entries that intersect window. The window
// is half-open, so an entry ending exactly at the window start, or starting
// exactly at a bounded window's end, does not intersect it.
func Overlapping(existing []Entry, window timecode.Window) []Entry {
	var hits []Entry
	for _, entry := range existing {
		if entry.End <= window.Start {
			continue
		}
		if window.Bounded && entry.Start >= window.End {
			continue
		}
		hits = append(hits, entry)
	}
	return hits
}

// CheckOverlap fails with services.ErrOverlapDetected when any existing entry
// intersects window.
func CheckOverlap(existing []Entry, window timecode.Window) error {
	hits := Overlapping(existing, window)
	if len(hits) == 0 {
		return nil
	}
	first := hits[0]
	return services.Wrap(
		services.ErrOverlapDetected,
		"subtitles",
		"overlap check",
		fmt.Sprintf("%d existing entries intersect %s, first %s --> %s", len(hits), window, FormatTimestamp(first.Start), FormatTimestamp(first.End)),
		nil,
	)
}

// Merge combines existing and fresh entries ordered by start time. Entries with
// equal starts keep existing-before-fresh order. Nothing is deduplicated.
func Merge(existing, fresh []Entry) []Entry {
	merged := make([]Entry, 0, len(existing)+len(fresh))
	merged = append(merged, existing...)
	merged = append(merged, fresh...)
	slices.SortStableFunc(merged, func(a, b Entry) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})
	return merged
}

// Write stores entries at path. An existing file is first renamed to a
// timestamped backup, whose path is returned. The rename and the write are
// two steps; a crash between them leaves the prior content in the backup and
// no file at path. The write itself never leaves a partial file.
func (s *Store) Write(path string, entries []Entry) (string, error) {
	var backup string
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("write subtitles: %s is a directory", path)
		}
		backup, err = s.backupPath(path)
		if err != nil {
			return "", err
		}
		if err := os.Rename(path, backup); err != nil {
			return "", fmt.Errorf("backup subtitles: %w", err)
		}
		s.logger.Info("existing subtitles backed up",
			logging.String("path", path),
			logging.String("backup", backup),
		)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat subtitles: %w", err)
	}

	if err := fileutil.WriteAtomic(path, Compose(entries), 0o644); err != nil {
		return backup, fmt.Errorf("write subtitles: %w", err)
	}
	s.logger.Info("subtitles written",
		logging.String("path", path),
		logging.Int("entries", len(entries)),
	)
	return backup, nil
}

// BackupPath names the backup for path taken at ts: talk.en.srt becomes
// talk.en.2024-05-01_13-04-05.srt.
func BackupPath(path string, ts time.Time) string {
	return stem(path) + "." + ts.Format(backupTimestampLayout) + filepath.Ext(path)
}

// backupPath picks an unused backup name, appending -1, -2, ... when several
// writes land in the same second.
func (s *Store) backupPath(path string) (string, error) {
	base := BackupPath(path, s.now())
	candidate := base
	for i := 1; i < 1000; i++ {
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		candidate = stem(base) + "-" + strconv.Itoa(i) + filepath.Ext(base)
	}
	return "", fmt.Errorf("backup subtitles: no free backup name for %s", path)
}

// Lock takes an exclusive advisory lock for the subtitle file at path. The
// lock is held by the caller from the overlap check until the write finishes,
// and fails immediately when another process holds it.
func (s *Store) Lock(path string) (func() error, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve subtitle path: %w", err)
	}
	if err := os.MkdirAll(s.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	sum := sha256.Sum256([]byte(abs))
	lockPath := filepath.Join(s.lockDir, hex.EncodeToString(sum[:8])+".lock")

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "subtitles", "lock", fmt.Sprintf("another aisubs run is writing %s", abs), nil)
	}
	s.logger.Debug("subtitle lock acquired", logging.String("path", abs), logging.String("lock", lockPath))
	return lock.Unlock, nil
}
