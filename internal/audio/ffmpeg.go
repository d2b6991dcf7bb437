package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"aisubs/internal/media/ffprobe"
	"aisubs/internal/services"
	"aisubs/internal/timecode"
)

// CommandRunner executes a binary and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// FFmpeg wraps the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegBinary  string
	ffprobeBinary string
	run           CommandRunner
	probe         ProbeFunc
}

// NewFFmpeg constructs an FFmpeg adapter. Empty binary names fall back to
// the tools on PATH.
func NewFFmpeg(ffmpegBinary, ffprobeBinary string) *FFmpeg {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &FFmpeg{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		run:           runCombined,
		probe:         ffprobe.Inspect,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (f *FFmpeg) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		f.run = runner
	}
}

// WithProbe sets a custom probe function (for testing).
func (f *FFmpeg) WithProbe(probe ProbeFunc) {
	if probe != nil {
		f.probe = probe
	}
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Probe inspects a media file with ffprobe.
func (f *FFmpeg) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	result, err := f.probe(ctx, f.ffprobeBinary, path)
	if err != nil {
		return ffprobe.Result{}, services.Wrap(services.ErrExternalTool, "audio", "probe", "ffprobe failed", err)
	}
	return result, nil
}

// Duration probes a file and returns its length.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	result, err := f.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return result.Duration(), nil
}

// ExtractWindow decodes the window of source into a mono 16 kHz PCM WAV at
// dest. streamIndex selects a container stream; a negative index takes the
// first audio stream.
func (f *FFmpeg) ExtractWindow(ctx context.Context, source string, streamIndex int, window timecode.Window, dest string) error {
	mapping := "0:a:0"
	if streamIndex >= 0 {
		mapping = fmt.Sprintf("0:%d", streamIndex)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(window.Start),
	}
	if window.Bounded {
		args = append(args, "-t", formatSeconds(window.Length()))
	}
	args = append(args,
		"-i", source,
		"-map", mapping,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	)
	if output, err := f.run(ctx, f.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "extract window", strings.TrimSpace(string(output)), err)
	}
	return nil
}

// DetectSilence reports silence runs quieter than threshDB lasting at least
// minSilence. A silence still open at end of input is returned with a zero
// End; callers close it at the known duration.
func (f *FFmpeg) DetectSilence(ctx context.Context, path string, threshDB int, minSilence time.Duration) ([]Silence, error) {
	args := []string{
		"-hide_banner",
		"-nostats",
		"-i", path,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%.2f", threshDB, minSilence.Seconds()),
		"-f", "null",
		"-",
	}
	output, err := f.run(ctx, f.ffmpegBinary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "audio", "detect silence", lastLine(output), err)
	}
	return ParseSilenceOutput(string(output)), nil
}

// ExportChunk re-encodes the chunk's range of source into format at dest.
// When normalize is set a loudness normalization filter is applied.
func (f *FFmpeg) ExportChunk(ctx context.Context, source string, chunk Chunk, format string, normalize bool, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(chunk.Offset),
		"-t", formatSeconds(chunk.Duration),
		"-i", source,
		"-ac", "1",
		"-ar", "16000",
	}
	if normalize {
		args = append(args, "-af", "loudnorm=I=-16:TP=-1.5:LRA=11")
	}
	args = append(args, encoderArgs(format)...)
	args = append(args, dest)
	if output, err := f.run(ctx, f.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "export chunk", strings.TrimSpace(string(output)), err)
	}
	return nil
}

func encoderArgs(format string) []string {
	switch strings.ToLower(format) {
	case "ogg":
		return []string{"-c:a", "libvorbis", "-q:a", "2"}
	case "flac":
		return []string{"-c:a", "flac"}
	case "wav":
		return []string{"-c:a", "pcm_s16le"}
	case "m4a":
		return []string{"-c:a", "aac", "-b:a", "64k"}
	default:
		return []string{"-c:a", "libmp3lame", "-b:a", "64k"}
	}
}

// formatSeconds renders a duration for -ss/-t with millisecond precision.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Milliseconds())/1000, 'f', 3, 64)
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// ParseSilenceOutput extracts silence runs from silencedetect output:
//
//	[silencedetect @ 0x...] silence_start: 42.123
//	[silencedetect @ 0x...] silence_end: 43.456 | silence_duration: 1.333
func ParseSilenceOutput(output string) []Silence {
	var silences []Silence
	var current Silence
	open := false

	for _, line := range strings.Split(output, "\n") {
		if matches := silenceStartRe.FindStringSubmatch(line); matches != nil {
			if seconds, err := strconv.ParseFloat(matches[1], 64); err == nil {
				current = Silence{Start: secondsToDuration(seconds)}
				open = true
			}
		}
		if matches := silenceEndRe.FindStringSubmatch(line); matches != nil && open {
			if seconds, err := strconv.ParseFloat(matches[1], 64); err == nil {
				current.End = secondsToDuration(seconds)
				silences = append(silences, current)
				open = false
			}
		}
	}
	if open {
		silences = append(silences, current)
	}
	return silences
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}

func lastLine(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if idx := strings.LastIndexByte(trimmed, '\n'); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
