// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe and returns a Result; helpers on Result expose
// audio streams and the container duration that the segmenter needs.
package ffprobe
