// Package audio prepares source recordings for transcription.
//
// FFmpeg is the audio library: it extracts the requested window as mono
// 16 kHz PCM, reports silence runs, and re-encodes chunk files for upload.
// Segmenter turns a window's duration and its silence runs into an ordered
// chunk plan whose pieces tile the window exactly. Cuts only fall in the
// middle of silences, so speech is never split.
package audio
