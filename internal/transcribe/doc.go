// Package transcribe turns a window of an audio or video file into SRT
// subtitles.
//
// Service.Run drives one invocation end to end. Every rejection (missing
// input, bad timecodes, overlap with existing subtitles, unwritable output)
// happens before any audio is extracted or any request leaves the machine.
// The extracted window is split into silence-aligned chunks, the chunks are
// sent to the speech-to-text service with bounded concurrency, and the
// per-chunk results are shifted onto the source timeline and merged into
// the existing subtitle file behind a timestamped backup.
package transcribe
