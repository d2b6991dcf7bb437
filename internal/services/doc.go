// Package services defines shared utilities consumed by the transcription and
// translation pipelines and their external integrations.
//
// Key responsibilities:
//   - Sentinel error markers (invalid timecode, overlap, dispatch failure, ...)
//     and Wrap, which attaches stage/operation context without losing errors.Is.
//   - FailureStatus, mapping pipeline errors onto run-history statuses.
//   - Context helpers carrying the run ID, stage, and chunk index so loggers can
//     tag every line without threading extra parameters.
package services
