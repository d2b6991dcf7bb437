// Package history persists a record of every transcription and translation
// run in a small SQLite database under the state directory.
//
// Records are append-only. The CLI "history" command lists them newest first;
// pipelines record both successful and failed runs so a user can see which
// windows of a file have already been processed.
package history
