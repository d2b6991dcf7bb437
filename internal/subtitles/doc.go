// Package subtitles owns the SRT documents aisubs produces.
//
// It parses and composes SRT text, shifts chunk-relative entries onto the
// absolute timeline of the source recording, strips caption credits that
// speech models hallucinate during silence, and persists documents through
// Store. Store refuses writes whose time range collides with entries already
// on disk, renames any existing file to a timestamped backup before writing,
// and serializes writers to the same file with an advisory lock.
package subtitles
