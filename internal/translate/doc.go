// Package translate produces a translated copy of an SRT file.
//
// Entries are sent to a chat model in fixed-size batches with bounded
// concurrency and reassembled in batch order. The result lands next to the
// input as <stem>.<language>.srt, merged with any translation already there
// unless Replace is set.
package translate
