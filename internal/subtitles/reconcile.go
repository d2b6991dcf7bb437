package subtitles

import "time"

// Segment pairs the entries transcribed from one chunk with that chunk's
// length. Entry times are relative to the chunk start.
type Segment struct {
	Duration time.Duration
	Entries  []Entry
}

// Reconcile moves segment-relative entries onto the absolute timeline. The
// running offset starts at windowStart and advances by each segment's
// duration, so segment i is shifted by windowStart plus the durations of the
// segments before it. Segments must be supplied in chunk order.
func Reconcile(windowStart time.Duration, segments []Segment) []Entry {
	total := 0
	for _, segment := range segments {
		total += len(segment.Entries)
	}
	out := make([]Entry, 0, total)
	offset := windowStart
	for _, segment := range segments {
		for _, entry := range segment.Entries {
			out = append(out, Entry{
				Start: entry.Start + offset,
				End:   entry.End + offset,
				Text:  entry.Text,
			})
		}
		offset += segment.Duration
	}
	return out
}
