package subtitles

import (
	"regexp"
	"strings"

	"aisubs/internal/textutil"
)

// Speech models trained on captioned video tend to emit caption credits when
// fed silence or music.
var hallucinationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)subtitles? by`),
	regexp.MustCompile(`(?i)captions? by`),
	regexp.MustCompile(`(?i)amara\.org`),
	regexp.MustCompile(`(?i)transcribed by`),
	regexp.MustCompile(`(?i)http(s)?://`),
	regexp.MustCompile(`(?i)\bwww\.`),
}

const (
	// repeatLoopMin is the shortest run of near-identical consecutive entries
	// treated as a decoding loop rather than genuine repetition.
	repeatLoopMin    = 3
	repeatSimilarity = 0.9
)

// CleanStats reports the effects of entry cleanup.
type CleanStats struct {
	RemovedEntries int
	LoopRuns       int
	LoopEntries    int
}

// Clean trims entry text and drops entries that are empty or consist of a
// caption credit. A run of repeatLoopMin or more near-identical consecutive
// entries is collapsed into its first entry, stretched to the end of the run.
func Clean(entries []Entry) ([]Entry, CleanStats) {
	kept := make([]Entry, 0, len(entries))
	var stats CleanStats
	for _, entry := range entries {
		entry.Text = strings.TrimSpace(entry.Text)
		if entry.Text == "" || isHallucination(entry.Text) {
			stats.RemovedEntries++
			continue
		}
		kept = append(kept, entry)
	}
	return collapseLoops(kept, &stats), stats
}

func collapseLoops(entries []Entry, stats *CleanStats) []Entry {
	out := make([]Entry, 0, len(entries))
	for i := 0; i < len(entries); {
		head := textutil.NewFingerprint(entries[i].Text)
		j := i + 1
		if head != nil {
			for j < len(entries) && textutil.NearDuplicate(head, textutil.NewFingerprint(entries[j].Text), repeatSimilarity) {
				j++
			}
		}
		if run := j - i; run >= repeatLoopMin {
			collapsed := entries[i]
			if end := entries[j-1].End; end > collapsed.End {
				collapsed.End = end
			}
			out = append(out, collapsed)
			stats.LoopRuns++
			stats.LoopEntries += run - 1
			stats.RemovedEntries += run - 1
		} else {
			out = append(out, entries[i:j]...)
		}
		i = j
	}
	return out
}

func isHallucination(text string) bool {
	payload := strings.Join(strings.Fields(text), " ")
	for _, pattern := range hallucinationPatterns {
		if pattern.MatchString(payload) {
			return true
		}
	}
	return false
}
