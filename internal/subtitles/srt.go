package subtitles

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"aisubs/internal/services"
)

// Entry is one timed subtitle. Start and End are offsets from the start of
// whichever timeline the entry belongs to; Start <= End.
type Entry struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Parse reads SRT text into entries in document order. Cue numbers are not
// retained; Compose renumbers by position. A cue whose end precedes its start
// is clamped so End equals Start.
func Parse(data []byte) ([]Entry, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		entries []Entry
		block   []string
		lineNo  int
		blockAt int
	)
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		entry, err := parseBlock(block)
		block = block[:0]
		if err != nil {
			return services.Wrap(services.ErrValidation, "subtitles", "parse", fmt.Sprintf("cue at line %d", blockAt), err)
		}
		entries = append(entries, entry)
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if len(block) == 0 {
			blockAt = lineNo
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseBlock(lines []string) (Entry, error) {
	timing := 0
	if !strings.Contains(lines[0], "-->") {
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
			return Entry{}, fmt.Errorf("expected cue number, got %q", lines[0])
		}
		timing = 1
	}
	if timing >= len(lines) || !strings.Contains(lines[timing], "-->") {
		return Entry{}, fmt.Errorf("missing timing line")
	}
	parts := strings.SplitN(lines[timing], "-->", 2)
	start, err := parseTimestamp(parts[0])
	if err != nil {
		return Entry{}, err
	}
	// Anything after the end timestamp (cue settings) is ignored.
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return Entry{}, fmt.Errorf("missing end timestamp")
	}
	end, err := parseTimestamp(endField[0])
	if err != nil {
		return Entry{}, err
	}
	if end < start {
		end = start
	}
	return Entry{Start: start, End: end, Text: strings.Join(lines[timing+1:], "\n")}, nil
}

// parseTimestamp reads HH:MM:SS,mmm. A period is accepted in place of the comma.
func parseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, fraction, ok := strings.Cut(value, ",")
	if !ok {
		fraction = "0"
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := parseMillis(fraction)
	if errH != nil || errM != nil || errS != nil || errMS != nil || hours < 0 || minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// parseMillis normalizes a 1-3 digit fraction to milliseconds.
func parseMillis(fraction string) (int, error) {
	if fraction == "" || len(fraction) > 3 {
		return 0, fmt.Errorf("invalid fraction %q", fraction)
	}
	n, err := strconv.Atoi(fraction)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid fraction %q", fraction)
	}
	for i := len(fraction); i < 3; i++ {
		n *= 10
	}
	return n, nil
}

// FormatTimestamp renders an offset as HH:MM:SS,mmm.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

// Compose renders entries as SRT, numbering cues 1..N in slice order.
func Compose(entries []Entry) []byte {
	var buf bytes.Buffer
	for i, entry := range entries {
		buf.WriteString(strconv.Itoa(i + 1))
		buf.WriteByte('\n')
		buf.WriteString(FormatTimestamp(entry.Start))
		buf.WriteString(" --> ")
		buf.WriteString(FormatTimestamp(entry.End))
		buf.WriteByte('\n')
		buf.WriteString(entry.Text)
		buf.WriteString("\n\n")
	}
	return buf.Bytes()
}
