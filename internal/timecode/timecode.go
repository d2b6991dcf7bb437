// Package timecode parses user-supplied window markers into absolute offsets.
//
// A marker is either a plain number of seconds ("90", "12.5") or a
// colon-separated clock ("1:02:03") whose components carry right-to-left
// significance. The two forms are kept distinct through Value so a caller
// never has to guess which parse rule applied.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"aisubs/internal/services"
)

// maxSeconds is the largest offset, in whole seconds, a time.Duration holds.
const maxSeconds = int64(math.MaxInt64 / time.Second)

// Kind identifies how a Value was supplied.
type Kind int

const (
	// KindSeconds is a numeric second count.
	KindSeconds Kind = iota
	// KindClock is a colon-separated clock string.
	KindClock
)

// Value is a tagged timecode: either explicit seconds or an explicit clock string.
type Value struct {
	Kind    Kind
	Seconds float64
	Clock   string
}

// Seconds builds a numeric Value.
func Seconds(s float64) Value {
	return Value{Kind: KindSeconds, Seconds: s}
}

// Clock builds a clock-string Value.
func Clock(s string) Value {
	return Value{Kind: KindClock, Clock: s}
}

// ParseFlag classifies raw flag text. Input containing a colon is a clock;
// anything else must be a plain number.
func ParseFlag(raw string) (Value, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.Contains(trimmed, ":") {
		v := Clock(trimmed)
		if _, err := v.Offset(); err != nil {
			return Value{}, err
		}
		return v, nil
	}
	if !isDecimal(trimmed) {
		return Value{}, invalid(raw, "expected seconds or H:M:S")
	}
	secs, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Value{}, invalid(raw, "expected seconds or H:M:S")
	}
	v := Seconds(secs)
	if _, err := v.Offset(); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Offset resolves the value to an absolute offset at millisecond precision.
func (v Value) Offset() (time.Duration, error) {
	switch v.Kind {
	case KindSeconds:
		if math.IsNaN(v.Seconds) || math.IsInf(v.Seconds, 0) || v.Seconds < 0 {
			return 0, invalid(strconv.FormatFloat(v.Seconds, 'f', -1, 64), "seconds must be a non-negative number")
		}
		if v.Seconds > float64(maxSeconds) {
			return 0, invalid(strconv.FormatFloat(v.Seconds, 'f', -1, 64), "offset out of range")
		}
		return time.Duration(math.Round(v.Seconds*1000)) * time.Millisecond, nil
	case KindClock:
		secs, err := parseClock(v.Clock)
		if err != nil {
			return 0, err
		}
		return time.Duration(secs) * time.Second, nil
	default:
		return 0, invalid(v.String(), "unknown timecode kind")
	}
}

func (v Value) String() string {
	if v.Kind == KindClock {
		return v.Clock
	}
	return strconv.FormatFloat(v.Seconds, 'f', -1, 64)
}

// parseClock combines components as sum(component[i] * 60^i), counting from the right.
func parseClock(raw string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	var total int64
	var scale int64 = 1
	for i := len(parts) - 1; i >= 0; i-- {
		part := strings.TrimSpace(parts[i])
		if part == "" {
			return 0, invalid(raw, "empty component")
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return 0, invalid(raw, fmt.Sprintf("component %q is not a non-negative integer", part))
		}
		if n > 0 {
			if scale > maxSeconds || n > (maxSeconds-total)/scale {
				return 0, invalid(raw, "offset out of range")
			}
			total += n * scale
		}
		if scale <= maxSeconds {
			scale *= 60
		}
	}
	return total, nil
}

// isDecimal accepts digits with at most one decimal point, ruling out the
// sign, exponent, hex and special forms strconv.ParseFloat also takes.
func isDecimal(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func invalid(raw, reason string) error {
	return services.Wrap(services.ErrInvalidTimecode, "timecode", "parse", fmt.Sprintf("%q: %s", raw, reason), nil)
}

// Window is the half-open interval [Start, End) of source audio to process.
// When Bounded is false the window runs to the end of the audio.
type Window struct {
	Start   time.Duration
	End     time.Duration
	Bounded bool
}

// NewWindow resolves start and optional end markers into a Window.
func NewWindow(start Value, end *Value) (Window, error) {
	startOffset, err := start.Offset()
	if err != nil {
		return Window{}, err
	}
	w := Window{Start: startOffset}
	if end == nil {
		return w, nil
	}
	endOffset, err := end.Offset()
	if err != nil {
		return Window{}, err
	}
	if endOffset <= startOffset {
		return Window{}, services.Wrap(
			services.ErrInvalidWindow,
			"timecode",
			"window",
			fmt.Sprintf("end %s must be after start %s", endOffset, startOffset),
			nil,
		)
	}
	w.End = endOffset
	w.Bounded = true
	return w, nil
}

// Length returns the window duration, or zero when unbounded.
func (w Window) Length() time.Duration {
	if !w.Bounded {
		return 0
	}
	return w.End - w.Start
}

func (w Window) String() string {
	if !w.Bounded {
		return fmt.Sprintf("[%s, end)", w.Start)
	}
	return fmt.Sprintf("[%s, %s)", w.Start, w.End)
}
