package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// bibliographic ISO 639-2/B codes that container muxers still emit.
var bibliographic = map[string]string{
	"fre": "fra",
	"ger": "deu",
	"chi": "zho",
	"dut": "nld",
	"cze": "ces",
	"gre": "ell",
	"per": "fas",
	"rum": "ron",
	"slo": "slk",
	"wel": "cym",
	"arm": "hye",
	"baq": "eus",
	"ice": "isl",
	"mac": "mkd",
	"may": "msa",
	"alb": "sqi",
	"bur": "mya",
	"geo": "kat",
	"mao": "mri",
	"tib": "bod",
}

// PrimarySubtag returns the first segment of a language code, split on '-'
// or '_'. It is used to build translated subtitle file names ("zh-Hans" -> "zh").
func PrimarySubtag(code string) string {
	code = strings.TrimSpace(code)
	if idx := strings.IndexAny(code, "-_"); idx >= 0 {
		code = code[:idx]
	}
	return code
}

// Parse validates a language code and returns its canonical tag.
func Parse(code string) (language.Tag, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return language.Und, fmt.Errorf("language code is empty")
	}
	normalized := strings.ReplaceAll(trimmed, "_", "-")
	if mapped, ok := bibliographic[strings.ToLower(normalized)]; ok {
		normalized = mapped
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return tag, nil
}

// Matches reports whether two codes share a base language. Unparseable or
// undetermined codes never match.
func Matches(a, b string) bool {
	tagA, errA := Parse(a)
	tagB, errB := Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	baseA, confA := tagA.Base()
	baseB, confB := tagB.Base()
	if confA == language.No || confB == language.No {
		return false
	}
	if baseA.String() == "und" || baseB.String() == "und" {
		return false
	}
	return baseA == baseB
}

// DisplayName returns the English name for a code ("zh-Hans" -> "Simplified
// Chinese"). Unrecognized input is returned as given.
func DisplayName(code string) string {
	tag, err := Parse(code)
	if err != nil {
		return strings.TrimSpace(code)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.TrimSpace(code)
}
