package subtitles

import (
	"path/filepath"
	"strings"

	"aisubs/internal/language"
)

// TranscriptPath names the subtitle file for an audio source by replacing
// its extension with .srt.
func TranscriptPath(source string) string {
	return stem(source) + ".srt"
}

// TranslationPath names a translated subtitle file by inserting the primary
// subtag of lang before the .srt extension: talk.mp3 or talk.srt with
// "zh-Hans" becomes talk.zh.srt.
func TranslationPath(source, lang string) string {
	primary := language.PrimarySubtag(lang)
	if primary == "" {
		return TranscriptPath(source)
	}
	return stem(source) + "." + primary + ".srt"
}

func stem(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
