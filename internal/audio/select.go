package audio

import (
	"aisubs/internal/language"
	"aisubs/internal/media/ffprobe"
)

// SelectStream picks the audio stream to transcribe from a probed container.
// A stream tagged with the hinted language wins, then the default-flagged
// stream, then the first audio stream. ok is false when there is no audio.
func SelectStream(result ffprobe.Result, languageHint string) (ffprobe.Stream, bool) {
	streams := result.AudioStreams()
	if len(streams) == 0 {
		return ffprobe.Stream{}, false
	}
	if languageHint != "" {
		for _, stream := range streams {
			if language.Matches(stream.Language(), languageHint) {
				return stream, true
			}
		}
	}
	for _, stream := range streams {
		if stream.IsDefault() {
			return stream, true
		}
	}
	return streams[0], true
}
