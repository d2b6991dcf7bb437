// Package openai talks to an OpenAI-compatible API for speech-to-text and
// subtitle translation.
//
// Transcribe and TranslateAudio upload an audio chunk to the audio
// transcription and translation endpoints and return SRT text.
// TranslateSubtitles sends a batch of SRT cues through a chat completion and
// returns the translated SRT. Retryable failures (408, 429, 5xx, network
// timeouts) are retried here with exponential backoff that honours
// Retry-After; callers above this package treat any returned error as final.
package openai
