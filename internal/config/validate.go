package config

import (
	"errors"
	"fmt"
)

var supportedChunkFormats = map[string]struct{}{
	"mp3":  {},
	"ogg":  {},
	"flac": {},
	"wav":  {},
	"m4a":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateTranscribe(); err != nil {
		return err
	}
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	return ensurePositiveMap(map[string]int{
		"openai.timeout_seconds": c.OpenAI.TimeoutSeconds,
		"openai.retry_attempts":  c.OpenAI.RetryAttempts,
	})
}

func (c *Config) validateTranscribe() error {
	if err := ensurePositiveMap(map[string]int{
		"transcribe.jobs":                c.Transcribe.Jobs,
		"transcribe.min_silence_ms":      c.Transcribe.MinSilenceMillis,
		"transcribe.min_segment_seconds": c.Transcribe.MinSegmentSeconds,
		"transcribe.max_segment_seconds": c.Transcribe.MaxSegmentSeconds,
	}); err != nil {
		return err
	}
	if c.Transcribe.MinSegmentSeconds > c.Transcribe.MaxSegmentSeconds {
		return errors.New("transcribe.min_segment_seconds must not exceed transcribe.max_segment_seconds")
	}
	if c.Transcribe.SilenceThreshDB > 0 {
		return errors.New("transcribe.silence_thresh_db must be <= 0 (dBFS)")
	}
	if _, ok := supportedChunkFormats[c.Transcribe.ChunkFormat]; !ok {
		return fmt.Errorf("transcribe.chunk_format: unsupported value %q", c.Transcribe.ChunkFormat)
	}
	return nil
}

func (c *Config) validateTranslate() error {
	return ensurePositiveMap(map[string]int{
		"translate.batch_size": c.Translate.BatchSize,
		"translate.jobs":       c.Translate.Jobs,
	})
}

func (c *Config) validateWatch() error {
	if len(c.Watch.Extensions) == 0 {
		return errors.New("watch.extensions must include at least one extension")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
