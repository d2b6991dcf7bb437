package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenAI()
	c.normalizeTranscribe()
	c.normalizeTranslate()
	c.normalizeLogging()
	c.normalizeWatch()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)
	if value, ok := os.LookupEnv("OPENAI_BASE_URL"); ok && strings.TrimSpace(value) != "" && c.OpenAI.BaseURL == defaultOpenAIBaseURL {
		c.OpenAI.BaseURL = strings.TrimSpace(value)
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	c.OpenAI.BaseURL = strings.TrimRight(c.OpenAI.BaseURL, "/")
	c.OpenAI.TranscriptionModel = strings.TrimSpace(c.OpenAI.TranscriptionModel)
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = defaultTranscriptionModel
	}
	c.OpenAI.TranslationModel = strings.TrimSpace(c.OpenAI.TranslationModel)
	if c.OpenAI.TranslationModel == "" {
		c.OpenAI.TranslationModel = defaultTranslationModel
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeout
	}
	if c.OpenAI.RetryAttempts <= 0 {
		c.OpenAI.RetryAttempts = 1
	}
}

func (c *Config) normalizeTranscribe() {
	c.Transcribe.ChunkFormat = strings.ToLower(strings.TrimSpace(c.Transcribe.ChunkFormat))
	if c.Transcribe.ChunkFormat == "" {
		c.Transcribe.ChunkFormat = defaultChunkFormat
	}
	if c.Transcribe.MinSilenceMillis <= 0 {
		c.Transcribe.MinSilenceMillis = defaultMinSilenceMillis
	}
}

func (c *Config) normalizeTranslate() {
	c.Translate.Language = strings.TrimSpace(c.Translate.Language)
	if c.Translate.Language == "" {
		c.Translate.Language = defaultTranslateLanguage
	}
	if c.Translate.BatchSize <= 0 {
		c.Translate.BatchSize = defaultTranslateBatchSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeWatch() {
	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = append([]string(nil), defaultWatchExtensions...)
	} else {
		exts := make([]string, 0, len(c.Watch.Extensions))
		seen := make(map[string]struct{}, len(c.Watch.Extensions))
		for _, ext := range c.Watch.Extensions {
			normalized := strings.ToLower(strings.TrimSpace(ext))
			if normalized == "" {
				continue
			}
			if !strings.HasPrefix(normalized, ".") {
				normalized = "." + normalized
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		c.Watch.Extensions = exts
	}
	if c.Watch.SettleSeconds <= 0 {
		c.Watch.SettleSeconds = defaultWatchSettleSeconds
	}
}
