package config

const (
	defaultStateDir           = "~/.local/share/aisubs"
	defaultLogDir             = "~/.local/share/aisubs/logs"
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultTranscriptionModel = "whisper-1"
	defaultTranslationModel   = "gpt-4-turbo"
	defaultOpenAITimeout      = 600
	defaultRetryAttempts      = 3
	defaultJobs               = 4
	defaultSilenceThreshDB    = -40
	defaultMinSilenceMillis   = 2000
	defaultMinSegmentSeconds  = 600
	defaultMaxSegmentSeconds  = 900
	defaultChunkFormat        = "mp3"
	defaultTranslateLanguage  = "zh-Hans"
	defaultTranslateBatchSize = 50
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultWatchSettleSeconds = 5
)

var defaultWatchExtensions = []string{".mp3", ".m4a", ".wav", ".flac", ".ogg", ".opus", ".mp4", ".mkv", ".webm"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		OpenAI: OpenAI{
			BaseURL:            defaultOpenAIBaseURL,
			TranscriptionModel: defaultTranscriptionModel,
			TranslationModel:   defaultTranslationModel,
			TimeoutSeconds:     defaultOpenAITimeout,
			RetryAttempts:      defaultRetryAttempts,
		},
		Transcribe: Transcribe{
			Jobs:              defaultJobs,
			SilenceThreshDB:   defaultSilenceThreshDB,
			MinSilenceMillis:  defaultMinSilenceMillis,
			MinSegmentSeconds: defaultMinSegmentSeconds,
			MaxSegmentSeconds: defaultMaxSegmentSeconds,
			ChunkFormat:       defaultChunkFormat,
		},
		Translate: Translate{
			Language:  defaultTranslateLanguage,
			BatchSize: defaultTranslateBatchSize,
			Jobs:      defaultJobs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
		Watch: Watch{
			Extensions:    append([]string(nil), defaultWatchExtensions...),
			SettleSeconds: defaultWatchSettleSeconds,
		},
	}
}
