package config

const (
	defaultConfigPath            = "~/.config/clipmato/config.toml"
	defaultDataDir               = "~/.local/share/clipmato"
	defaultAPIBind               = "127.0.0.1:8787"
	defaultUploadMaxBytes        = 50 * 1024 * 1024
	defaultLLMBaseURL            = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel              = "gpt-4o-mini"
	defaultLLMTemperature        = 0.7
	defaultLLMTimeoutSeconds     = 120
	defaultTranscriptionBaseURL  = "https://api.openai.com/v1/audio/transcriptions"
	defaultTranscriptionModel    = "whisper-1"
	defaultTranscriptionChunk    = 25 * 1024 * 1024
	defaultTranscriptionTimeout  = 600
	defaultMinSilenceMS          = 1000
	defaultSilenceThresholdDB    = -50.0
	defaultKeepSilenceMS         = 200
	defaultNotifyRequestTimeout  = 10
	defaultScheduleCadence       = "daily"
	defaultPublishHour           = 9
	defaultWorkerPoolSize        = 4
	defaultMaxActiveJobs         = 2
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultDistributionMode      = DistributionLocal
	defaultS3Region              = "auto"
	defaultS3Prefix              = "episodes"
	defaultDistributionPublished = "published"
)

// Distribution modes.
const (
	DistributionNone  = "none"
	DistributionLocal = "local"
	DistributionS3    = "s3"
)

// DefaultAllowedTypes lists the MIME types accepted for upload.
func DefaultAllowedTypes() []string {
	return []string{
		"audio/flac",
		"audio/m4a",
		"audio/mp4",
		"audio/mpeg",
		"audio/ogg",
		"audio/opus",
		"audio/wav",
		"audio/webm",
		"audio/x-wav",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			APIBind: defaultAPIBind,
		},
		Uploads: Uploads{
			MaxBytes:     defaultUploadMaxBytes,
			AllowedTypes: DefaultAllowedTypes(),
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Transcription: Transcription{
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			ChunkBytes:     defaultTranscriptionChunk,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Audio: Audio{
			Loudnorm:           true,
			MinSilenceMS:       defaultMinSilenceMS,
			SilenceThresholdDB: defaultSilenceThresholdDB,
			KeepSilenceMS:      defaultKeepSilenceMS,
		},
		Distribution: Distribution{
			Mode: defaultDistributionMode,
			S3: S3{
				Region: defaultS3Region,
				Prefix: defaultS3Prefix,
			},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobComplete:    true,
			Errors:         true,
		},
		Scheduling: Scheduling{
			DefaultCadence: defaultScheduleCadence,
			PublishHour:    defaultPublishHour,
		},
		Workflow: Workflow{
			WorkerPoolSize: defaultWorkerPoolSize,
			MaxActiveJobs:  defaultMaxActiveJobs,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
