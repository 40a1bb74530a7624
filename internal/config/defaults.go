package config

const (
	defaultConfigPath            = "~/.config/notecast/config.toml"
	defaultOutputDir             = "~/.local/share/notecast/outputs"
	defaultStateDir              = "~/.local/share/notecast"
	defaultLogDir                = "~/.local/share/notecast/logs"
	defaultAPIBind               = "127.0.0.1:8000"
	defaultCleanupDelayMinutes   = 60
	defaultTargetLanguage        = "en"
	defaultModelSize             = "base"
	defaultStaleMaxAgeHours      = 24
	defaultLockWaitSeconds       = 600
	defaultYtDlpBinary           = "yt-dlp"
	defaultFFmpegBinary          = "ffmpeg"
	defaultSocketTimeout         = 30
	defaultRetries               = 10
	defaultUVXBinary             = "uvx"
	defaultComputeType           = "int8"
	defaultTranslateBaseURL      = "https://translate.googleapis.com/translate_a/single"
	defaultTranslateChunkChars   = 4000
	defaultTranslateTimeout      = 60
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "mistralai/mistral-7b-instruct"
	defaultLLMReferer            = "http://localhost:8000"
	defaultLLMTitle              = "Notecast"
	defaultLLMTimeoutSeconds     = 120
	defaultLLMTemperature        = 0.7
	defaultLLMMaxTokens          = 2000
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	envOpenRouterAPIKey          = "OPENROUTER_API_KEY"
	envAPIToken                  = "NOTECAST_API_TOKEN"
)

// defaultFormats are tried in order until a download succeeds.
var defaultFormats = []string{
	"bestaudio/best",
	"worstaudio/worst",
	"bestaudio[ext=m4a]/bestaudio/best",
	"bestaudio[ext=mp3]/bestaudio/best",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Pipeline: Pipeline{
			CleanupDelayMinutes:   defaultCleanupDelayMinutes,
			DefaultTargetLanguage: defaultTargetLanguage,
			DefaultModelSize:      defaultModelSize,
			StaleMaxAgeHours:      defaultStaleMaxAgeHours,
			LockWaitSeconds:       defaultLockWaitSeconds,
		},
		Acquire: Acquire{
			YtDlpBinary:   defaultYtDlpBinary,
			FFmpegBinary:  defaultFFmpegBinary,
			SocketTimeout: defaultSocketTimeout,
			Retries:       defaultRetries,
			Formats:       append([]string(nil), defaultFormats...),
		},
		Transcribe: Transcribe{
			UVXBinary:   defaultUVXBinary,
			ComputeType: defaultComputeType,
		},
		Translate: Translate{
			BaseURL:        defaultTranslateBaseURL,
			MaxChunkChars:  defaultTranslateChunkChars,
			TimeoutSeconds: defaultTranslateTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
