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
	c.normalizePipeline()
	c.normalizeAcquire()
	c.normalizeTranscribe()
	c.normalizeTranslate()
	c.normalizeLLM()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.FrontendDir, err = expandPath(strings.TrimSpace(c.Paths.FrontendDir)); err != nil {
		return fmt.Errorf("paths.frontend_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv(envAPIToken); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizePipeline() {
	c.Pipeline.DefaultTargetLanguage = strings.ToLower(strings.TrimSpace(c.Pipeline.DefaultTargetLanguage))
	if c.Pipeline.DefaultTargetLanguage == "" {
		c.Pipeline.DefaultTargetLanguage = defaultTargetLanguage
	}
	c.Pipeline.DefaultModelSize = strings.ToLower(strings.TrimSpace(c.Pipeline.DefaultModelSize))
	if c.Pipeline.DefaultModelSize == "" {
		c.Pipeline.DefaultModelSize = defaultModelSize
	}
}

func (c *Config) normalizeAcquire() {
	c.Acquire.YtDlpBinary = strings.TrimSpace(c.Acquire.YtDlpBinary)
	if c.Acquire.YtDlpBinary == "" {
		c.Acquire.YtDlpBinary = defaultYtDlpBinary
	}
	c.Acquire.FFmpegBinary = strings.TrimSpace(c.Acquire.FFmpegBinary)
	if c.Acquire.FFmpegBinary == "" {
		c.Acquire.FFmpegBinary = defaultFFmpegBinary
	}
	formats := make([]string, 0, len(c.Acquire.Formats))
	for _, format := range c.Acquire.Formats {
		if trimmed := strings.TrimSpace(format); trimmed != "" {
			formats = append(formats, trimmed)
		}
	}
	if len(formats) == 0 {
		formats = append(formats, defaultFormats...)
	}
	c.Acquire.Formats = formats
}

func (c *Config) normalizeTranscribe() {
	c.Transcribe.UVXBinary = strings.TrimSpace(c.Transcribe.UVXBinary)
	if c.Transcribe.UVXBinary == "" {
		c.Transcribe.UVXBinary = defaultUVXBinary
	}
	c.Transcribe.ComputeType = strings.ToLower(strings.TrimSpace(c.Transcribe.ComputeType))
	if c.Transcribe.ComputeType == "" {
		c.Transcribe.ComputeType = defaultComputeType
	}
}

func (c *Config) normalizeTranslate() {
	c.Translate.BaseURL = strings.TrimSpace(c.Translate.BaseURL)
	if c.Translate.BaseURL == "" {
		c.Translate.BaseURL = defaultTranslateBaseURL
	}
	if c.Translate.MaxChunkChars <= 0 {
		c.Translate.MaxChunkChars = defaultTranslateChunkChars
	}
	if c.Translate.TimeoutSeconds <= 0 {
		c.Translate.TimeoutSeconds = defaultTranslateTimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv(envOpenRouterAPIKey); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
