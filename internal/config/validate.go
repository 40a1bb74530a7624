package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"notecast/internal/language"
	"notecast/internal/stage"
)

// Validate ensures the configuration is usable. A missing LLM key is not a
// validation failure: the summarize stage reports it when notes are needed.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateAcquire(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.CleanupDelayMinutes <= 0 {
		return errors.New("pipeline.cleanup_delay_minutes must be positive")
	}
	if c.Pipeline.StaleMaxAgeHours < 0 {
		return errors.New("pipeline.stale_max_age_hours must be >= 0")
	}
	if c.Pipeline.LockWaitSeconds <= 0 {
		return errors.New("pipeline.lock_wait_seconds must be positive")
	}
	if !stage.ValidModelSize(c.Pipeline.DefaultModelSize) {
		return fmt.Errorf("pipeline.default_model_size %q must be one of %s",
			c.Pipeline.DefaultModelSize, strings.Join(stage.ModelSizes(), ", "))
	}
	if !language.Valid(c.Pipeline.DefaultTargetLanguage) {
		return fmt.Errorf("pipeline.default_target_language %q is not a language code", c.Pipeline.DefaultTargetLanguage)
	}
	return nil
}

func (c *Config) validateAcquire() error {
	if c.Acquire.SocketTimeout <= 0 {
		return errors.New("acquire.socket_timeout must be positive")
	}
	if c.Acquire.Retries < 0 {
		return errors.New("acquire.retries must be >= 0")
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	for name, value := range map[string]string{
		"translate.base_url": c.Translate.BaseURL,
		"llm.base_url":       c.LLM.BaseURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, value)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
