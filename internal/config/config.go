package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
	FrontendDir string `toml:"frontend_dir"`
	APIBind     string `toml:"api_bind"`
	APIToken    string `toml:"api_token"`
}

// Pipeline contains orchestration and retention settings.
type Pipeline struct {
	CleanupDelayMinutes   int    `toml:"cleanup_delay_minutes"`
	DefaultTargetLanguage string `toml:"default_target_language"`
	DefaultModelSize      string `toml:"default_model_size"`
	StaleMaxAgeHours      int    `toml:"stale_max_age_hours"`
	LockWaitSeconds       int    `toml:"lock_wait_seconds"`
}

// Acquire contains media download settings.
type Acquire struct {
	YtDlpBinary   string   `toml:"ytdlp_binary"`
	FFmpegBinary  string   `toml:"ffmpeg_binary"`
	SocketTimeout int      `toml:"socket_timeout"`
	Retries       int      `toml:"retries"`
	Formats       []string `toml:"formats"`
}

// Transcribe contains speech-to-text settings.
type Transcribe struct {
	UVXBinary   string `toml:"uvx_binary"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	ComputeType string `toml:"compute_type"`
}

// Translate contains machine translation settings.
type Translate struct {
	BaseURL        string `toml:"base_url"`
	MaxChunkChars  int    `toml:"max_chunk_chars"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains the chat-completion connection used to write notes.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Metrics toggles the Prometheus endpoint.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for notecast.
//
// Configuration sections by subsystem:
//   - Paths: artifact, state, and log directories plus the API bind address
//   - Pipeline: cleanup delay, request defaults, and lock waits
//   - Acquire: yt-dlp download behavior
//   - Transcribe: WhisperX invocation
//   - Translate: translation endpoint and chunking
//   - LLM: note generation
//   - Logging: log format, level, and retention
//   - Metrics: Prometheus exposition
type Config struct {
	Paths      Paths      `toml:"paths"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Acquire    Acquire    `toml:"acquire"`
	Transcribe Transcribe `toml:"transcribe"`
	Translate  Translate  `toml:"translate"`
	LLM        LLM        `toml:"llm"`
	Logging    Logging    `toml:"logging"`
	Metrics    Metrics    `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error: defaults and environment fallbacks apply. The returned config
// has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	loadDotEnv(filepath.Dir(resolvedPath))

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env files from the working directory and the config
// directory. Variables already present in the environment win.
func loadDotEnv(configDir string) {
	candidates := []string{".env"}
	if configDir != "" && configDir != "." {
		candidates = append(candidates, filepath.Join(configDir, ".env"))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(candidate)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("notecast.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon and CLI write to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CleanupDelay is the interval between pipeline success and artifact removal.
func (c *Config) CleanupDelay() time.Duration {
	return time.Duration(c.Pipeline.CleanupDelayMinutes) * time.Minute
}

// StaleMaxAge is the age beyond which leftover artifacts are swept at startup.
func (c *Config) StaleMaxAge() time.Duration {
	return time.Duration(c.Pipeline.StaleMaxAgeHours) * time.Hour
}

// LockWait bounds how long a request waits for another request on the same video.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Pipeline.LockWaitSeconds) * time.Second
}

// LedgerPath is the SQLite file that records pending cleanups.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "cleanup.db")
}

// DaemonLockPath is the single-instance lock file for notecastd.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "notecastd.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
