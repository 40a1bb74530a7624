package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"notecast/internal/config"
	"notecast/internal/deps"
	"notecast/internal/services/llm"
	"notecast/internal/translate"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing (set OPENROUTER_API_KEY)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", client.Model())}
}

// CheckTranslation translates a short sample phrase through the configured endpoint.
func CheckTranslation(ctx context.Context, cfg config.Translate) Result {
	const name = "Translation"

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	backend := translate.NewGoogle(cfg.BaseURL, 15*time.Second)
	out, err := backend.TranslateChunk(checkCtx, "Hello.", "es")
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	if strings.TrimSpace(out) == "" {
		return Result{Name: name, Detail: "endpoint returned no text"}
	}
	return Result{Name: name, Passed: true, Detail: "endpoint reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFrontend verifies the front-end bundle has an index document.
func CheckFrontend(dir string) Result {
	const name = "Front-end bundle"
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: index.html missing)", dir)}
	}
	return Result{Name: name, Passed: true, Detail: dir}
}

// CheckSystemDeps evaluates the external binaries the stages execute.
// Both the daemon status endpoint and the doctor command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Acquire.YtDlpBinary,
			Description: "Required for audio acquisition",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Acquire.FFmpegBinary,
			Description: "Required for audio extraction and resampling",
		},
		{
			Name:        "uvx",
			Command:     cfg.Transcribe.UVXBinary,
			Description: "Required for WhisperX-driven transcription",
		},
	}
	if cfg.Transcribe.CUDAEnabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "nvidia-smi",
			Command:     "nvidia-smi",
			Description: "Confirms a CUDA driver for GPU transcription",
			Optional:    true,
		})
	}
	return deps.CheckBinaries(requirements)
}

// summarizeNetworkError produces a human-readable summary for health check failures.
func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return "API key missing"
	}
	return err.Error()
}
