package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"notecast/internal/artifacts"
	"notecast/internal/fileutil"
	"notecast/internal/logging"
)

// Classified download failures. The messages are shown to end users verbatim.
//
//nolint:staticcheck // ST1005: user-facing sentences
var (
	ErrForbidden = errors.New("Access to this video is forbidden. The video might be private or restricted.")
	ErrNotFound  = errors.New("Video not found. The video might have been removed or is private.")
	ErrGone      = errors.New("Video is no longer available.")
)

// DefaultFormats is the format preference order used when none is configured.
var DefaultFormats = []string{
	"bestaudio/best",
	"worstaudio/worst",
	"bestaudio[ext=m4a]/bestaudio/best",
	"bestaudio[ext=mp3]/bestaudio/best",
}

// Paths resolves artifact locations.
type Paths interface {
	PathFor(id string, kind artifacts.Kind) string
}

// CommandRunner executes yt-dlp and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Config controls yt-dlp invocations.
type Config struct {
	Binary        string
	FFmpegBinary  string
	SocketTimeout int
	Retries       int
	Formats       []string
}

// Client downloads audio for a video.
type Client struct {
	cfg    Config
	paths  Paths
	logger *slog.Logger
	runner CommandRunner
}

// Option customizes a Client.
type Option func(*Client)

// WithCommandRunner overrides process execution (used in tests).
func WithCommandRunner(runner CommandRunner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// New constructs a Client writing audio to the paths resolver.
func New(cfg Config, paths Paths, logger *slog.Logger, opts ...Option) *Client {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "yt-dlp"
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = append([]string(nil), DefaultFormats...)
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = 30
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	c := &Client{
		cfg:    cfg,
		paths:  paths,
		logger: logging.NewComponentLogger(logger, "ytdlp"),
		runner: defaultRunner,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Acquire implements stage.Acquirer.
func (c *Client) Acquire(ctx context.Context, url, videoID string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("video URL is required")
	}
	if c.paths == nil {
		return "", errors.New("artifact paths unavailable")
	}
	dest := c.paths.PathFor(videoID, artifacts.KindAudio)
	logger := logging.WithContext(ctx, c.logger)

	var lastErr error
	for i, format := range c.cfg.Formats {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		output, err := c.runner(ctx, c.cfg.Binary, c.buildArgs(url, dest, format)...)
		if err == nil {
			path, settleErr := settle(dest)
			if settleErr == nil {
				logger.Info("audio downloaded",
					logging.String("format", format),
					logging.String("path", path),
					logging.String(logging.FieldEventType, "audio_downloaded"),
				)
				return path, nil
			}
			err = settleErr
		} else {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
		}
		lastErr = err
		logging.WarnWithContext(logger, "download attempt failed", "download_attempt_failed",
			logging.String("format", format),
			logging.Int("attempt", i+1),
			logging.Error(err),
			logging.String(logging.FieldImpact, "trying next format"),
		)
	}
	if lastErr == nil {
		lastErr = errors.New("failed to download audio after trying all formats")
	}
	return "", classify(lastErr)
}

func (c *Client) buildArgs(url, dest, format string) []string {
	args := []string{
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--no-color",
		"--no-check-certificates",
		"--geo-bypass",
		"-f", format,
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--postprocessor-args", "ffmpeg:-ar 44100 -ac 2 -b:a 192k",
		"--socket-timeout", strconv.Itoa(c.cfg.SocketTimeout),
		"--retries", strconv.Itoa(c.cfg.Retries),
		"--fragment-retries", strconv.Itoa(c.cfg.Retries),
		"--extractor-args", "youtube:player_client=android,web",
		"-o", strings.TrimSuffix(dest, ".mp3") + ".%(ext)s",
	}
	if ffmpeg := strings.TrimSpace(c.cfg.FFmpegBinary); ffmpeg != "" && ffmpeg != "ffmpeg" {
		args = append(args, "--ffmpeg-location", ffmpeg)
	}
	return append(args, url)
}

// settle returns dest once a non-empty file sits there, renaming the
// doubled-extension output yt-dlp sometimes produces.
func settle(dest string) (string, error) {
	if err := fileutil.NonEmpty(dest); err == nil {
		return dest, nil
	}
	alt := dest + ".mp3"
	if err := fileutil.NonEmpty(alt); err == nil {
		if err := os.Rename(alt, dest); err != nil {
			return "", fmt.Errorf("rename audio: %w", err)
		}
		return dest, nil
	}
	return "", fmt.Errorf("yt-dlp reported success but %s is missing or empty", dest)
}

var httpStatusPattern = regexp.MustCompile(`HTTP Error (\d{3})`)

func classify(err error) error {
	var status string
	if m := httpStatusPattern.FindStringSubmatch(err.Error()); m != nil {
		status = m[1]
	}
	switch status {
	case "403":
		return fmt.Errorf("%w (%w)", ErrForbidden, err)
	case "404":
		return fmt.Errorf("%w (%w)", ErrNotFound, err)
	case "410":
		return fmt.Errorf("%w (%w)", ErrGone, err)
	default:
		return fmt.Errorf("failed to download audio: %w", err)
	}
}

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Available reports whether the yt-dlp binary resolves on PATH.
func Available(binary string) bool {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return false
	}
	return true
}
