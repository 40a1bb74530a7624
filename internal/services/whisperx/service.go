package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"notecast/internal/logging"
	"notecast/internal/services"
	"notecast/internal/stage"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service provides WhisperX transcription.
type Service struct {
	cfg           Config
	logger        *slog.Logger
	commandRunner CommandRunner
}

// NewService creates a WhisperX service.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.UVXBinary == "" {
		cfg.UVXBinary = UVXCommand
	}
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = FFmpegCommand
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = DefaultComputeType
	}
	return &Service{cfg: cfg, logger: logging.NewComponentLogger(logger, "whisperx")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// CUDAEnabled returns whether CUDA is enabled.
func (s *Service) CUDAEnabled() bool {
	return s.cfg.CUDAEnabled
}

// Transcribe implements stage.Transcriber.
func (s *Service) Transcribe(ctx context.Context, audioPath, modelSize string) (stage.Transcript, error) {
	if strings.TrimSpace(audioPath) == "" {
		return stage.Transcript{}, errors.New("transcribe: audio path required")
	}
	if _, err := os.Stat(audioPath); err != nil {
		return stage.Transcript{}, fmt.Errorf("transcribe: %w", err)
	}

	workDir, err := os.MkdirTemp("", "notecast-whisperx-*")
	if err != nil {
		return stage.Transcript{}, fmt.Errorf("transcribe: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	wavPath := filepath.Join(workDir, "audio.wav")
	if err := s.run(ctx, s.cfg.FFmpegBinary, buildFFmpegArgs(audioPath, wavPath)...); err != nil {
		return stage.Transcript{}, fmt.Errorf("resample audio: %w", err)
	}

	model := ModelName(modelSize)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("whisperx transcription started",
		logging.String("model", model),
		logging.Bool("cuda", s.cfg.CUDAEnabled),
		logging.String(logging.FieldEventType, "whisperx_started"),
	)
	started := time.Now()
	if err := s.run(ctx, s.cfg.UVXBinary, s.buildArgs(wavPath, workDir, model)...); err != nil {
		return stage.Transcript{}, fmt.Errorf("whisperx: %w", err)
	}

	payload, err := loadPayload(filepath.Join(workDir, "audio.json"))
	if err != nil {
		return stage.Transcript{}, err
	}
	text := payload.text()
	if text == "" {
		return stage.Transcript{}, errors.New("whisperx produced an empty transcript")
	}
	logger.Info("whisperx transcription completed",
		logging.String("language", payload.Language),
		logging.Int("segments", len(payload.Segments)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "whisperx_completed"),
	)
	return stage.Transcript{Text: text, Language: payload.Language}, nil
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load to weights_only=true, which breaks the
	// checkpoints WhisperX bundles.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(string(output), 2000))
	}
	return nil
}

func buildFFmpegArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", SampleRate,
		"-c:a", "pcm_s16le",
		dest,
	}
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir, model string) []string {
	args := make([]string, 0, 24)
	if s.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", model,
		"--batch_size", BatchSize,
		"--beam_size", BeamSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	)
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice, "--compute_type", CUDAComputeType)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", s.cfg.ComputeType)
	}
	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type payload struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

func (p payload) text() string {
	parts := make([]string, 0, len(p.Segments))
	for _, seg := range p.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func loadPayload(jsonPath string) (payload, error) {
	var p payload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return p, services.Wrap(services.ErrCollaborator, stage.NameTranscribe, "read output", "whisperx wrote no json", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse whisperx json: %w", err)
	}
	return p, nil
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
