package daemonrun

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notecast/internal/artifacts"
	"notecast/internal/cleanup"
	"notecast/internal/config"
	"notecast/internal/metrics"
	"notecast/internal/notes"
	"notecast/internal/pipeline"
	"notecast/internal/render"
	"notecast/internal/services/llm"
	"notecast/internal/services/whisperx"
	"notecast/internal/services/ytdlp"
	"notecast/internal/stage"
	"notecast/internal/translate"
)

// Stack holds the storage shared by the daemon and one-shot CLI runs.
type Stack struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *artifacts.Store
	Locker  *artifacts.Locker
	Ledger  *cleanup.Ledger
	Metrics *metrics.Recorder
}

// Open prepares directories, the artifact store, and the cleanup ledger.
// Callers must Close the returned stack.
func Open(cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	store, err := artifacts.NewStore(cfg.Paths.OutputDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	ledger, err := cleanup.OpenLedger(cfg.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("open cleanup ledger: %w", err)
	}
	s := &Stack{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Locker: artifacts.NewLocker(cfg.Paths.OutputDir),
		Ledger: ledger,
	}
	if cfg.Metrics.Enabled {
		s.Metrics = metrics.New()
	}
	return s, nil
}

// Close releases the ledger.
func (s *Stack) Close() error {
	if s == nil || s.Ledger == nil {
		return nil
	}
	return s.Ledger.Close()
}

// ledgerReconcileInterval bounds how long a cleanup recorded by a one-shot
// run waits before a running daemon arms it.
const ledgerReconcileInterval = 30 * time.Second

// Scheduler builds a timer-driven cleanup scheduler backed by the ledger.
func (s *Stack) Scheduler() *cleanup.Scheduler {
	return cleanup.New(s.Store,
		cleanup.WithLedger(s.Ledger),
		cleanup.WithReconcileInterval(ledgerReconcileInterval),
		cleanup.WithLocker(s.Locker),
		cleanup.WithLogger(s.Logger),
		cleanup.WithMetrics(s.Metrics),
	)
}

// Pipeline builds the orchestrator with production stages. Cleanups are
// handed to scheduler.
func (s *Stack) Pipeline(scheduler pipeline.CleanupScheduler) (*pipeline.Orchestrator, error) {
	cfg := s.Config
	return pipeline.New(s.Store, Stages(cfg, s.Store, s.Logger),
		pipeline.WithCleanup(scheduler, cfg.CleanupDelay()),
		pipeline.WithLocker(s.Locker, cfg.LockWait()),
		pipeline.WithDefaults(cfg.Pipeline.DefaultTargetLanguage, cfg.Pipeline.DefaultModelSize),
		pipeline.WithLogger(s.Logger),
		pipeline.WithMetrics(s.Metrics),
	)
}

// Stages wires the external tools and HTTP services behind each stage.
func Stages(cfg *config.Config, store *artifacts.Store, logger *slog.Logger) stage.Set {
	acquirer := ytdlp.New(ytdlp.Config{
		Binary:        cfg.Acquire.YtDlpBinary,
		FFmpegBinary:  cfg.Acquire.FFmpegBinary,
		SocketTimeout: cfg.Acquire.SocketTimeout,
		Retries:       cfg.Acquire.Retries,
		Formats:       cfg.Acquire.Formats,
	}, store, logger)

	transcriber := whisperx.NewService(whisperx.Config{
		UVXBinary:    cfg.Transcribe.UVXBinary,
		FFmpegBinary: cfg.Acquire.FFmpegBinary,
		CUDAEnabled:  cfg.Transcribe.CUDAEnabled,
		ComputeType:  cfg.Transcribe.ComputeType,
	}, logger)

	backend := translate.NewGoogle(cfg.Translate.BaseURL, time.Duration(cfg.Translate.TimeoutSeconds)*time.Second)
	translator := translate.New(backend, cfg.Translate.MaxChunkChars, logger)

	completer := llm.NewClient(LLMConfig(cfg))
	summarizer := notes.New(completer, logger)

	return stage.Set{
		Acquirer:    acquirer,
		Transcriber: transcriber,
		Translator:  translator,
		Summarizer:  summarizer,
		Renderer:    render.New(store, logger),
	}
}

// LLMConfig maps the [llm] section onto the client configuration.
func LLMConfig(cfg *config.Config) llm.Config {
	return llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
	}
}
