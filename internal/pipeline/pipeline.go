// Package pipeline turns a video URL into downloadable study notes.
//
// The Orchestrator runs the fixed stage sequence acquire, transcribe,
// translate, summarize, render. Each stage whose artifact is already on disk
// is skipped and its output reused, so a failed run resumes from the last
// artifact it wrote. Artifacts written before a failure are kept.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notecast/internal/artifacts"
	"notecast/internal/language"
	"notecast/internal/logging"
	"notecast/internal/metrics"
	"notecast/internal/services"
	"notecast/internal/stage"
	"notecast/internal/videoid"
)

// DefaultCleanupDelay is how long artifacts are kept after a successful run.
const DefaultCleanupDelay = time.Hour

// reusedLanguage is reported as the detected language whenever the
// transcript was not produced by this run, including the all-cached path.
// The true source language is not recorded anywhere on disk.
const reusedLanguage = "en"

// Store is the artifact persistence the orchestrator needs.
type Store interface {
	PathFor(id string, kind artifacts.Kind) string
	Exists(id string, kind artifacts.Kind) bool
	ReadText(id string, kind artifacts.Kind) (string, error)
	WriteText(id string, kind artifacts.Kind, text string) (string, error)
}

// CleanupScheduler arranges deferred artifact removal.
type CleanupScheduler interface {
	Schedule(id string, delay time.Duration) error
}

// Locker serializes runs for the same identifier.
type Locker interface {
	Lock(ctx context.Context, id string) (func(), error)
}

// Request is one pipeline invocation.
type Request struct {
	URL            string
	TargetLanguage string
	ModelSize      string
}

// Result describes the artifacts of a finished run.
type Result struct {
	VideoID          string
	DetectedLanguage string
	TargetLanguage   string
	Translated       bool
	Cached           bool
	AudioPath        string
	TranscriptPath   string
	NotesPath        string
	DocumentPath     string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCleanup schedules artifact removal delay after each successful run.
func WithCleanup(scheduler CleanupScheduler, delay time.Duration) Option {
	return func(o *Orchestrator) {
		o.cleanup = scheduler
		if delay > 0 {
			o.cleanupDelay = delay
		}
	}
}

// WithLocker serializes concurrent runs for one identifier. wait bounds how
// long a run waits for the holder; zero waits until ctx is done.
func WithLocker(locker Locker, wait time.Duration) Option {
	return func(o *Orchestrator) {
		o.locker = locker
		o.lockWait = wait
	}
}

// WithDefaults sets the target language and model size used when a request
// leaves them empty.
func WithDefaults(targetLanguage, modelSize string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(targetLanguage) != "" {
			o.defaultTarget = targetLanguage
		}
		if strings.TrimSpace(modelSize) != "" {
			o.defaultModel = modelSize
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.NewComponentLogger(logger, "pipeline") }
}

// WithMetrics records stage outcomes.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = recorder }
}

// Orchestrator drives the stage sequence against the artifact store.
type Orchestrator struct {
	store         Store
	stages        stage.Set
	cleanup       CleanupScheduler
	cleanupDelay  time.Duration
	locker        Locker
	lockWait      time.Duration
	defaultTarget string
	defaultModel  string
	logger        *slog.Logger
	metrics       *metrics.Recorder
}

// New builds an orchestrator. Every stage in stages must be set.
func New(store Store, stages stage.Set, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("pipeline: artifact store is required")
	}
	switch {
	case stages.Acquirer == nil:
		return nil, errors.New("pipeline: acquirer is required")
	case stages.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case stages.Translator == nil:
		return nil, errors.New("pipeline: translator is required")
	case stages.Summarizer == nil:
		return nil, errors.New("pipeline: summarizer is required")
	case stages.Renderer == nil:
		return nil, errors.New("pipeline: renderer is required")
	}
	o := &Orchestrator{
		store:         store,
		stages:        stages,
		cleanupDelay:  DefaultCleanupDelay,
		defaultTarget: "en",
		defaultModel:  stage.DefaultModelSize,
		logger:        logging.NewComponentLogger(nil, "pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes the pipeline for req. Invalid input fails before any disk
// access and carries services.ErrInvalidInput; stage failures carry the
// stage name and abort the remaining stages.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.WithContext(ctx, o.logger)

	id, target, model, err := o.validate(req)
	if err != nil {
		logger.Info("pipeline request rejected",
			logging.Error(err),
			logging.String(logging.FieldEventType, "pipeline_rejected"),
		)
		o.metrics.ObservePipeline("rejected")
		return Result{}, err
	}
	ctx = services.WithVideoID(ctx, id)
	logger = logging.WithContext(ctx, o.logger)

	if o.locker != nil {
		release, err := o.lock(ctx, id)
		if err != nil {
			logging.ErrorWithContext(logger, "pipeline lock failed", "pipeline_lock_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "another request for this video is still running"),
			)
			o.metrics.ObservePipeline("failed")
			return Result{}, err
		}
		defer release()
	}

	started := time.Now()
	logger.Info("pipeline started",
		logging.String("target_language", target),
		logging.String("model_size", model),
		logging.String(logging.FieldEventType, "pipeline_started"),
	)

	result, err := o.run(ctx, req.URL, id, target, model)
	if err != nil {
		o.metrics.ObservePipeline("failed")
		return Result{}, err
	}

	if result.Cached {
		o.metrics.ObservePipeline("cached")
	} else {
		o.metrics.ObservePipeline("completed")
		o.scheduleCleanup(logger, id)
	}
	logger.Info("pipeline completed",
		logging.Bool("cached", result.Cached),
		logging.Bool("translated", result.Translated),
		logging.String("detected_language", result.DetectedLanguage),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "pipeline_completed"),
	)
	return result, nil
}

func (o *Orchestrator) validate(req Request) (string, string, string, error) {
	id, err := videoid.Extract(req.URL)
	if err != nil {
		return "", "", "", err
	}

	target := strings.TrimSpace(req.TargetLanguage)
	if target == "" {
		target = o.defaultTarget
	}
	if !language.Valid(target) {
		return "", "", "", services.Wrap(services.ErrInvalidInput, "validate", "target language",
			fmt.Sprintf("unsupported language code %q", req.TargetLanguage), nil)
	}
	target = language.Normalize(target)

	model := strings.ToLower(strings.TrimSpace(req.ModelSize))
	if model == "" {
		model = o.defaultModel
	}
	if !stage.ValidModelSize(model) {
		return "", "", "", services.Wrap(services.ErrInvalidInput, "validate", "model size",
			fmt.Sprintf("model size %q must be one of %s", req.ModelSize, strings.Join(stage.ModelSizes(), ", ")), nil)
	}
	return id, target, model, nil
}

func (o *Orchestrator) lock(ctx context.Context, id string) (func(), error) {
	lockCtx := ctx
	if o.lockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, o.lockWait)
		defer cancel()
	}
	release, err := o.locker.Lock(lockCtx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "pipeline", "lock video", id, err)
	}
	return release, nil
}

func (o *Orchestrator) scheduleCleanup(logger *slog.Logger, id string) {
	if o.cleanup == nil {
		return
	}
	if err := o.cleanup.Schedule(id, o.cleanupDelay); err != nil {
		logging.WarnWithContext(logger, "cleanup scheduling failed", "cleanup_schedule_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the artifacts manually with notecast clean"),
			logging.String(logging.FieldImpact, "artifacts stay on disk until the stale sweep"),
		)
	}
}
