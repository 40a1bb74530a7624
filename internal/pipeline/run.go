package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"notecast/internal/artifacts"
	"notecast/internal/language"
	"notecast/internal/logging"
	"notecast/internal/metrics"
	"notecast/internal/services"
	"notecast/internal/stage"
)

func (o *Orchestrator) run(ctx context.Context, url, id, target, model string) (Result, error) {
	result := Result{
		VideoID:        id,
		TargetLanguage: target,
		AudioPath:      o.store.PathFor(id, artifacts.KindAudio),
		TranscriptPath: o.store.PathFor(id, artifacts.KindTranscript),
		NotesPath:      o.store.PathFor(id, artifacts.KindNotes),
		DocumentPath:   o.store.PathFor(id, artifacts.KindDocument),
	}

	exists := make(map[artifacts.Kind]bool, len(artifacts.Kinds))
	all := true
	for _, kind := range artifacts.Kinds {
		exists[kind] = o.store.Exists(id, kind)
		all = all && exists[kind]
	}
	if all {
		result.Cached = true
		result.DetectedLanguage = reusedLanguage
		for _, name := range []string{stage.NameAcquire, stage.NameTranscribe, stage.NameTranslate, stage.NameSummarize, stage.NameRender} {
			o.metrics.ObserveStage(name, metrics.OutcomeReused, 0)
		}
		logging.WithContext(ctx, o.logger).Info("all artifacts present; returning cached result",
			logging.String(logging.FieldEventType, "pipeline_cached"),
		)
		return result, nil
	}

	// Acquire.
	if exists[artifacts.KindAudio] {
		o.reused(ctx, stage.NameAcquire, result.AudioPath)
	} else {
		err := o.exec(ctx, stage.NameAcquire, func(ctx context.Context) error {
			path, err := o.stages.Acquirer.Acquire(ctx, url, id)
			if err != nil {
				return err
			}
			if !o.store.Exists(id, artifacts.KindAudio) {
				return errors.New("audio file missing after download")
			}
			result.AudioPath = path
			return nil
		})
		if err != nil {
			return Result{}, err
		}
	}

	// Transcribe.
	var transcript string
	detected := reusedLanguage
	if exists[artifacts.KindTranscript] {
		text, err := o.readText(ctx, stage.NameTranscribe, id, artifacts.KindTranscript)
		if err != nil {
			return Result{}, err
		}
		transcript = text
		o.reused(ctx, stage.NameTranscribe, result.TranscriptPath)
	} else {
		err := o.exec(ctx, stage.NameTranscribe, func(ctx context.Context) error {
			out, err := o.stages.Transcriber.Transcribe(ctx, result.AudioPath, model)
			if err != nil {
				return err
			}
			if strings.TrimSpace(out.Text) == "" {
				return errors.New("transcription produced no text")
			}
			if lang := language.Normalize(out.Language); lang != "" {
				detected = lang
			}
			transcript = out.Text
			path, err := o.store.WriteText(id, artifacts.KindTranscript, transcript)
			if err != nil {
				return err
			}
			result.TranscriptPath = path
			return nil
		})
		if err != nil {
			return Result{}, err
		}
	}
	result.DetectedLanguage = detected

	// Translate. Skipped without calling the collaborator when the target is
	// English or already matches the source language.
	switch {
	case language.Same(target, "en"):
		o.skipped(ctx, stage.NameTranslate, "target language is English")
	case language.Same(target, detected):
		o.skipped(ctx, stage.NameTranslate, "transcript already in target language")
	default:
		err := o.exec(ctx, stage.NameTranslate, func(ctx context.Context) error {
			text, err := o.stages.Translator.Translate(ctx, transcript, target)
			if err != nil {
				return err
			}
			if _, err := o.store.WriteText(id, artifacts.KindTranscript, text); err != nil {
				return err
			}
			transcript = text
			return nil
		})
		if err != nil {
			return Result{}, err
		}
		result.Translated = true
		// Notes and document derived from the untranslated transcript are stale.
		exists[artifacts.KindNotes] = false
		exists[artifacts.KindDocument] = false
	}

	// Summarize.
	var notes string
	if exists[artifacts.KindNotes] {
		text, err := o.readText(ctx, stage.NameSummarize, id, artifacts.KindNotes)
		if err != nil {
			return Result{}, err
		}
		notes = text
		o.reused(ctx, stage.NameSummarize, result.NotesPath)
	} else {
		err := o.exec(ctx, stage.NameSummarize, func(ctx context.Context) error {
			text, err := o.stages.Summarizer.Summarize(ctx, transcript, target)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("summarizer returned empty notes")
			}
			path, err := o.store.WriteText(id, artifacts.KindNotes, text)
			if err != nil {
				return err
			}
			notes = text
			result.NotesPath = path
			return nil
		})
		if err != nil {
			return Result{}, err
		}
	}

	// Render.
	if exists[artifacts.KindDocument] {
		o.reused(ctx, stage.NameRender, result.DocumentPath)
	} else {
		err := o.exec(ctx, stage.NameRender, func(ctx context.Context) error {
			path, err := o.stages.Renderer.Render(ctx, notes, id)
			if err != nil {
				return err
			}
			if !o.store.Exists(id, artifacts.KindDocument) {
				return errors.New("document missing after render")
			}
			result.DocumentPath = path
			return nil
		})
		if err != nil {
			return Result{}, err
		}
	}

	return result, nil
}

// exec runs one stage, logging and wrapping any failure with the stage name.
func (o *Orchestrator) exec(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx = services.WithStage(ctx, name)
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_started"))

	started := time.Now()
	err := fn(ctx)
	elapsed := time.Since(started)
	if err != nil {
		wrapped := services.Wrap(markerFor(err), name, "run", "stage failed", err)
		logging.ErrorWithContext(logger, "stage failed", "stage_failed",
			logging.Error(err),
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldErrorHint, hintFor(name)),
		)
		o.metrics.ObserveStage(name, metrics.OutcomeFailed, elapsed)
		return wrapped
	}
	o.metrics.ObserveStage(name, metrics.OutcomeExecuted, elapsed)
	logger.Info("stage completed",
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "stage_completed"),
	)
	return nil
}

func (o *Orchestrator) readText(ctx context.Context, name, id string, kind artifacts.Kind) (string, error) {
	text, err := o.store.ReadText(id, kind)
	if err != nil {
		logger := logging.WithContext(services.WithStage(ctx, name), o.logger)
		logging.ErrorWithContext(logger, "reading existing artifact failed", "artifact_read_failed",
			logging.String("kind", string(kind)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the artifact to regenerate it"),
		)
		o.metrics.ObserveStage(name, metrics.OutcomeFailed, 0)
		if errors.Is(err, services.ErrStorage) {
			return "", err
		}
		return "", services.Wrap(services.ErrStorage, name, "read "+string(kind), "existing artifact unreadable", err)
	}
	return text, nil
}

func (o *Orchestrator) reused(ctx context.Context, name, path string) {
	o.metrics.ObserveStage(name, metrics.OutcomeReused, 0)
	logging.WithContext(services.WithStage(ctx, name), o.logger).Info("reusing existing artifact",
		logging.String("path", path),
		logging.String(logging.FieldEventType, "stage_reused"),
	)
}

func (o *Orchestrator) skipped(ctx context.Context, name, reason string) {
	o.metrics.ObserveStage(name, metrics.OutcomeSkipped, 0)
	logging.WithContext(services.WithStage(ctx, name), o.logger).Info("stage skipped",
		logging.String("reason", reason),
		logging.String(logging.FieldEventType, "stage_skipped"),
	)
}

// markerFor keeps a classification the collaborator already chose and
// defaults everything else to a collaborator failure.
func markerFor(err error) error {
	for _, marker := range []error{services.ErrInvalidInput, services.ErrNotFound, services.ErrConfiguration, services.ErrStorage} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return services.ErrCollaborator
}

func hintFor(name string) string {
	switch name {
	case stage.NameAcquire:
		return "check the video is public and yt-dlp is up to date"
	case stage.NameTranscribe:
		return "check uvx and ffmpeg are installed and the audio file plays"
	case stage.NameTranslate:
		return "check network access to the translation endpoint"
	case stage.NameSummarize:
		return "check llm.api_key (OPENROUTER_API_KEY) and llm.base_url"
	case stage.NameRender:
		return "check output_dir is writable"
	default:
		return "check logs for details"
	}
}
