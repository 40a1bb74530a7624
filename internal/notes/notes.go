// Package notes implements the summarize stage: it turns a transcript into
// structured markdown study notes through an LLM.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"notecast/internal/language"
	"notecast/internal/logging"
	"notecast/internal/services"
	"notecast/internal/services/llm"
)

// Completer is the LLM surface the summarizer needs.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summarizer implements stage.Summarizer.
type Summarizer struct {
	llm    Completer
	logger *slog.Logger
}

// New constructs a Summarizer.
func New(completer Completer, logger *slog.Logger) *Summarizer {
	return &Summarizer{llm: completer, logger: logging.NewComponentLogger(logger, "notes")}
}

// Summarize generates notes for transcript written in the target language.
func (s *Summarizer) Summarize(ctx context.Context, transcript, target string) (string, error) {
	if s.llm == nil || !s.llm.Configured() {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY is not set; add it to .env or llm.api_key (get a key at https://openrouter.ai/)", services.ErrConfiguration)
	}
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("transcript is empty")
	}
	name := languageLabel(target)
	content, err := s.llm.Complete(ctx, BuildPrompt(transcript, name))
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return "", fmt.Errorf("%w: %w", services.ErrConfiguration, err)
		}
		return "", fmt.Errorf("notes generation failed: %w", err)
	}
	notes := llm.StripWrappingFence(content)
	logging.WithContext(ctx, s.logger).Debug("notes generated",
		logging.String("language", name),
		logging.Int("chars", len(notes)),
	)
	return notes, nil
}

func languageLabel(code string) string {
	normalized := language.Normalize(code)
	if normalized == "" {
		normalized = "en"
	}
	display := language.DisplayName(normalized)
	if strings.EqualFold(display, normalized) {
		return normalized
	}
	return fmt.Sprintf("%s (%s)", display, normalized)
}
