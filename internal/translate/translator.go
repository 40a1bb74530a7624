package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"notecast/internal/language"
	"notecast/internal/logging"
)

// DefaultMaxChunkChars bounds the size of each request sent to the backend.
const DefaultMaxChunkChars = 4000

// Translator implements stage.Translator on top of a chunk Backend.
type Translator struct {
	backend  Backend
	maxChunk int
	logger   *slog.Logger
}

// New constructs a Translator.
func New(backend Backend, maxChunk int, logger *slog.Logger) *Translator {
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunkChars
	}
	return &Translator{
		backend:  backend,
		maxChunk: maxChunk,
		logger:   logging.NewComponentLogger(logger, "translate"),
	}
}

// Translate renders text in the target language, leaving fenced code intact.
func (t *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	if t.backend == nil {
		return "", errors.New("translation backend unavailable")
	}
	target = language.Normalize(target)
	if target == "" {
		return "", errors.New("target language required")
	}
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	prose, blocks := protectCode(text)
	chunks := chunkText(prose, t.maxChunk)
	translated := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := t.backend.TranslateChunk(ctx, chunk, target)
		if err != nil {
			return "", fmt.Errorf("translation failed on chunk %d of %d: %w", i+1, len(chunks), err)
		}
		translated = append(translated, out)
	}
	logging.WithContext(ctx, t.logger).Debug("translation completed",
		logging.String("target", target),
		logging.Int("chunks", len(chunks)),
		logging.Int("code_blocks", len(blocks)),
	)
	return restoreCode(strings.Join(translated, " "), blocks), nil
}
