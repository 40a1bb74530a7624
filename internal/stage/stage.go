// Package stage defines the collaborator contracts the pipeline drives.
//
// Each stage is an opaque capability with a single input, output, and error.
// Concrete implementations live in internal/services/ytdlp,
// internal/services/whisperx, internal/translate, internal/notes, and
// internal/render; tests substitute in-memory fakes.
package stage

import (
	"context"
	"strings"
)

// Stage names used in logs, metrics, and wrapped errors.
const (
	NameAcquire    = "acquire"
	NameTranscribe = "transcribe"
	NameTranslate  = "translate"
	NameSummarize  = "summarize"
	NameRender     = "render"
)

// Transcript is the output of the Transcribe stage.
type Transcript struct {
	Text     string
	Language string
}

// Acquirer downloads the audio track for a video into the artifact store and
// returns the path it wrote.
type Acquirer interface {
	Acquire(ctx context.Context, url, videoID string) (string, error)
}

// Transcriber converts an audio file into text and reports the spoken language.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, modelSize string) (Transcript, error)
}

// Translator converts text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Summarizer produces structured study notes from a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, targetLanguage string) (string, error)
}

// Renderer lays out notes as a printable document for videoID and returns the
// path it wrote.
type Renderer interface {
	Render(ctx context.Context, notes, videoID string) (string, error)
}

// Set bundles the five collaborators.
type Set struct {
	Acquirer    Acquirer
	Transcriber Transcriber
	Translator  Translator
	Summarizer  Summarizer
	Renderer    Renderer
}

// DefaultModelSize is used when a request leaves the model size empty.
const DefaultModelSize = "base"

var modelSizes = []string{"tiny", "base", "small", "medium", "large"}

// ModelSizes lists the accepted speech model sizes, smallest first.
func ModelSizes() []string {
	return append([]string(nil), modelSizes...)
}

// ValidModelSize reports whether size names a supported speech model.
func ValidModelSize(size string) bool {
	size = strings.ToLower(strings.TrimSpace(size))
	for _, candidate := range modelSizes {
		if candidate == size {
			return true
		}
	}
	return false
}
