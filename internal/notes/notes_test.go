package notes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"notecast/internal/logging"
	"notecast/internal/services"
)

type fakeCompleter struct {
	configured bool
	reply      string
	err        error
	prompt     string
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestSummarizeBuildsPromptInTargetLanguage(t *testing.T) {
	llm := &fakeCompleter{configured: true, reply: "```markdown\n### Intro\n-- point\n```"}
	s := New(llm, logging.NewNop())

	got, err := s.Summarize(context.Background(), "the transcript body", "fr")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "### Intro\n-- point" {
		t.Fatalf("expected wrapping fence stripped, got %q", got)
	}
	for _, want := range []string{"French (fr)", "'###' prefix", "'--' for bullet", "the transcript body"} {
		if !strings.Contains(llm.prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestSummarizeWithoutKeyIsConfigurationError(t *testing.T) {
	s := New(&fakeCompleter{}, logging.NewNop())
	_, err := s.Summarize(context.Background(), "text", "en")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSummarizePropagatesFailure(t *testing.T) {
	s := New(&fakeCompleter{configured: true, err: errors.New("http 500")}, logging.NewNop())
	_, err := s.Summarize(context.Background(), "text", "en")
	if err == nil || errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected plain failure, got %v", err)
	}
}

func TestSummarizeRejectsEmptyTranscript(t *testing.T) {
	s := New(&fakeCompleter{configured: true, reply: "x"}, logging.NewNop())
	if _, err := s.Summarize(context.Background(), "  ", "en"); err == nil {
		t.Fatal("expected error")
	}
}
