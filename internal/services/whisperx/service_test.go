package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"notecast/internal/logging"
)

type recordedCall struct {
	name string
	args []string
}

func fakeRunner(t *testing.T, calls *[]recordedCall, jsonBody string) CommandRunner {
	t.Helper()
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, recordedCall{name: name, args: args})
		switch name {
		case "ffmpeg":
			return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
		case "uvx":
			outDir := args[slices.Index(args, "--output_dir")+1]
			return os.WriteFile(filepath.Join(outDir, "audio.json"), []byte(jsonBody), 0o644)
		}
		return errors.New("unexpected command " + name)
	}
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abc123_audio.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeResamplesThenParsesOutput(t *testing.T) {
	var calls []recordedCall
	svc := NewService(Config{}, logging.NewNop())
	svc.WithCommandRunner(fakeRunner(t, &calls, `{"language":"fr","segments":[{"text":" Bonjour. "},{"text":""},{"text":"Au revoir."}]}`))

	got, err := svc.Transcribe(context.Background(), writeAudio(t), "large")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "Bonjour. Au revoir." || got.Language != "fr" {
		t.Fatalf("unexpected transcript %+v", got)
	}

	if len(calls) != 2 || calls[0].name != "ffmpeg" || calls[1].name != "uvx" {
		t.Fatalf("unexpected call sequence %+v", calls)
	}
	ffmpeg := strings.Join(calls[0].args, " ")
	if !strings.Contains(ffmpeg, "-ac 1") || !strings.Contains(ffmpeg, "-ar 16000") || !strings.Contains(ffmpeg, "pcm_s16le") {
		t.Fatalf("expected mono 16 kHz resample, got %q", ffmpeg)
	}
	uvx := strings.Join(calls[1].args, " ")
	if !strings.Contains(uvx, "--model large-v3") {
		t.Fatalf("expected large mapped to large-v3, got %q", uvx)
	}
	if !strings.Contains(uvx, "--device cpu") || !strings.Contains(uvx, "--compute_type int8") {
		t.Fatalf("expected cpu defaults, got %q", uvx)
	}
}

func TestTranscribeCUDAArgs(t *testing.T) {
	svc := NewService(Config{CUDAEnabled: true}, logging.NewNop())
	args := strings.Join(svc.buildArgs("in.wav", "/tmp/out", "base"), " ")
	for _, want := range []string{"--extra-index-url", "--device cuda", "--compute_type float16", "--output_format json"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in %q", want, args)
		}
	}
}

func TestTranscribeEmptyOutputFails(t *testing.T) {
	var calls []recordedCall
	svc := NewService(Config{}, logging.NewNop())
	svc.WithCommandRunner(fakeRunner(t, &calls, `{"language":"en","segments":[]}`))

	if _, err := svc.Transcribe(context.Background(), writeAudio(t), "base"); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestTranscribeMissingAudio(t *testing.T) {
	svc := NewService(Config{}, logging.NewNop())
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		t.Fatal("runner must not be called")
		return nil
	})
	if _, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), "base"); err == nil {
		t.Fatal("expected error for missing audio")
	}
}

func TestModelName(t *testing.T) {
	tests := map[string]string{"tiny": "tiny", "medium": "medium", "large": "large-v3", "bogus": "base"}
	for in, want := range tests {
		if got := ModelName(in); got != want {
			t.Errorf("ModelName(%q) = %q, want %q", in, got, want)
		}
	}
}
