package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notecast/internal/artifacts"
	"notecast/internal/deps"
	"notecast/internal/logging"
	"notecast/internal/preflight"
)

const testVideoID = "dQw4w9WgXcQ"

type testEnv struct {
	configPath string
	outputDir  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	base := t.TempDir()
	env := testEnv{
		configPath: filepath.Join(base, "config.toml"),
		outputDir:  filepath.Join(base, "output"),
	}
	content := strings.Join([]string{
		"[paths]",
		`output_dir = "` + env.outputDir + `"`,
		`state_dir = "` + filepath.Join(base, "state") + `"`,
		`log_dir = "` + filepath.Join(base, "logs") + `"`,
		"",
		"[llm]",
		`api_key = "sk-test-secret"`,
		"",
	}, "\n")
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected output to mention %s, got %q", target, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := newTestEnv(t)
	out, err := runCLI(t, "--config", env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-test-secret") {
		t.Fatalf("api key leaked: %q", out)
	}
	if !strings.Contains(out, redacted) {
		t.Fatalf("expected redaction marker, got %q", out)
	}
	if !strings.Contains(out, env.outputDir) {
		t.Fatalf("expected output dir in dump, got %q", out)
	}
}

func TestFilesListsArtifacts(t *testing.T) {
	env := newTestEnv(t)
	store, err := artifacts.NewStore(env.outputDir, logging.NewNop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := store.WriteText(testVideoID, artifacts.KindTranscript, "hello"); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	out, err := runCLI(t, "--config", env.configPath, "files", testVideoID, "--json")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	var payload map[string]struct {
		Exists bool  `json:"exists"`
		Size   int64 `json:"size"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !payload["transcript"].Exists || payload["transcript"].Size != 5 {
		t.Fatalf("unexpected transcript entry: %+v", payload["transcript"])
	}
	if payload["pdf"].Exists {
		t.Fatal("pdf should not exist")
	}

	table, err := runCLI(t, "--config", env.configPath, "files", testVideoID)
	if err != nil {
		t.Fatalf("files table: %v", err)
	}
	if !strings.Contains(table, "transcript") || !strings.Contains(table, "Exists") {
		t.Fatalf("unexpected table output %q", table)
	}
}

func TestFilesRejectsInvalidID(t *testing.T) {
	env := newTestEnv(t)
	if _, err := runCLI(t, "--config", env.configPath, "files", "nope"); err == nil {
		t.Fatal("expected invalid id error")
	}
}

func TestCleanRemovesArtifacts(t *testing.T) {
	env := newTestEnv(t)
	store, err := artifacts.NewStore(env.outputDir, logging.NewNop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	path, err := store.WriteText(testVideoID, artifacts.KindNotes, "# Notes")
	if err != nil {
		t.Fatalf("write notes: %v", err)
	}

	out, err := runCLI(t, "--config", env.configPath, "clean", testVideoID)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.Contains(out, "removed") {
		t.Fatalf("expected removal output, got %q", out)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected notes removed, stat err=%v", err)
	}

	out, err = runCLI(t, "--config", env.configPath, "clean", testVideoID)
	if err != nil {
		t.Fatalf("second clean: %v", err)
	}
	if !strings.Contains(out, "no artifacts") {
		t.Fatalf("expected empty message, got %q", out)
	}
}

func TestRunRejectsInvalidURL(t *testing.T) {
	env := newTestEnv(t)
	if _, err := runCLI(t, "--config", env.configPath, "run", "https://example.com/watch"); err == nil {
		t.Fatal("expected invalid url error")
	}
}

func TestBuildDoctorReport(t *testing.T) {
	statuses := []deps.Status{
		{Name: "yt-dlp", Command: "yt-dlp", Available: true},
		{Name: "nvidia-smi", Command: "nvidia-smi", Optional: true},
	}
	results := []preflight.Result{{Name: "Output directory", Passed: true}}
	report := buildDoctorReport(statuses, results)
	if !report.Healthy {
		t.Fatal("optional missing dependency should not fail the report")
	}

	statuses = append(statuses, deps.Status{Name: "uvx", Command: "uvx"})
	if buildDoctorReport(statuses, results).Healthy {
		t.Fatal("missing required dependency should fail the report")
	}
	results = append(results, preflight.Result{Name: "Notes LLM", Detail: "unauthorized"})
	if buildDoctorReport(statuses[:2], results).Healthy {
		t.Fatal("failed check should fail the report")
	}
}
