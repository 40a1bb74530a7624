package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"notecast/internal/api"
	"notecast/internal/artifacts"
	"notecast/internal/cleanup"
	"notecast/internal/config"
	"notecast/internal/deps"
	"notecast/internal/logging"
	"notecast/internal/pipeline"
	"notecast/internal/services"
	"notecast/internal/testsupport"
)

const testVideoID = "dQw4w9WgXcQ"

type fakeRunner struct {
	mu       sync.Mutex
	requests []pipeline.Request
	result   pipeline.Result
	err      error
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result, f.err
}

type fakeScheduler struct {
	started  bool
	stopped  bool
	startErr error
	pending  []cleanup.Pending
}

func (f *fakeScheduler) Start(context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeScheduler) Stop(context.Context) error {
	f.stopped = true
	return nil
}

func (f *fakeScheduler) Pending() []cleanup.Pending { return f.pending }

type harness struct {
	cfg       *config.Config
	store     *artifacts.Store
	runner    *fakeRunner
	scheduler *fakeScheduler
	daemon    *Daemon
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	store, err := artifacts.NewStore(cfg.Paths.OutputDir, logging.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	h := &harness{
		cfg:       cfg,
		store:     store,
		runner:    &fakeRunner{},
		scheduler: &fakeScheduler{},
	}
	d, err := New(h.cfg, Options{
		Store:     store,
		Pipeline:  h.runner,
		Scheduler: h.scheduler,
		Logger:    logging.NewNop(),
		Dependencies: func() []deps.Status {
			return []deps.Status{{Name: "yt-dlp", Command: "yt-dlp", Available: true}}
		},
	})
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	h.daemon = d
	return h
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := config.Default()
	if _, err := New(&cfg, Options{}); err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}

func TestStartAndStopLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.daemon.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !h.scheduler.started {
		t.Fatal("expected scheduler to start")
	}
	status := h.daemon.Status(context.Background())
	if !status.Running || status.StartedAt == "" {
		t.Fatalf("unexpected status after start: %+v", status)
	}
	if err := h.daemon.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}
	h.daemon.Stop()
	if !h.scheduler.stopped {
		t.Fatal("expected scheduler to stop")
	}
	if h.daemon.Status(context.Background()).Running {
		t.Fatal("expected daemon to report stopped")
	}
}

func TestStartRejectsSecondInstance(t *testing.T) {
	first := newHarness(t, nil)
	if err := first.daemon.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.daemon.Stop()

	cfg := *first.cfg
	other, err := New(&cfg, Options{
		Store:     first.store,
		Pipeline:  &fakeRunner{},
		Scheduler: &fakeScheduler{},
		Logger:    logging.NewNop(),
		Dependencies: func() []deps.Status {
			return nil
		},
	})
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := other.Start(context.Background()); err == nil {
		other.Stop()
		t.Fatal("expected lock contention error")
	}
}

func TestStartToleratesSchedulerRestoreFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.scheduler.startErr = errors.New("ledger corrupt")
	if err := h.daemon.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.daemon.Stop()
}

func TestStartSweepsStaleArtifacts(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Pipeline.StaleMaxAgeHours = 1
	})
	path, err := h.store.WriteText(testVideoID, artifacts.KindTranscript, "old transcript")
	if err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	old := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := h.daemon.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.daemon.Stop()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected stale transcript to be removed, stat err=%v", err)
	}
}

func TestStatusReportsPendingAndDependencies(t *testing.T) {
	h := newHarness(t, nil)
	due := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.scheduler.pending = []cleanup.Pending{{VideoID: testVideoID, DueAt: due}}

	status := h.daemon.Status(context.Background())
	if status.Running {
		t.Fatal("expected daemon not running before start")
	}
	if len(status.PendingCleanups) != 1 || status.PendingCleanups[0].VideoID != testVideoID {
		t.Fatalf("unexpected pending cleanups: %+v", status.PendingCleanups)
	}
	if !strings.HasPrefix(status.PendingCleanups[0].DueAt, "2026-01-02T03:04:05") {
		t.Fatalf("unexpected due time %q", status.PendingCleanups[0].DueAt)
	}
	if len(status.Dependencies) != 1 || !status.Dependencies[0].Available {
		t.Fatalf("unexpected dependencies: %+v", status.Dependencies)
	}
	if status.OutputDir != h.cfg.Paths.OutputDir {
		t.Fatalf("unexpected output dir %q", status.OutputDir)
	}
}

func TestStartServesHTTP(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Paths.APIBind = "127.0.0.1:0"
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.daemon.Stop()

	addr := h.daemon.Addr()
	if addr == "" {
		t.Fatal("expected listener address")
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running status")
	}
}

func TestHandlerMapsPipelineErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.runner.err = services.Wrap(services.ErrInvalidInput, "pipeline", "validate", "Invalid YouTube URL", nil)

	body := strings.NewReader(`{"youtube_url":"not a url"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/transcript", body)
	rec := httptest.NewRecorder()
	h.daemon.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var payload api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(payload.Detail, "Invalid YouTube URL") {
		t.Fatalf("unexpected detail %q", payload.Detail)
	}
}
