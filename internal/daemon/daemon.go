package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"notecast/internal/api"
	"notecast/internal/artifacts"
	"notecast/internal/cleanup"
	"notecast/internal/config"
	"notecast/internal/deps"
	"notecast/internal/logging"
	"notecast/internal/metrics"
	"notecast/internal/pipeline"
	"notecast/internal/preflight"
)

const shutdownTimeout = 10 * time.Second

// Runner executes one pipeline request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// CleanupService is the scheduler surface the daemon drives.
type CleanupService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pending() []cleanup.Pending
}

// Options carries the daemon's collaborators.
type Options struct {
	Store     *artifacts.Store
	Pipeline  Runner
	Scheduler CleanupService
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	// Dependencies reports external binary availability for the status
	// endpoint. Defaults to preflight.CheckSystemDeps.
	Dependencies func() []deps.Status
}

// Daemon enforces single-instance execution and owns the HTTP server.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *artifacts.Store
	pipeline  Runner
	scheduler CleanupService
	metrics   *metrics.Recorder
	deps      func() []deps.Status

	lockPath string
	lock     *flock.Flock
	server   *apiServer

	running   atomic.Bool
	startedAt atomic.Pointer[time.Time]
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil || opts.Store == nil || opts.Pipeline == nil || opts.Scheduler == nil {
		return nil, errors.New("daemon requires config, artifact store, pipeline, and cleanup scheduler")
	}
	depsFn := opts.Dependencies
	if depsFn == nil {
		depsFn = func() []deps.Status { return preflight.CheckSystemDeps(cfg) }
	}
	lockPath := cfg.DaemonLockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(opts.Logger, "daemon"),
		store:     opts.Store,
		pipeline:  opts.Pipeline,
		scheduler: opts.Scheduler,
		metrics:   opts.Metrics,
		deps:      depsFn,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, opts.Logger)
	return d, nil
}

// Start acquires the daemon lock, evicts stale artifacts, restores pending
// cleanups, and starts the API server when a bind address is configured.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another notecast daemon instance is already running")
	}

	d.sweepStale()

	if err := d.scheduler.Start(ctx); err != nil {
		logging.WarnWithContext(d.logger, "cleanup ledger restore failed", "cleanup_restore_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and the cleanup.db file"),
			logging.String(logging.FieldImpact, "cleanups recorded before restart will not run"),
		)
	}
	d.metrics.SetPendingCleanups(len(d.scheduler.Pending()))

	if err := d.server.start(ctx); err != nil {
		d.stopScheduler()
		_ = d.lock.Unlock()
		return err
	}

	now := time.Now()
	d.startedAt.Store(&now)
	d.running.Store(true)
	d.logger.Info("notecast daemon started",
		logging.String("lock", d.lockPath),
		logging.String("output_dir", d.store.Dir()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop shuts the API server down, stops the cleanup scheduler, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.server.stop()
	d.stopScheduler()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the lock is released when the process exits"),
		)
	}
	d.running.Store(false)
	d.logger.Info("notecast daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Addr returns the API listener address, or empty when not serving.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Handler returns the HTTP routes served by the daemon.
func (d *Daemon) Handler() http.Handler {
	return d.server.handler
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		OutputDir:       d.store.Dir(),
		LedgerPath:      d.cfg.LedgerPath(),
		LockFilePath:    d.lockPath,
		PendingCleanups: api.FromPending(d.scheduler.Pending()),
	}
	if started := d.startedAt.Load(); started != nil {
		status.StartedAt = api.FormatTime(*started)
	}
	for _, dep := range d.deps() {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return status
}

func (d *Daemon) sweepStale() {
	maxAge := d.cfg.StaleMaxAge()
	if maxAge <= 0 {
		return
	}
	result := d.store.SweepStale(maxAge)
	for _, failure := range result.Errors {
		logging.WarnWithContext(d.logger, "stale artifact removal failed", "stale_sweep_failed",
			logging.String("path", failure.Path),
			logging.Error(failure.Error),
			logging.String(logging.FieldImpact, "the file stays on disk until removed manually"),
		)
	}
	if len(result.Removed) > 0 {
		d.logger.Info("stale artifacts removed",
			logging.Int("count", len(result.Removed)),
			logging.Duration("max_age", maxAge),
			logging.String(logging.FieldEventType, "stale_sweep"),
		)
	}
}

func (d *Daemon) stopScheduler() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.scheduler.Stop(ctx); err != nil {
		logging.WarnWithContext(d.logger, "cleanup scheduler stop timed out", "cleanup_stop_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "an in-flight deletion may be interrupted"),
		)
	}
}
