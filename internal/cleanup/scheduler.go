// Package cleanup removes a video's artifacts a fixed delay after its
// pipeline succeeds.
//
// The Scheduler is a registry of cancellable one-shot timers keyed by video
// identifier: scheduling an identifier again replaces its pending timer, so
// at most one deletion is pending per identifier and it is timed from the
// latest call. An optional Ledger mirrors the registry in SQLite so pending
// deadlines survive restarts and lets one-shot runs hand cleanups to a
// running daemon, which re-reads it periodically.
package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"notecast/internal/artifacts"
	"notecast/internal/logging"
	"notecast/internal/metrics"
)

// ErrStopped is returned by Schedule after Stop has begun.
var ErrStopped = errors.New("cleanup scheduler stopped")

const (
	defaultBusyRetry = time.Minute
	ledgerTimeout    = 5 * time.Second
)

// Remover deletes every artifact for an identifier.
type Remover interface {
	DeleteAll(id string) artifacts.DeleteResult
}

// Locker reports whether an identifier is free. Cleanup defers while a
// pipeline holds the identifier.
type Locker interface {
	TryLock(id string) (release func(), ok bool, err error)
}

// Store is the persistence used to recover pending cleanups.
type Store interface {
	Upsert(ctx context.Context, videoID string, dueAt time.Time) error
	Delete(ctx context.Context, videoID string) error
	DeleteDue(ctx context.Context, videoID string, dueAt time.Time) error
	List(ctx context.Context) ([]Entry, error)
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc arranges for f to run after d.
type AfterFunc func(d time.Duration, f func()) Timer

// Pending describes one scheduled cleanup.
type Pending struct {
	VideoID string
	DueAt   time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLedger mirrors scheduled cleanups into store.
func WithLedger(store Store) Option {
	return func(s *Scheduler) { s.ledger = store }
}

// WithLocker defers cleanup of identifiers that are locked by a pipeline.
func WithLocker(locker Locker) Option {
	return func(s *Scheduler) { s.locker = locker }
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logging.NewComponentLogger(logger, "cleanup") }
}

// WithMetrics records cleanup outcomes.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Scheduler) { s.metrics = recorder }
}

// WithClock replaces the wall clock and timer primitive. Tests use it to
// fire timers deterministically.
func WithClock(now func() time.Time, after AfterFunc) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
		if after != nil {
			s.afterFunc = after
		}
	}
}

// WithReconcileInterval re-reads the ledger every d after Start so cleanups
// recorded by one-shot CLI runs are armed without a restart.
func WithReconcileInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.reconcile = d
		}
	}
}

// WithBusyRetry sets how long a cleanup waits before retrying when its
// identifier is locked.
func WithBusyRetry(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.busyRetry = d
		}
	}
}

type entry struct {
	timer Timer
	due   time.Time
	gen   uint64
}

// Scheduler runs deferred artifact deletions.
type Scheduler struct {
	remover   Remover
	locker    Locker
	ledger    Store
	logger    *slog.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
	afterFunc AfterFunc
	busyRetry time.Duration
	reconcile time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	firing  map[string]struct{}
	gen     uint64
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup

	// ledgerMu is taken before mu and held across a timer change and its
	// ledger write, so Reconcile never observes one without the other.
	ledgerMu sync.Mutex
}

// New returns a scheduler that deletes through remover.
func New(remover Remover, opts ...Option) *Scheduler {
	s := &Scheduler{
		remover:   remover,
		logger:    logging.NewComponentLogger(nil, "cleanup"),
		now:       time.Now,
		afterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		busyRetry: defaultBusyRetry,
		entries:   make(map[string]*entry),
		firing:    make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start restores cleanups recorded in the ledger. Overdue entries fire
// immediately. With WithReconcileInterval set, the ledger is re-read
// periodically so deadlines recorded by other processes are honored.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.ledger == nil {
		return nil
	}
	restored, err := s.Reconcile(ctx)
	if err != nil {
		return err
	}
	if restored > 0 {
		s.logger.Info("restored pending cleanups",
			logging.Int("count", restored),
			logging.String(logging.FieldEventType, "cleanup_restored"),
		)
	}
	if s.reconcile > 0 {
		go s.reconcileLoop()
	}
	return nil
}

// Reconcile arms every ledger entry that is not pending in memory or whose
// recorded deadline differs from the in-memory one. It returns how many
// timers were armed.
func (s *Scheduler) Reconcile(ctx context.Context) (int, error) {
	if s.ledger == nil {
		return 0, nil
	}
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	entries, err := s.ledger.List(ctx)
	if err != nil {
		return 0, err
	}
	armed := 0
	for _, e := range entries {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return armed, ErrStopped
		}
		_, busy := s.firing[e.VideoID]
		current, ok := s.entries[e.VideoID]
		known := ok && current.due.UnixMilli() == e.DueAt.UnixMilli()
		if busy || known {
			s.mu.Unlock()
			continue
		}
		delay := e.DueAt.Sub(s.now())
		if delay < 0 {
			delay = 0
		}
		pending := s.armLocked(e.VideoID, e.DueAt, delay)
		s.mu.Unlock()

		s.metrics.SetPendingCleanups(pending)
		armed++
	}
	return armed, nil
}

func (s *Scheduler) reconcileLoop() {
	ticker := time.NewTicker(s.reconcile)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
			armed, err := s.Reconcile(ctx)
			cancel()
			switch {
			case errors.Is(err, ErrStopped):
				return
			case err != nil:
				logging.WarnWithContext(s.logger, "cleanup ledger reconcile failed", "cleanup_reconcile_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check state_dir permissions and the cleanup.db file"),
					logging.String(logging.FieldImpact, "cleanups recorded by CLI runs are delayed"),
				)
			case armed > 0:
				s.logger.Info("picked up ledger cleanups",
					logging.Int("count", armed),
					logging.String(logging.FieldEventType, "cleanup_reconciled"),
				)
			}
		}
	}
}

// Schedule arranges for the artifacts of id to be deleted after delay,
// replacing any cleanup already pending for id.
func (s *Scheduler) Schedule(id string, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	due := s.now().Add(delay)

	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	pending := s.armLocked(id, due, delay)
	s.mu.Unlock()

	s.metrics.SetPendingCleanups(pending)
	s.persist(id, due)
	s.logger.Debug("cleanup scheduled",
		logging.String(logging.FieldVideoID, id),
		logging.Duration("delay", delay),
		logging.String(logging.FieldEventType, "cleanup_scheduled"),
	)
	return nil
}

// armLocked replaces the timer for id. s.mu must be held.
func (s *Scheduler) armLocked(id string, due time.Time, delay time.Duration) int {
	if prior, ok := s.entries[id]; ok {
		prior.timer.Stop()
	}
	s.gen++
	gen := s.gen
	e := &entry{due: due, gen: gen}
	s.entries[id] = e
	e.timer = s.afterFunc(delay, func() { s.fire(id, gen) })
	return len(s.entries)
}

// Cancel drops the pending cleanup for id. It reports whether one existed.
func (s *Scheduler) Cancel(id string) bool {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		e.timer.Stop()
		delete(s.entries, id)
	}
	pending := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetPendingCleanups(pending)
	s.forget(id, time.Time{})
	return ok
}

// Pending lists scheduled cleanups ordered by deadline.
func (s *Scheduler) Pending() []Pending {
	s.mu.Lock()
	out := make([]Pending, 0, len(s.entries))
	for id, e := range s.entries {
		out = append(out, Pending{VideoID: id, DueAt: e.due})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].VideoID < out[j].VideoID
		}
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out
}

// Stop rejects further scheduling, disarms pending timers, and waits for
// deletions already running until ctx is done. Ledger entries are kept so
// the next Start resumes them.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.done)
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	s.mu.Unlock()
	s.metrics.SetPendingCleanups(0)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// currentLocked reports whether gen is still the live timer for id.
// s.mu must be held.
func (s *Scheduler) currentLocked(id string, gen uint64) (*entry, bool) {
	e, ok := s.entries[id]
	if s.stopped || !ok || e.gen != gen {
		return nil, false
	}
	return e, true
}

func (s *Scheduler) fire(id string, gen uint64) {
	s.mu.Lock()
	if _, ok := s.currentLocked(id, gen); !ok {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if s.locker != nil {
		release, free, err := s.locker.TryLock(id)
		switch {
		case err != nil:
			logging.WarnWithContext(s.logger, "cleanup lock check failed", "cleanup_lock_failed",
				logging.String(logging.FieldVideoID, id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output_dir permissions"),
				logging.String(logging.FieldImpact, "artifacts removed without lock"),
			)
		case !free:
			s.deferBusy(id, gen)
			return
		default:
			defer release()
		}
	}

	// A pipeline may have rescheduled id while the lock was checked; its
	// newer timer owns the artifacts now.
	s.mu.Lock()
	e, ok := s.currentLocked(id, gen)
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.entries, id)
	s.firing[id] = struct{}{}
	pending := len(s.entries)
	s.mu.Unlock()
	s.metrics.SetPendingCleanups(pending)

	result := s.remover.DeleteAll(id)

	s.ledgerMu.Lock()
	s.forget(id, e.due)
	s.mu.Lock()
	delete(s.firing, id)
	s.mu.Unlock()
	s.ledgerMu.Unlock()

	outcome := "removed"
	if len(result.Errors) > 0 {
		outcome = "failed"
	}
	s.metrics.ObserveCleanup(outcome)
	s.logger.Info("cleanup fired",
		logging.String(logging.FieldVideoID, id),
		logging.Int("removed", len(result.Removed)),
		logging.Int("failed", len(result.Errors)),
		logging.String(logging.FieldEventType, "cleanup_fired"),
	)
}

// deferBusy re-arms id after busyRetry unless a newer schedule replaced gen.
func (s *Scheduler) deferBusy(id string, gen uint64) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	s.mu.Lock()
	if _, ok := s.currentLocked(id, gen); !ok {
		s.mu.Unlock()
		return
	}
	due := s.now().Add(s.busyRetry)
	pending := s.armLocked(id, due, s.busyRetry)
	s.mu.Unlock()

	s.metrics.SetPendingCleanups(pending)
	s.metrics.ObserveCleanup("deferred")
	s.persist(id, due)
	s.logger.Info("cleanup deferred; pipeline in progress",
		logging.String(logging.FieldVideoID, id),
		logging.Duration("retry_in", s.busyRetry),
		logging.String(logging.FieldEventType, "cleanup_deferred"),
	)
}

// persist records due for id. s.ledgerMu must be held.
func (s *Scheduler) persist(id string, due time.Time) {
	if s.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := s.ledger.Upsert(ctx, id, due); err != nil {
		logging.WarnWithContext(s.logger, "cleanup ledger write failed", "cleanup_ledger_failed",
			logging.String(logging.FieldVideoID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			logging.String(logging.FieldImpact, "cleanup is lost if the daemon restarts first"),
		)
	}
}

// forget removes the ledger row for id unless id was scheduled again. A
// non-zero due limits the delete to the row with that deadline. s.ledgerMu
// must be held.
func (s *Scheduler) forget(id string, due time.Time) {
	if s.ledger == nil {
		return
	}
	s.mu.Lock()
	_, rescheduled := s.entries[id]
	s.mu.Unlock()
	if rescheduled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	var err error
	if due.IsZero() {
		err = s.ledger.Delete(ctx, id)
	} else {
		err = s.ledger.DeleteDue(ctx, id, due)
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "cleanup ledger delete failed", "cleanup_ledger_failed",
			logging.String(logging.FieldVideoID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			logging.String(logging.FieldImpact, "a stale cleanup may replay after restart"),
		)
	}
}

// Deferred records cleanups in the ledger without running timers. One-shot
// CLI runs use it so the daemon performs the deletion later.
type Deferred struct {
	Ledger Store
	Now    func() time.Time
}

// Schedule records the deadline for id.
func (d Deferred) Schedule(id string, delay time.Duration) error {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	return d.Ledger.Upsert(ctx, id, now().Add(delay))
}
