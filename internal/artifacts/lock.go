package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 250 * time.Millisecond

// Locker serializes pipeline work per identifier with advisory file locks
// under {dir}/.locks. Locks hold across goroutines and processes, so the
// CLI and the daemon coordinate on the same output directory.
type Locker struct {
	dir string
}

// NewLocker returns a locker that keeps lock files under {outputDir}/.locks.
func NewLocker(outputDir string) *Locker {
	return &Locker{dir: filepath.Join(outputDir, ".locks")}
}

// Lock blocks until the lock for id is held or ctx is done. The returned
// function releases the lock.
func (l *Locker) Lock(ctx context.Context, id string) (func(), error) {
	fl, err := l.handle(id)
	if err != nil {
		return nil, err
	}
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", id, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire lock for %s: not acquired", id)
	}
	return func() { _ = fl.Unlock() }, nil
}

// TryLock takes the lock for id without waiting. ok is false when another
// holder has it.
func (l *Locker) TryLock(id string) (release func(), ok bool, err error) {
	fl, err := l.handle(id)
	if err != nil {
		return nil, false, err
	}
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("try lock for %s: %w", id, err)
	}
	if !locked {
		return nil, false, nil
	}
	return func() { _ = fl.Unlock() }, true, nil
}

func (l *Locker) handle(id string) (*flock.Flock, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	return flock.New(filepath.Join(l.dir, id+".lock")), nil
}
