package artifacts_test

import (
	"context"
	"os"
	"testing"
	"time"

	"notecast/internal/artifacts"
)

func TestLockerSerializesSameIdentifier(t *testing.T) {
	locker := artifacts.NewLocker(t.TempDir())

	release, err := locker.Lock(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	if _, ok, err := locker.TryLock("abc123"); err != nil || ok {
		t.Fatalf("expected TryLock to fail while held, ok=%v err=%v", ok, err)
	}

	otherRelease, ok, err := locker.TryLock("other")
	if err != nil || !ok {
		t.Fatalf("expected independent identifier to lock, ok=%v err=%v", ok, err)
	}
	otherRelease()

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(context.Background(), "abc123")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock returned while the first holder was active")
	case <-time.After(100 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second Lock did not proceed after release")
	}
}

func TestLockerHonorsContext(t *testing.T) {
	locker := artifacts.NewLocker(t.TempDir())
	release, err := locker.Lock(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "abc123"); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestFailedLockAttemptsReleaseHandles(t *testing.T) {
	if _, err := os.Stat("/proc/self/fd"); err != nil {
		t.Skip("no /proc/self/fd")
	}
	locker := artifacts.NewLocker(t.TempDir())
	release, err := locker.Lock(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer release()

	openFDs := func() int {
		entries, err := os.ReadDir("/proc/self/fd")
		if err != nil {
			t.Fatalf("read fds: %v", err)
		}
		return len(entries)
	}

	before := openFDs()
	for i := 0; i < 50; i++ {
		if _, ok, err := locker.TryLock("abc123"); err != nil || ok {
			t.Fatalf("expected TryLock to fail while held, ok=%v err=%v", ok, err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		_, _ = locker.Lock(ctx, "abc123")
		cancel()
	}
	if after := openFDs(); after-before > 5 {
		t.Fatalf("expected failed attempts to close their handles, fds grew from %d to %d", before, after)
	}
}
