package cleanup

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the ledger was written by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Entry is one pending cleanup recorded in the ledger.
type Entry struct {
	VideoID     string
	DueAt       time.Time
	ScheduledAt time.Time
}

// Ledger persists pending cleanup deadlines in SQLite so they survive daemon
// restarts and one-shot CLI runs.
type Ledger struct {
	db   *sql.DB
	path string
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	ledger := &Ledger{db: db, path: path}
	if err := ledger.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// Path returns the database file location.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Upsert records that videoID is due for cleanup at dueAt, replacing any
// earlier deadline.
func (l *Ledger) Upsert(ctx context.Context, videoID string, dueAt time.Time) error {
	return l.exec(ctx, `INSERT INTO cleanups (video_id, due_at, scheduled_at) VALUES (?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET due_at = excluded.due_at, scheduled_at = excluded.scheduled_at`,
		videoID, dueAt.UnixMilli(), time.Now().UnixMilli())
}

// Delete forgets videoID. Deleting an unknown identifier is not an error.
func (l *Ledger) Delete(ctx context.Context, videoID string) error {
	return l.exec(ctx, `DELETE FROM cleanups WHERE video_id = ?`, videoID)
}

// DeleteDue forgets videoID only while its recorded deadline is dueAt, so a
// newer deadline written in the meantime survives.
func (l *Ledger) DeleteDue(ctx context.Context, videoID string, dueAt time.Time) error {
	return l.exec(ctx, `DELETE FROM cleanups WHERE video_id = ? AND due_at = ?`, videoID, dueAt.UnixMilli())
}

// List returns every recorded cleanup ordered by deadline.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := l.db.QueryContext(ctx, `SELECT video_id, due_at, scheduled_at FROM cleanups ORDER BY due_at, video_id`)
	if err != nil {
		return nil, fmt.Errorf("list cleanups: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			due       int64
			scheduled int64
		)
		if err := rows.Scan(&entry.VideoID, &due, &scheduled); err != nil {
			return nil, fmt.Errorf("scan cleanup: %w", err)
		}
		entry.DueAt = time.UnixMilli(due)
		entry.ScheduledAt = time.UnixMilli(scheduled)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (l *Ledger) exec(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := l.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (l *Ledger) initSchema(ctx context.Context) error {
	var tableExists int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: ledger has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, l.path)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
