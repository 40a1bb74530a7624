// Package artifacts maps (video identifier, artifact kind) pairs to files in
// a flat output directory. A file's presence is the only record that the
// artifact exists.
package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notecast/internal/fileutil"
	"notecast/internal/logging"
	"notecast/internal/services"
	"notecast/internal/videoid"
)

// Store owns the output directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// FileInfo describes one artifact on disk.
type FileInfo struct {
	Kind    Kind
	Exists  bool
	Path    string
	Size    int64
	ModTime time.Time
}

// DeleteResult reports the outcome of a best-effort removal.
type DeleteResult struct {
	Removed []string
	Errors  []PathError
}

// PathError pairs a path with the error encountered while removing it.
type PathError struct {
	Path  string
	Error error
}

// NewStore creates the output directory when missing and returns a store
// rooted there.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "init", "output directory is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "artifacts", "init", "create output directory", err)
	}
	return &Store{dir: dir, logger: logging.NewComponentLogger(logger, "artifacts")}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// PathFor returns {dir}/{id}_{kind}.{ext}. It never touches disk.
func (s *Store) PathFor(id string, kind Kind) string {
	return filepath.Join(s.dir, FileName(id, kind))
}

// FileName returns the artifact file name for id and kind.
func FileName(id string, kind Kind) string {
	return fmt.Sprintf("%s_%s.%s", id, kind, kind.Extension())
}

// Exists reports whether the artifact file is present.
func (s *Store) Exists(id string, kind Kind) bool {
	info, err := os.Stat(s.PathFor(id, kind))
	return err == nil && info.Mode().IsRegular()
}

// Stat describes the artifact file, reporting Exists=false when absent.
func (s *Store) Stat(id string, kind Kind) FileInfo {
	path := s.PathFor(id, kind)
	result := FileInfo{Kind: kind, Path: path}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return result
	}
	result.Exists = true
	result.Size = info.Size()
	result.ModTime = info.ModTime()
	return result
}

// StatAll describes every artifact kind for id in pipeline order.
func (s *Store) StatAll(id string) []FileInfo {
	infos := make([]FileInfo, 0, len(Kinds))
	for _, kind := range Kinds {
		infos = append(infos, s.Stat(id, kind))
	}
	return infos
}

// ReadText loads a textual artifact, falling back across encodings when the
// file is not valid UTF-8. Failures carry services.ErrStorage.
func (s *Store) ReadText(id string, kind Kind) (string, error) {
	path := s.PathFor(id, kind)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "artifacts", "read "+string(kind), path, err)
	}
	text, encoding, err := DecodeText(data)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "artifacts", "decode "+string(kind), path, err)
	}
	if encoding != "utf-8" {
		s.logger.Info("decoded artifact with fallback encoding",
			logging.String(logging.FieldVideoID, id),
			logging.String("kind", string(kind)),
			logging.String("encoding", encoding),
			logging.String(logging.FieldEventType, "artifact_decode_fallback"),
		)
	}
	return text, nil
}

// WriteText atomically replaces a textual artifact and returns its path.
func (s *Store) WriteText(id string, kind Kind, text string) (string, error) {
	path := s.PathFor(id, kind)
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return "", services.Wrap(services.ErrStorage, "artifacts", "write "+string(kind), path, err)
	}
	return path, nil
}

// DeleteAll removes every artifact kind for id. Missing files are not
// errors; each failure is logged and the remaining kinds are still removed.
func (s *Store) DeleteAll(id string) DeleteResult {
	result := DeleteResult{}
	for _, kind := range Kinds {
		path := s.PathFor(id, kind)
		err := os.Remove(path)
		switch {
		case err == nil:
			result.Removed = append(result.Removed, path)
		case errors.Is(err, fs.ErrNotExist):
		default:
			result.Errors = append(result.Errors, PathError{Path: path, Error: err})
			logging.WarnWithContext(s.logger, "artifact removal failed", "artifact_delete_failed",
				logging.String(logging.FieldVideoID, id),
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}
	if len(result.Removed) > 0 {
		s.logger.Info("artifacts removed",
			logging.String(logging.FieldVideoID, id),
			logging.Int("count", len(result.Removed)),
			logging.String(logging.FieldEventType, "artifacts_removed"),
		)
	}
	return result
}

// SweepStale removes artifact files last modified before now-maxAge. It
// covers runs that failed before a cleanup was scheduled. Files that do not
// follow the artifact naming scheme are left alone.
func (s *Store) SweepStale(maxAge time.Duration) DeleteResult {
	result := DeleteResult{}
	if maxAge <= 0 {
		return result
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, PathError{Path: s.dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, _, ok := ParseFileName(entry.Name()); !ok {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, PathError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, PathError{Path: path, Error: err})
			logging.WarnWithContext(s.logger, "failed to remove stale artifact", "artifact_sweep_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		s.logger.Info("removed stale artifact",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "artifact_swept"),
		)
	}
	return result
}

// ParseFileName splits an artifact file name into identifier and kind.
func ParseFileName(name string) (string, Kind, bool) {
	for _, kind := range Kinds {
		suffix := "_" + string(kind) + "." + kind.Extension()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		id := strings.TrimSuffix(name, suffix)
		if !videoid.Valid(id) {
			return "", "", false
		}
		return id, kind, true
	}
	return "", "", false
}
