// Package jsonfile implements the durable JSON document store backing agent
// reference data and append-only logs.
//
// The store fails soft at the persistence boundary: a missing file is
// materialized from a caller-supplied default, and malformed content degrades
// to the default instead of raising into the conversation. Writes are atomic
// from the reader's point of view (temp file + fsync + rename); there is
// exactly one writer per path per process, so no locking is needed.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/domain"
)

// Store reads and rewrites whole JSON documents on the local filesystem.
type Store struct {
	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the diagnostics logger. Persistence failures are recorded
// here but never propagated as fatal faults to the conversation.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithHooks registers lifecycle hooks fired on every flush.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadOrInit reads the document at path into out. If the file does not
// exist, def is written to path and decoded into out. If the content is
// malformed, def is decoded into out and the file is left untouched.
func (s *Store) LoadOrInit(ctx context.Context, path string, out, def any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read document %s: %w", path, err)
		}
		s.logger.Info("document missing, materializing default", "path", path)
		if err := s.Overwrite(ctx, path, def); err != nil {
			// Degrade to the in-memory default; the conversation continues.
			s.logger.Error("failed to materialize default document", "path", path, "err", err)
		}
		return reencode(def, out)
	}

	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("document malformed, substituting default", "path", path, "err", err)
		return reencode(def, out)
	}
	return nil
}

// Overwrite rewrites the whole document at path atomically.
// It writes to a temporary file in the same directory, syncs via fsync,
// and renames it over the destination.
func (s *Store) Overwrite(ctx context.Context, path string, doc any) error {
	err := s.overwrite(path, doc)
	s.fireHook(ctx, path, "overwrite", err)
	return err
}

func (s *Store) overwrite(path string, doc any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure document directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// Append reads the collection at path, appends record, and rewrites the
// whole file. A missing, malformed, or non-list file is treated as an empty
// collection.
func (s *Store) Append(ctx context.Context, path string, record any) error {
	entries := s.readLogRaw(path)

	data, err := json.Marshal(record)
	if err != nil {
		s.fireHook(ctx, path, "append", err)
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	entries = append(entries, json.RawMessage(data))

	err = s.overwrite(path, entries)
	s.fireHook(ctx, path, "append", err)
	return err
}

// ReadLog decodes the collection at path into out. A missing or malformed
// file decodes as an empty collection.
func (s *Store) ReadLog(path string, out any) error {
	entries := s.readLogRaw(path)
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to re-marshal log entries: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode log %s: %w", path, err)
	}
	return nil
}

func (s *Store) readLogRaw(path string) []json.RawMessage {
	entries := []json.RawMessage{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read log, treating as empty", "path", path, "err", err)
		}
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("log malformed, treating as empty", "path", path, "err", err)
		return []json.RawMessage{}
	}
	return entries
}

func (s *Store) fireHook(ctx context.Context, path, op string, err error) {
	if err != nil {
		s.logger.Error("persistence failure", "path", path, "op", op, "err", err)
	}
	if s.hooks.OnPersist == nil {
		return
	}
	s.hooks.OnPersist(ctx, &domain.PersistEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventPersist,
		},
		Path:    path,
		Op:      op,
		IsError: err != nil,
	})
}

func reencode(def, out any) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal default document: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode default document: %w", err)
	}
	return nil
}
