package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LocalStorage keeps all keys in one JSON file, rewritten atomically on
// every change.
type LocalStorage struct {
	path   string
	mu     sync.Mutex
	data   map[string]string
	closed bool
}

func NewLocalStorage(path string) (*LocalStorage, error) {
	// Create base directory if not exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	s := &LocalStorage{
		path: filepath.Clean(path),
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	if len(raw) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		// Keep the broken file for inspection and start empty.
		backup := s.path + ".corrupt"
		slog.Warn("Local storage file is corrupt, starting empty",
			"path", s.path, "backup", backup, "error", err)
		_ = os.Rename(s.path, backup)
		s.data = make(map[string]string)
	}

	return s, nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *LocalStorage) Set(ctx context.Context, key string, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

func (s *LocalStorage) SetMany(ctx context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	next := make(map[string]string, len(s.data)+len(entries))
	for k, v := range s.data {
		next[k] = v
	}
	for k, v := range entries {
		next[k] = v
	}

	if err := s.flush(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *LocalStorage) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	next := make(map[string]string, len(s.data))
	for k, v := range s.data {
		next[k] = v
	}
	for _, k := range keys {
		delete(next, k)
	}

	if err := s.flush(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *LocalStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// flush writes data to a temp file in the same directory and renames it
// over the storage file.
func (s *LocalStorage) flush(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode storage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}
