package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/storage"
)

type KeyValueStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.KeyValueStore = (*KeyValueStore)(nil)

func NewKeyValueStore(db *sql.DB) *KeyValueStore {
	return &KeyValueStore{db: db, now: time.Now}
}

func (s *KeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?;`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *KeyValueStore) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// SetMany writes all entries in one transaction so status and records never
// diverge on disk.
func (s *KeyValueStore) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	nowMs := s.now().UTC().UnixMilli()
	for k, v := range entries {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO kv_entries(key, value, updated_at_ms) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_ms = excluded.updated_at_ms;`,
			k, v, nowMs,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *KeyValueStore) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?;`, k); err != nil {
			return fmt.Errorf("delete %q: %w", k, err)
		}
	}
	return nil
}

func (s *KeyValueStore) Close() error {
	return s.db.Close()
}
