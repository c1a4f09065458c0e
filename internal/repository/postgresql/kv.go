package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/storage"
	"github.com/jackc/pgx/v5"
)

// keyValueRepository stores the agent cache in a shared Postgres table,
// namespaced per device so several kiosks can share one database.
type keyValueRepository struct {
	db        *database.DB
	namespace string
}

func NewKeyValueRepository(db *database.DB, namespace string) storage.KeyValueStore {
	return &keyValueRepository{db: db, namespace: namespace}
}

// EnsureSchema creates the cache table when it does not exist.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS agent_kv (
			namespace  TEXT        NOT NULL,
			key        TEXT        NOT NULL,
			value      TEXT        NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (namespace, key)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure agent_kv table: %w", err)
	}
	return nil
}

// Get implements storage.KeyValueStore.
func (r *keyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	q := GetQuerier(ctx, r.db)

	var value string
	err := q.QueryRow(ctx, `
		SELECT value FROM agent_kv
		WHERE namespace = $1 AND key = $2
	`, r.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key %q: %w", key, err)
	}

	return value, true, nil
}

// Set implements storage.KeyValueStore.
func (r *keyValueRepository) Set(ctx context.Context, key string, value string) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO agent_kv (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, r.namespace, key, value)
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}

	return nil
}

// SetMany implements storage.KeyValueStore.
func (r *keyValueRepository) SetMany(ctx context.Context, entries map[string]string) error {
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		for k, v := range entries {
			if err := r.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete implements storage.KeyValueStore.
func (r *keyValueRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		DELETE FROM agent_kv
		WHERE namespace = $1 AND key = ANY($2)
	`, r.namespace, keys)
	if err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	return nil
}

// Close implements storage.KeyValueStore.
func (r *keyValueRepository) Close() error {
	r.db.Close()
	return nil
}
