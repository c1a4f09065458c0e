package postgresql_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, postgresql.EnsureSchema(ctx, db))
	return db
}

func TestKeyValueRepository_SetGetDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ns := "test-" + uuid.NewString()
	repo := postgresql.NewKeyValueRepository(db, ns)
	t.Cleanup(func() {
		_, _ = db.Exec(ctx, "DELETE FROM agent_kv WHERE namespace = $1", ns)
		_ = repo.Close()
	})

	require.NoError(t, repo.SetMany(ctx, map[string]string{
		storage.KeyCurrentAttendanceStatus: "clocked-in",
		storage.KeyAttendanceRecords:       "[]",
	}))
	require.NoError(t, repo.Set(ctx, storage.KeyCurrentAttendanceStatus, "clocked-out"))

	v, ok, err := repo.Get(ctx, storage.KeyCurrentAttendanceStatus)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "clocked-out", v)

	require.NoError(t, repo.Delete(ctx, storage.KeyCurrentAttendanceStatus, storage.KeyAttendanceRecords))
	_, ok, err = repo.Get(ctx, storage.KeyAttendanceRecords)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ns := "test-" + uuid.NewString()
	repo := postgresql.NewKeyValueRepository(db, ns)
	t.Cleanup(func() {
		_, _ = db.Exec(ctx, "DELETE FROM agent_kv WHERE namespace = $1", ns)
	})

	boom := errors.New("boom")
	err := postgresql.WithTransaction(ctx, db, func(ctx context.Context) error {
		require.NoError(t, repo.Set(ctx, storage.KeyUser, "{}"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok, err := repo.Get(ctx, storage.KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
}
