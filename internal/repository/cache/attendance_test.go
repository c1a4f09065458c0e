package cache

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStorage()
	repo := NewAttendanceRepository(kv)

	in := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	loc := "Springfield"
	records := []attendance.Record{
		{ID: "a", Date: "2026-10-19", InTime: in, Status: attendance.RecordPresent, Location: &loc},
	}
	require.NoError(t, repo.Save(ctx, attendance.StatusClockedIn, records))

	raw, ok, err := kv.Get(ctx, storage.KeyCurrentAttendanceStatus)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "clocked-in", raw)

	raw, _, _ = kv.Get(ctx, storage.KeyAttendanceRecords)
	assert.Contains(t, raw, `"inTime":"2026-10-19T08:00:00Z"`)
	assert.Contains(t, raw, `"outTime":null`)

	status, err := repo.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusClockedIn, status)

	got, err := repo.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].InTime.Equal(in))
	assert.True(t, got[0].IsOpen())
}

func TestAttendanceRepository_MissingKeys(t *testing.T) {
	repo := NewAttendanceRepository(storage.NewMemoryStorage())

	status, err := repo.LoadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusNotMarked, status)

	records, err := repo.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestAttendanceRepository_CorruptValues(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStorage()
	require.NoError(t, kv.SetMany(ctx, map[string]string{
		storage.KeyCurrentAttendanceStatus: "on-break",
		storage.KeyAttendanceRecords:       "{oops",
	}))
	repo := NewAttendanceRepository(kv)

	status, err := repo.LoadStatus(ctx)
	assert.Error(t, err)
	assert.Equal(t, attendance.StatusNotMarked, status)

	records, err := repo.LoadRecords(ctx)
	assert.Error(t, err)
	assert.Empty(t, records)
}
