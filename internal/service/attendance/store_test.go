package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/events"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/repository/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFixture struct {
	store  attendance.SessionStore
	kv     *storage.MemoryStorage
	remote *fakeRemote
	clock  *fakeClock
	bus    *events.Bus
}

func newStoreFixture(t *testing.T) storeFixture {
	t.Helper()
	f := storeFixture{
		kv:     storage.NewMemoryStorage(),
		remote: &fakeRemote{},
		clock:  &fakeClock{now: time.Date(2026, 10, 19, 8, 45, 0, 0, wib)},
		bus:    events.NewBus(),
	}
	f.store = NewSessionStore(cache.NewAttendanceRepository(f.kv), f.remote, f.bus, StoreConfig{
		Location:  wib,
		LateAfter: 9*time.Hour + 30*time.Minute,
		Now:       f.clock.Now,
	})
	return f
}

func countOpen(records []attendance.Record) int {
	n := 0
	for _, r := range records {
		if r.IsOpen() {
			n++
		}
	}
	return n
}

func TestMarkAttendance_AlternatesStatus(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	prev := f.store.Status()
	assert.Equal(t, attendance.StatusNotMarked, prev)

	for i := 0; i < 7; i++ {
		f.clock.Advance(time.Minute)
		f.store.MarkAttendance(ctx)
		cur := f.store.Status()
		assert.NotEqual(t, prev, cur, "call %d repeated status", i)
		if i%2 == 0 {
			assert.Equal(t, attendance.StatusClockedIn, cur)
		} else {
			assert.Equal(t, attendance.StatusClockedOut, cur)
		}
		assert.LessOrEqual(t, countOpen(f.store.Records()), 1)
		prev = cur
	}
}

func TestMarkAttendance_PunchInThenOut(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	in := f.store.MarkAttendance(ctx)
	assert.Equal(t, attendance.StatusClockedIn, f.store.Status())
	records := f.store.Records()
	require.Len(t, records, 1)
	assert.Nil(t, records[0].OutTime)
	assert.Equal(t, "2026-10-19", records[0].Date)
	assert.Equal(t, attendance.RecordPresent, records[0].Status)

	f.clock.Advance(8 * time.Hour)
	out := f.store.MarkAttendance(ctx)
	assert.Equal(t, attendance.StatusClockedOut, f.store.Status())
	assert.Equal(t, in.ID, out.ID)

	records = f.store.Records()
	require.Len(t, records, 1)
	require.NotNil(t, records[0].OutTime)
	assert.False(t, records[0].OutTime.Before(records[0].InTime))
}

func TestMarkAttendance_OutTimeNeverBeforeInTime(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	f.store.MarkAttendance(ctx)
	f.clock.Advance(-time.Hour)
	rec := f.store.MarkAttendance(ctx)

	require.NotNil(t, rec.OutTime)
	assert.True(t, rec.OutTime.Equal(rec.InTime))
}

func TestMarkAttendance_LateCheckIn(t *testing.T) {
	f := newStoreFixture(t)
	f.clock.Advance(time.Hour)

	rec := f.store.MarkAttendance(context.Background())
	assert.Equal(t, attendance.RecordLate, rec.Status)
}

func TestMarkAttendance_PersistsAndPublishes(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	ch, unsubscribe := f.bus.Subscribe(events.KindStatusChanged)
	defer unsubscribe()

	rec := f.store.MarkAttendance(ctx)

	raw, ok, err := f.kv.Get(ctx, storage.KeyCurrentAttendanceStatus)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "clocked-in", raw)

	select {
	case ev := <-ch:
		payload, ok := ev.Payload.(events.StatusChanged)
		require.True(t, ok)
		assert.Equal(t, "clocked-in", payload.Status)
		assert.Equal(t, rec.ID, payload.RecordID)
		assert.Equal(t, "punch", payload.Source)
	case <-time.After(time.Second):
		t.Fatal("expected status_changed event")
	}
}

func TestLoadFromStorage_RestoresState(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.store.MarkAttendance(ctx)

	reloaded := NewSessionStore(cache.NewAttendanceRepository(f.kv), f.remote, f.bus, StoreConfig{Location: wib, Now: f.clock.Now})
	reloaded.LoadFromStorage(ctx)

	assert.Equal(t, attendance.StatusClockedIn, reloaded.Status())
	assert.Len(t, reloaded.Records(), 1)
}

func TestLoadFromStorage_CorruptFallsBack(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	require.NoError(t, f.kv.SetMany(ctx, map[string]string{
		storage.KeyCurrentAttendanceStatus: "sleeping",
		storage.KeyAttendanceRecords:       "not json",
	}))

	f.store.LoadFromStorage(ctx)
	assert.Equal(t, attendance.StatusNotMarked, f.store.Status())
	assert.Empty(t, f.store.Records())
}

func TestLoadFromStorage_SealsStrayOpenRecords(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	require.NoError(t, f.kv.SetMany(ctx, map[string]string{
		storage.KeyCurrentAttendanceStatus: "clocked-in",
		storage.KeyAttendanceRecords: `[
			{"id":"b","date":"2026-10-19","inTime":"2026-10-19T08:00:00+07:00","outTime":null,"status":"present"},
			{"id":"a","date":"2026-10-18","inTime":"2026-10-18T08:00:00+07:00","outTime":null,"status":"present"}
		]`,
	}))

	f.store.LoadFromStorage(ctx)
	records := f.store.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 1, countOpen(records))
	assert.True(t, records[0].IsOpen())
}

func TestStats(t *testing.T) {
	assert.Equal(t, attendance.Stats{}, computeStats(nil))

	records := []attendance.Record{
		{Status: attendance.RecordPresent},
		{Status: attendance.RecordPresent},
		{Status: attendance.RecordLate},
		{Status: attendance.RecordAbsent},
		{Status: "leave"},
		{Status: attendance.RecordPresent},
	}
	stats := computeStats(records)
	assert.Equal(t, 6, stats.TotalDays)
	assert.Equal(t, 3, stats.PresentDays)
	assert.Equal(t, 1, stats.LateDays)
	assert.Equal(t, 2, stats.AbsentDays)
	assert.Equal(t, stats.TotalDays, stats.PresentDays+stats.LateDays+stats.AbsentDays)
	assert.Equal(t, 50, stats.AttendanceRate)

	two := computeStats([]attendance.Record{{Status: attendance.RecordPresent}, {Status: attendance.RecordPresent}, {Status: attendance.RecordLate}})
	assert.Equal(t, 67, two.AttendanceRate)
}

func TestTodayRecord(t *testing.T) {
	f := newStoreFixture(t)
	_, ok := f.store.TodayRecord()
	assert.False(t, ok)

	rec := f.store.MarkAttendance(context.Background())
	today, ok := f.store.TodayRecord()
	require.True(t, ok)
	assert.Equal(t, rec.ID, today.ID)

	f.clock.Advance(24 * time.Hour)
	_, ok = f.store.TodayRecord()
	assert.False(t, ok)
}

func TestRefresh_DerivesStateFromServer(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.clock.Advance(5 * time.Hour)

	loc := "Kuningan"
	f.remote.today = []attendance.PunchLog{
		{ID: "11", CheckIn: ptrTime(time.Date(2026, 10, 19, 8, 0, 0, 0, wib)), CheckOut: ptrTime(time.Date(2026, 10, 19, 12, 0, 0, 0, wib)), Location: &loc},
		{ID: "12", CheckIn: ptrTime(time.Date(2026, 10, 19, 13, 0, 0, 0, wib))},
	}
	f.remote.report = attendance.MonthlyReport{Rows: []attendance.ReportRow{
		{Date: "2026-10-16", CheckIn: ptrTime(time.Date(2026, 10, 16, 9, 45, 0, 0, wib)), Status: "late"},
		{Date: "2026-10-17", Status: "absent"},
		{Date: "2026-10-19", CheckIn: ptrTime(time.Date(2026, 10, 19, 8, 0, 0, 0, wib)), Status: "present"},
		{Date: "2026-10-20", Status: "absent"},
	}}

	require.NoError(t, f.store.Refresh(ctx))

	assert.Equal(t, attendance.StatusClockedIn, f.store.Status())
	records := f.store.Records()
	require.Len(t, records, 4)
	assert.Equal(t, "12", records[0].ID)
	assert.Equal(t, "11", records[1].ID)
	assert.Equal(t, "report-2026-10-17", records[2].ID)
	assert.Equal(t, "report-2026-10-16", records[3].ID)
	assert.Equal(t, 1, countOpen(records))
	assert.Equal(t, attendance.RecordPresent, records[0].Status)

	today, ok := f.store.TodayRecord()
	require.True(t, ok)
	assert.Equal(t, "12", today.ID)
}

func TestRefresh_ClockedOutAndNotMarked(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	f.remote.today = []attendance.PunchLog{
		{ID: "1", CheckIn: ptrTime(time.Date(2026, 10, 19, 7, 0, 0, 0, wib)), CheckOut: ptrTime(time.Date(2026, 10, 19, 8, 0, 0, 0, wib))},
	}
	require.NoError(t, f.store.Refresh(ctx))
	assert.Equal(t, attendance.StatusClockedOut, f.store.Status())

	f.remote.today = nil
	require.NoError(t, f.store.Refresh(ctx))
	assert.Equal(t, attendance.StatusNotMarked, f.store.Status())
}

func TestRefresh_OpenSessionWithUnparsedCheckIn(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	f.remote.today = []attendance.PunchLog{
		{ID: "1", CheckIn: ptrTime(time.Date(2026, 10, 19, 7, 0, 0, 0, wib)), CheckOut: ptrTime(time.Date(2026, 10, 19, 8, 0, 0, 0, wib))},
		{ID: "2"},
	}
	require.NoError(t, f.store.Refresh(ctx))

	assert.Equal(t, attendance.StatusClockedIn, f.store.Status())
	records := f.store.Records()
	assert.Equal(t, 1, countOpen(records))

	today, ok := f.store.TodayRecord()
	require.True(t, ok)
	assert.Equal(t, "2", today.ID)
	assert.Nil(t, today.OutTime)

	f.store.MarkAttendance(ctx)
	assert.Equal(t, attendance.StatusClockedOut, f.store.Status())
	assert.Zero(t, countOpen(f.store.Records()))
}

func TestRefresh_LastEntryDecidesStatus(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	f.remote.today = []attendance.PunchLog{
		{ID: "1", CheckOut: ptrTime(time.Date(2026, 10, 19, 8, 0, 0, 0, wib))},
	}
	require.NoError(t, f.store.Refresh(ctx))
	assert.Equal(t, attendance.StatusClockedOut, f.store.Status())
	assert.Empty(t, f.store.Records())
}

func TestRefresh_TodayFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.store.MarkAttendance(ctx)

	f.remote.todayErr = errors.New("offline")
	err := f.store.Refresh(ctx)
	require.Error(t, err)

	assert.Equal(t, attendance.StatusClockedIn, f.store.Status())
	assert.Len(t, f.store.Records(), 1)
}

func TestRefresh_ReportFailureKeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	require.NoError(t, f.kv.SetMany(ctx, map[string]string{
		storage.KeyCurrentAttendanceStatus: "clocked-out",
		storage.KeyAttendanceRecords: `[
			{"id":"old","date":"2026-10-18","inTime":"2026-10-18T08:00:00+07:00","outTime":"2026-10-18T17:00:00+07:00","status":"present"}
		]`,
	}))
	f.store.LoadFromStorage(ctx)

	f.remote.today = []attendance.PunchLog{{ID: "new", CheckIn: ptrTime(time.Date(2026, 10, 19, 8, 30, 0, 0, wib))}}
	f.remote.reportErr = errors.New("report down")

	require.NoError(t, f.store.Refresh(ctx))
	records := f.store.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].ID)
	assert.Equal(t, "old", records[1].ID)
}
