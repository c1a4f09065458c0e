package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/events"
	"github.com/google/uuid"
)

type StoreConfig struct {
	// Location is the device zone used for record dates. Defaults to time.Local.
	Location *time.Location

	// LateAfter is the offset since local midnight after which a check-in
	// counts as late. Zero disables late marking.
	LateAfter time.Duration

	Now func() time.Time
}

type SessionStoreImpl struct {
	mu      sync.RWMutex
	status  attendance.Status
	records []attendance.Record

	cache  attendance.CacheRepository
	remote attendance.RemoteRepository
	bus    *events.Bus

	loc       *time.Location
	lateAfter time.Duration
	now       func() time.Time
}

// LoadFromStorage implements attendance.SessionStore.
func (s *SessionStoreImpl) LoadFromStorage(ctx context.Context) {
	status, err := s.cache.LoadStatus(ctx)
	if err != nil {
		slog.Warn("failed to load cached attendance status, using default", "error", err)
		status = attendance.StatusNotMarked
	}

	records, err := s.cache.LoadRecords(ctx)
	if err != nil {
		slog.Warn("failed to load cached attendance records, using empty list", "error", err)
		records = []attendance.Record{}
	}

	s.mu.Lock()
	s.status = status
	s.records = sealStrayOpen(records)
	s.mu.Unlock()

	slog.Debug("attendance state loaded from storage", "status", status, "records", len(records))
	s.bus.Publish(events.KindStatusChanged, events.StatusChanged{Status: string(status), Source: "storage"})
}

// MarkAttendance implements attendance.SessionStore.
func (s *SessionStoreImpl) MarkAttendance(ctx context.Context) attendance.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().In(s.loc)
	next := s.status.Next()

	var rec attendance.Record
	if next == attendance.StatusClockedIn {
		// a stray open session must not survive a new check-in
		for i := range s.records {
			if s.records[i].IsOpen() {
				out := laterOf(now, s.records[i].InTime)
				s.records[i].OutTime = &out
			}
		}

		rec = attendance.Record{
			ID:     uuid.Must(uuid.NewV7()).String(),
			Date:   now.Format(attendance.DateLayout),
			InTime: now,
			Status: s.dayStatus(now),
		}
		s.records = append([]attendance.Record{rec}, s.records...)
	} else {
		idx := -1
		for i := range s.records {
			if s.records[i].IsOpen() {
				idx = i
				break
			}
		}
		if idx >= 0 {
			out := laterOf(now, s.records[idx].InTime)
			s.records[idx].OutTime = &out
			rec = s.records[idx]
		} else {
			slog.Warn("clock-out without an open attendance record")
		}
	}

	s.status = next
	s.persistLocked(ctx)

	s.bus.Publish(events.KindStatusChanged, events.StatusChanged{
		Status:   string(next),
		RecordID: rec.ID,
		Source:   "punch",
	})

	return rec
}

// Status implements attendance.SessionStore.
func (s *SessionStoreImpl) Status() attendance.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Records implements attendance.SessionStore.
func (s *SessionStoreImpl) Records() []attendance.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]attendance.Record, len(s.records))
	copy(out, s.records)
	return out
}

// TodayRecord implements attendance.SessionStore.
func (s *SessionStoreImpl) TodayRecord() (attendance.Record, bool) {
	today := s.now().In(s.loc).Format(attendance.DateLayout)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  attendance.Record
		found bool
	)
	for _, r := range s.records {
		if r.Date != today {
			continue
		}
		if !found || r.InTime.After(best.InTime) {
			best, found = r, true
		}
	}
	return best, found
}

// Stats implements attendance.SessionStore.
func (s *SessionStoreImpl) Stats() attendance.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeStats(s.records)
}

func computeStats(records []attendance.Record) attendance.Stats {
	stats := attendance.Stats{TotalDays: len(records)}
	for _, r := range records {
		switch r.Status {
		case attendance.RecordPresent:
			stats.PresentDays++
		case attendance.RecordLate:
			stats.LateDays++
		default:
			stats.AbsentDays++
		}
	}
	if stats.TotalDays > 0 {
		stats.AttendanceRate = int(math.Round(float64(stats.PresentDays) / float64(stats.TotalDays) * 100))
	}
	return stats
}

// Refresh implements attendance.SessionStore. The today log decides the
// status; the monthly report fills the other days. When the report cannot
// be fetched the cached records of other days are kept.
func (s *SessionStoreImpl) Refresh(ctx context.Context) error {
	logs, err := s.remote.Today(ctx)
	if err != nil {
		return fmt.Errorf("fetch today log: %w", err)
	}

	now := s.now().In(s.loc)
	today := now.Format(attendance.DateLayout)

	report, reportErr := s.remote.MonthlyReport(ctx, int(now.Month()), now.Year())
	if reportErr != nil {
		slog.Warn("failed to fetch monthly report, keeping cached history", "error", reportErr)
	}

	status := deriveStatus(logs)
	todays := s.recordsFromLogs(logs, today, now)

	s.mu.Lock()
	defer s.mu.Unlock()

	var history []attendance.Record
	if reportErr == nil {
		history = s.recordsFromReport(report, today)
	} else {
		for _, r := range s.records {
			if r.Date != today {
				history = append(history, r)
			}
		}
	}

	records := append(todays, history...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].InTime.After(records[j].InTime)
	})

	s.status = status
	s.records = sealStrayOpen(records)
	s.persistLocked(ctx)

	slog.Debug("attendance state refreshed", "status", status, "records", len(s.records))
	s.bus.Publish(events.KindStatusChanged, events.StatusChanged{Status: string(status), Source: "refresh"})

	return nil
}

// deriveStatus: the last entry decides. No check_out means the session is open.
func deriveStatus(logs []attendance.PunchLog) attendance.Status {
	if len(logs) == 0 {
		return attendance.StatusNotMarked
	}
	if logs[len(logs)-1].CheckOut == nil {
		return attendance.StatusClockedIn
	}
	return attendance.StatusClockedOut
}

// recordsFromLogs converts today's log. An open entry whose check_in did
// not parse is anchored at now so the session can still be closed.
func (s *SessionStoreImpl) recordsFromLogs(logs []attendance.PunchLog, today string, now time.Time) []attendance.Record {
	if len(logs) == 0 {
		return nil
	}
	if last := &logs[len(logs)-1]; last.CheckIn == nil && last.CheckOut == nil {
		slog.Warn("open session has no parsable check_in, anchoring at now", "id", last.ID)
		anchored := *last
		anchored.CheckIn = &now
		logs = append(logs[:len(logs)-1:len(logs)-1], anchored)
	}

	var first *time.Time
	for _, l := range logs {
		if l.CheckIn != nil && (first == nil || l.CheckIn.Before(*first)) {
			first = l.CheckIn
		}
	}
	if first == nil {
		return nil
	}
	dayStatus := s.dayStatus(first.In(s.loc))

	records := make([]attendance.Record, 0, len(logs))
	for _, l := range logs {
		if l.CheckIn == nil {
			continue
		}
		id := l.ID
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		rec := attendance.Record{
			ID:       id,
			Date:     today,
			InTime:   l.CheckIn.In(s.loc),
			Status:   dayStatus,
			Location: l.Location,
		}
		if l.CheckOut != nil {
			out := l.CheckOut.In(s.loc)
			rec.OutTime = &out
		}
		records = append(records, rec)
	}
	return records
}

// recordsFromReport converts past report days to closed records. Days
// without punches are anchored at local midnight.
func (s *SessionStoreImpl) recordsFromReport(report attendance.MonthlyReport, today string) []attendance.Record {
	records := make([]attendance.Record, 0, len(report.Rows))
	for _, row := range report.Rows {
		if row.Date == "" || row.Date >= today {
			continue
		}
		day, err := time.ParseInLocation(attendance.DateLayout, row.Date, s.loc)
		if err != nil {
			slog.Warn("skipping report row with invalid date", "date", row.Date)
			continue
		}

		rec := attendance.Record{ID: "report-" + row.Date, Date: row.Date, Status: row.Status}
		if row.CheckIn != nil {
			rec.InTime = row.CheckIn.In(s.loc)
			out := rec.InTime
			if row.CheckOut != nil {
				out = laterOf(row.CheckOut.In(s.loc), rec.InTime)
			}
			rec.OutTime = &out
			if rec.Status == "" {
				rec.Status = s.dayStatus(rec.InTime)
			}
		} else {
			rec.InTime = day
			rec.OutTime = &day
			if rec.Status == "" {
				rec.Status = attendance.RecordAbsent
			}
		}
		records = append(records, rec)
	}
	return records
}

func (s *SessionStoreImpl) dayStatus(in time.Time) string {
	if s.lateAfter <= 0 {
		return attendance.RecordPresent
	}
	midnight := time.Date(in.Year(), in.Month(), in.Day(), 0, 0, 0, 0, in.Location())
	if in.Sub(midnight) > s.lateAfter {
		return attendance.RecordLate
	}
	return attendance.RecordPresent
}

func (s *SessionStoreImpl) persistLocked(ctx context.Context) {
	if err := s.cache.Save(ctx, s.status, s.records); err != nil {
		slog.Error("failed to persist attendance state", "error", err)
	}
}

// sealStrayOpen keeps at most one open record, the most recent one. Records
// are assumed newest first.
func sealStrayOpen(records []attendance.Record) []attendance.Record {
	if records == nil {
		return []attendance.Record{}
	}
	var newest *attendance.Record
	for i := range records {
		if !records[i].IsOpen() {
			continue
		}
		if newest == nil || records[i].InTime.After(newest.InTime) {
			newest = &records[i]
		}
	}
	for i := range records {
		if records[i].IsOpen() && &records[i] != newest {
			out := records[i].InTime
			records[i].OutTime = &out
		}
	}
	return records
}

func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

func NewSessionStore(cache attendance.CacheRepository, remote attendance.RemoteRepository, bus *events.Bus, cfg StoreConfig) attendance.SessionStore {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SessionStoreImpl{
		status:    attendance.StatusNotMarked,
		records:   []attendance.Record{},
		cache:     cache,
		remote:    remote,
		bus:       bus,
		loc:       cfg.Location,
		lateAfter: cfg.LateAfter,
		now:       cfg.Now,
	}
}
