package http

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/auth"
)

type fakeStore struct {
	mu         sync.Mutex
	status     attendance.Status
	records    []attendance.Record
	refreshed  int
	refreshErr error
}

func (s *fakeStore) LoadFromStorage(ctx context.Context) {}

func (s *fakeStore) MarkAttendance(ctx context.Context) attendance.Record {
	return attendance.Record{}
}

func (s *fakeStore) Status() attendance.Status {
	if s.status == "" {
		return attendance.StatusNotMarked
	}
	return s.status
}

func (s *fakeStore) Records() []attendance.Record {
	return append([]attendance.Record(nil), s.records...)
}

func (s *fakeStore) TodayRecord() (attendance.Record, bool) {
	if len(s.records) == 0 {
		return attendance.Record{}, false
	}
	return s.records[0], true
}

func (s *fakeStore) Stats() attendance.Stats {
	return attendance.Stats{TotalDays: len(s.records), PresentDays: len(s.records), AttendanceRate: 100}
}

func (s *fakeStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshed++
	return s.refreshErr
}

type fakeClockService struct {
	busy   bool
	err    error
	result attendance.PunchResult

	// what the handler handed over
	state           attendance.PermissionState
	prompt          bool
	sample          attendance.LocationSample
	locErr          error
	allowNoLocation bool
}

func (c *fakeClockService) Busy() bool { return c.busy }

func (c *fakeClockService) Punch(ctx context.Context, req attendance.PunchRequest) (attendance.PunchResult, error) {
	c.state, _ = req.Permission.Check(ctx)
	c.prompt, _ = req.Permission.Prompt(ctx)
	c.sample, c.locErr = req.Location.Current(ctx)
	c.allowNoLocation = req.AllowNoLocation
	return c.result, c.err
}

type fakeReportService struct {
	filter attendance.ReportFilter
	err    error
}

func (r *fakeReportService) MonthlyReport(ctx context.Context, filter attendance.ReportFilter) (attendance.ReportResponse, error) {
	if err := filter.Validate(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)); err != nil {
		return attendance.ReportResponse{}, err
	}
	r.filter = filter
	return attendance.ReportResponse{Month: filter.Month, Year: filter.Year, Report: []attendance.ReportRowResponse{}}, r.err
}

type fakeAuthService struct {
	session   auth.SessionResponse
	saved     *auth.SessionRequest
	loggedOut string
}

func (a *fakeAuthService) SaveSession(ctx context.Context, req auth.SessionRequest) (auth.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.SessionResponse{}, err
	}
	a.saved = &req
	a.session = auth.SessionResponse{Authenticated: true, Subject: "42"}
	return a.session, nil
}

func (a *fakeAuthService) Session(ctx context.Context) (auth.SessionResponse, error) {
	if !a.session.Authenticated {
		return auth.SessionResponse{}, auth.ErrNotAuthenticated
	}
	return a.session, nil
}

func (a *fakeAuthService) Logout(ctx context.Context, reason string) error {
	a.loggedOut = reason
	a.session = auth.SessionResponse{}
	return nil
}

func (a *fakeAuthService) Expire(ctx context.Context, code, message string) {}

func (a *fakeAuthService) CheckExpiry(ctx context.Context) error { return nil }
