package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/auth"
)

type AttendanceJobs struct {
	store       attendance.SessionStore
	clock       attendance.ClockService
	authService auth.AuthService
	interval    time.Duration
}

func NewAttendanceJobs(store attendance.SessionStore, clock attendance.ClockService, authService auth.AuthService, interval time.Duration) *AttendanceJobs {
	return &AttendanceJobs{
		store:       store,
		clock:       clock,
		authService: authService,
		interval:    interval,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("check_session_expiry", time.Minute, j.CheckSessionExpiry)
	scheduler.AddJob("refresh_attendance_cache", j.interval, j.RefreshAttendanceCache)
}

// RefreshAttendanceCache pulls the server view while a session exists. It
// stays out of the way of a running punch, which refreshes on its own.
func (j *AttendanceJobs) RefreshAttendanceCache(ctx context.Context) error {
	if _, err := j.authService.Session(ctx); err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			return ErrSkipped
		}
		return err
	}
	if j.clock != nil && j.clock.Busy() {
		return ErrSkipped
	}

	if err := j.store.Refresh(ctx); err != nil {
		return err
	}

	slog.Debug("Cron: attendance cache refreshed", "status", j.store.Status())
	return nil
}

// CheckSessionExpiry drops a stored token once its exp claim has passed.
func (j *AttendanceJobs) CheckSessionExpiry(ctx context.Context) error {
	return j.authService.CheckExpiry(ctx)
}
