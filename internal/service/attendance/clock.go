package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/events"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/geo"
	"github.com/oklog/ulid/v2"
)

type ClockConfig struct {
	Offices         []attendance.Office
	EnforceGeofence bool
	Device          attendance.DeviceInfo
}

type ClockServiceImpl struct {
	busy atomic.Bool

	store  attendance.SessionStore
	remote attendance.RemoteRepository
	areas  attendance.AreaResolver
	bus    *events.Bus
	cfg    ClockConfig
}

// Busy implements attendance.ClockService.
func (c *ClockServiceImpl) Busy() bool {
	return c.busy.Load()
}

// Punch implements attendance.ClockService. Only one punch runs at a time;
// a concurrent call fails with ErrPunchInProgress.
func (c *ClockServiceImpl) Punch(ctx context.Context, req attendance.PunchRequest) (attendance.PunchResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.PunchResult{}, err
	}
	if !c.busy.CompareAndSwap(false, true) {
		return attendance.PunchResult{}, attendance.ErrPunchInProgress
	}
	defer c.busy.Store(false)

	direction := attendance.DirectionCheckIn
	if c.store.Status() == attendance.StatusClockedIn {
		direction = attendance.DirectionCheckOut
	}

	result := attendance.PunchResult{
		Direction: direction,
		Status:    c.store.Status(),
		Trace:     []attendance.Step{attendance.StepStart},
	}
	step := func(s attendance.Step) { result.Trace = append(result.Trace, s) }
	fail := func(at attendance.Step, terminal attendance.Step, err error) (attendance.PunchResult, error) {
		step(terminal)
		slog.Warn("punch failed", "direction", direction, "step", at, "error", err)
		c.bus.Publish(events.KindPunchFailed, events.PunchFailed{
			Direction: string(direction),
			Step:      string(at),
			Reason:    err.Error(),
		})
		return result, err
	}

	// CHECK_PERMISSION
	step(attendance.StepCheckPermission)
	state, err := req.Permission.Check(ctx)
	if err != nil {
		return fail(attendance.StepCheckPermission, attendance.StepSurfaceError, fmt.Errorf("check location permission: %w", err))
	}

	if state != attendance.PermissionGranted {
		// PROMPT_USER
		step(attendance.StepPromptUser)
		accepted, err := req.Permission.Prompt(ctx)
		if err != nil {
			return fail(attendance.StepPromptUser, attendance.StepAbort, fmt.Errorf("%w: %w", attendance.ErrPermissionDenied, err))
		}
		if !accepted {
			return fail(attendance.StepPromptUser, attendance.StepAbort, attendance.ErrPermissionDenied)
		}
	}

	// ACQUIRE_LOCATION
	step(attendance.StepAcquireLocation)
	var sample *attendance.LocationSample
	fix, err := req.Location.Current(ctx)
	switch {
	case err == nil:
		sample = &fix
	case req.AllowNoLocation && !c.cfg.EnforceGeofence && ctx.Err() == nil:
		slog.Warn("punching without a location fix", "direction", direction, "error", err)
	default:
		return fail(attendance.StepAcquireLocation, attendance.StepSurfaceError, fmt.Errorf("%w: %w", attendance.ErrLocationUnavailable, err))
	}

	if sample != nil && len(c.cfg.Offices) > 0 {
		office, distance, ok := geo.NearestOffice(sample.Latitude, sample.Longitude, c.cfg.Offices)
		if ok {
			within := geo.IsWithin(distance, office.RadiusMeters)
			result.NearestOffice = &office.Name
			result.DistanceMeters = &distance
			result.WithinGeofence = &within

			if c.cfg.EnforceGeofence && !within {
				return fail(attendance.StepAcquireLocation, attendance.StepSurfaceError,
					fmt.Errorf("%w: %.0fm from %s (radius %.0fm)", attendance.ErrOutsideGeofence, distance, office.Name, office.RadiusMeters))
			}
		}
	}

	// RESOLVE_AREA_NAME
	step(attendance.StepResolveAreaName)
	var areaName *string
	if sample != nil {
		sample.AreaName = c.areas.Resolve(ctx, sample)
		areaName = sample.AreaName
	}
	result.AreaName = areaName

	// CALL_API
	step(attendance.StepCallAPI)
	payload := attendance.PunchPayload{Location: areaName, DeviceInfo: c.cfg.Device}
	key := ulid.Make().String()

	var ack attendance.PunchAck
	if direction == attendance.DirectionCheckIn {
		ack, err = c.remote.CheckIn(ctx, payload, key)
	} else {
		ack, err = c.remote.CheckOut(ctx, payload, key)
	}
	if err != nil {
		return fail(attendance.StepCallAPI, attendance.StepSurfaceError, err)
	}

	// NOTIFY_CALLER
	rec := c.store.MarkAttendance(ctx)
	if err := c.store.Refresh(ctx); err != nil {
		slog.Warn("attendance refresh after punch failed", "error", err)
	}
	step(attendance.StepNotifyCaller)

	result.Status = c.store.Status()
	result.Message = ack.Message
	if result.Message == "" {
		result.Message = defaultMessage(direction)
	}
	if today, ok := c.store.TodayRecord(); ok {
		resp := attendance.NewRecordResponse(today)
		result.Record = &resp
	} else if rec.ID != "" {
		resp := attendance.NewRecordResponse(rec)
		result.Record = &resp
	}

	slog.Info("punch succeeded",
		"direction", direction,
		"status", result.Status,
		"area", derefOr(result.AreaName, ""),
		"idempotency_key", key,
	)
	c.bus.Publish(events.KindPunchSucceeded, events.PunchSucceeded{
		Direction: string(direction),
		AreaName:  result.AreaName,
		Message:   result.Message,
	})

	return result, nil
}

func defaultMessage(d attendance.Direction) string {
	if d == attendance.DirectionCheckOut {
		return "Checked out successfully"
	}
	return "Checked in successfully"
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// IsUserAbort reports whether err ended the punch at the permission prompt.
func IsUserAbort(err error) bool {
	return errors.Is(err, attendance.ErrPermissionDenied)
}

func NewClockService(store attendance.SessionStore, remote attendance.RemoteRepository, areas attendance.AreaResolver, bus *events.Bus, cfg ClockConfig) attendance.ClockService {
	return &ClockServiceImpl{
		store:  store,
		remote: remote,
		areas:  areas,
		bus:    bus,
		cfg:    cfg,
	}
}
