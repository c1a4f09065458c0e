package attendance

import (
	"context"
)

// SessionStore holds the current attendance status and record list for the
// signed-in user and mediates every read/write of the local cache.
type SessionStore interface {
	// LoadFromStorage seeds the in-memory state from the cache. Missing or
	// corrupt entries fall back to not-marked and an empty list.
	LoadFromStorage(ctx context.Context)

	// MarkAttendance performs the local toggle after a confirmed remote punch
	// and returns the created or patched record.
	MarkAttendance(ctx context.Context) Record

	// Status returns the current status.
	Status() Status

	// Records returns a copy of the records, newest first.
	Records() []Record

	// TodayRecord returns the most recent record dated today.
	TodayRecord() (Record, bool)

	// Stats derives attendance statistics from the records.
	Stats() Stats

	// Refresh replaces the cached state with the backend's view.
	Refresh(ctx context.Context) error
}

// ClockService runs the punch workflow.
type ClockService interface {
	// Punch performs one check-in or check-out, depending on the current status.
	Punch(ctx context.Context, req PunchRequest) (PunchResult, error)

	// Busy reports whether a punch is in flight.
	Busy() bool
}

// ReportService exposes the backend monthly report.
type ReportService interface {
	MonthlyReport(ctx context.Context, filter ReportFilter) (ReportResponse, error)
}

// PermissionState is the answer of a location permission check.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// PermissionGate checks and, when needed, asks for location permission.
type PermissionGate interface {
	Check(ctx context.Context) (PermissionState, error)

	// Prompt asks the user again; false means the user declined.
	Prompt(ctx context.Context) (bool, error)
}

// LocationProvider acquires the device position.
type LocationProvider interface {
	Current(ctx context.Context) (LocationSample, error)
}

// AreaResolver turns a location sample into a human-readable area name.
// It returns nil only when there is no sample.
type AreaResolver interface {
	Resolve(ctx context.Context, sample *LocationSample) *string
}
