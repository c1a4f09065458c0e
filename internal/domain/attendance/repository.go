package attendance

import (
	"context"
)

// CacheRepository mirrors the session state into device-local storage.
// It is advisory only: the backend stays the source of truth.
type CacheRepository interface {
	// LoadStatus reads the currentAttendanceStatus key.
	LoadStatus(ctx context.Context) (Status, error)

	// LoadRecords reads the attendanceRecords key.
	LoadRecords(ctx context.Context) ([]Record, error)

	// Save writes both keys in one storage operation.
	Save(ctx context.Context, status Status, records []Record) error
}

// RemoteRepository is the backend side of the attendance flow.
type RemoteRepository interface {
	// Today returns today's punch log in server order.
	Today(ctx context.Context) ([]PunchLog, error)

	// MonthlyReport returns the per-day report for month/year.
	MonthlyReport(ctx context.Context, month, year int) (MonthlyReport, error)

	// CheckIn posts a manual check-in. idempotencyKey is sent as a header so a
	// retried request is not recorded twice.
	CheckIn(ctx context.Context, payload PunchPayload, idempotencyKey string) (PunchAck, error)

	// CheckOut posts a manual check-out.
	CheckOut(ctx context.Context, payload PunchPayload, idempotencyKey string) (PunchAck, error)
}
