package storage

import (
	"context"
	"errors"
)

// Keys persisted by the agent. The names are shared with the mobile app cache.
const (
	KeyCurrentAttendanceStatus = "currentAttendanceStatus"
	KeyAttendanceRecords       = "attendanceRecords"
	KeyAuthToken               = "authToken"
	KeyUser                    = "user"
)

var ErrClosed = errors.New("storage is closed")

// KeyValueStore is device-local string storage.
type KeyValueStore interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes a single key
	Set(ctx context.Context, key string, value string) error

	// SetMany writes all entries in one operation
	SetMany(ctx context.Context, entries map[string]string) error

	// Delete removes keys; missing keys are not an error
	Delete(ctx context.Context, keys ...string) error

	// Close releases the underlying resources
	Close() error
}
