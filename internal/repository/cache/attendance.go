package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/storage"
)

type attendanceRepository struct {
	kv storage.KeyValueStore
}

// LoadStatus implements attendance.CacheRepository. A missing key yields
// not-marked; an unknown value is an error.
func (a *attendanceRepository) LoadStatus(ctx context.Context) (attendance.Status, error) {
	raw, ok, err := a.kv.Get(ctx, storage.KeyCurrentAttendanceStatus)
	if err != nil {
		return attendance.StatusNotMarked, fmt.Errorf("failed to read %s: %w", storage.KeyCurrentAttendanceStatus, err)
	}
	if !ok || raw == "" {
		return attendance.StatusNotMarked, nil
	}

	status := attendance.Status(raw)
	if !status.Valid() {
		return attendance.StatusNotMarked, fmt.Errorf("unknown attendance status %q", raw)
	}
	return status, nil
}

// LoadRecords implements attendance.CacheRepository.
func (a *attendanceRepository) LoadRecords(ctx context.Context) ([]attendance.Record, error) {
	raw, ok, err := a.kv.Get(ctx, storage.KeyAttendanceRecords)
	if err != nil {
		return []attendance.Record{}, fmt.Errorf("failed to read %s: %w", storage.KeyAttendanceRecords, err)
	}
	if !ok || raw == "" {
		return []attendance.Record{}, nil
	}

	var records []attendance.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return []attendance.Record{}, fmt.Errorf("failed to decode %s: %w", storage.KeyAttendanceRecords, err)
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return records, nil
}

// Save implements attendance.CacheRepository.
func (a *attendanceRepository) Save(ctx context.Context, status attendance.Status, records []attendance.Record) error {
	if records == nil {
		records = []attendance.Record{}
	}
	encoded, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	return a.kv.SetMany(ctx, map[string]string{
		storage.KeyCurrentAttendanceStatus: string(status),
		storage.KeyAttendanceRecords:       string(encoded),
	})
}

func NewAttendanceRepository(kv storage.KeyValueStore) attendance.CacheRepository {
	return &attendanceRepository{kv: kv}
}
