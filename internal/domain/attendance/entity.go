package attendance

import (
	"time"
)

// DateLayout is the calendar-day format used for Record.Date.
const DateLayout = "2006-01-02"

// Status is the session state of the current user.
type Status string

const (
	StatusNotMarked  Status = "not-marked"
	StatusClockedIn  Status = "clocked-in"
	StatusClockedOut Status = "clocked-out"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotMarked, StatusClockedIn, StatusClockedOut:
		return true
	}
	return false
}

// Next returns the status that follows s in the punch cycle:
// not-marked|clocked-out -> clocked-in -> clocked-out.
func (s Status) Next() Status {
	if s == StatusClockedIn {
		return StatusClockedOut
	}
	return StatusClockedIn
}

// Record day statuses.
const (
	RecordPresent = "present"
	RecordLate    = "late"
	RecordAbsent  = "absent"
)

// Record is one work session. JSON tags match the persisted
// attendanceRecords layout written by earlier app versions.
type Record struct {
	ID       string     `json:"id"`
	Date     string     `json:"date"`
	InTime   time.Time  `json:"inTime"`
	OutTime  *time.Time `json:"outTime"`
	Status   string     `json:"status"`
	Location *string    `json:"location,omitempty"`
}

// IsOpen reports whether the session has not been punched out yet.
func (r Record) IsOpen() bool {
	return r.OutTime == nil
}

// LocationSample is captured at punch time and only lives for one request.
type LocationSample struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
	AreaName  *string
}

type Stats struct {
	TotalDays      int `json:"total_days"`
	PresentDays    int `json:"present_days"`
	LateDays       int `json:"late_days"`
	AbsentDays     int `json:"absent_days"`
	AttendanceRate int `json:"attendance_rate"`
}

// Direction of a punch.
type Direction string

const (
	DirectionCheckIn  Direction = "check-in"
	DirectionCheckOut Direction = "check-out"
)

// PunchLog is one entry of the server's today log.
type PunchLog struct {
	ID       string
	CheckIn  *time.Time
	CheckOut *time.Time
	Location *string
}

// ReportRow is one day of the server's monthly report.
type ReportRow struct {
	Date         string
	CheckIn      *time.Time
	CheckOut     *time.Time
	Status       string
	WorkingHours *float64
}

type MonthlyReport struct {
	Month            int
	Year             int
	Rows             []ReportRow
	TotalPresentDays int
}

// DeviceInfo is attached to every punch payload.
type DeviceInfo struct {
	DeviceID   string `json:"device_id"`
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
	Hostname   string `json:"hostname,omitempty"`
	AppVersion string `json:"app_version"`
}

// PunchPayload is the body of the manual check-in/check-out calls.
type PunchPayload struct {
	Location   *string    `json:"location"`
	DeviceInfo DeviceInfo `json:"device_info"`
}

// PunchAck is the backend's answer to an accepted punch.
type PunchAck struct {
	Message string
}

// Office is a geofence reference point.
type Office struct {
	Name         string  `yaml:"name" json:"name"`
	Latitude     float64 `yaml:"latitude" json:"latitude"`
	Longitude    float64 `yaml:"longitude" json:"longitude"`
	RadiusMeters float64 `yaml:"radius_meters" json:"radius_meters"`
}
