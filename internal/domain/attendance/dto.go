package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
)

// ========================================
// PUNCH DTOs
// ========================================

// PunchRequest carries the device collaborators for one punch.
type PunchRequest struct {
	Permission PermissionGate
	Location   LocationProvider

	// AllowNoLocation lets the punch go through with a null location when
	// no fix can be acquired.
	AllowNoLocation bool
}

func (r PunchRequest) Validate() error {
	if r.Permission == nil || r.Location == nil {
		return ErrInvalidPunchRequest
	}
	return nil
}

// Step is a state of the per-punch workflow.
type Step string

const (
	StepStart           Step = "START"
	StepCheckPermission Step = "CHECK_PERMISSION"
	StepPromptUser      Step = "PROMPT_USER"
	StepAcquireLocation Step = "ACQUIRE_LOCATION"
	StepResolveAreaName Step = "RESOLVE_AREA_NAME"
	StepCallAPI         Step = "CALL_API"
	StepNotifyCaller    Step = "NOTIFY_CALLER"
	StepSurfaceError    Step = "SURFACE_ERROR"
	StepAbort           Step = "ABORT"
)

type PunchResult struct {
	Direction      Direction       `json:"direction"`
	Status         Status          `json:"status"`
	AreaName       *string         `json:"area_name"`
	Message        string          `json:"message,omitempty"`
	Record         *RecordResponse `json:"record,omitempty"`
	NearestOffice  *string         `json:"nearest_office,omitempty"`
	DistanceMeters *float64        `json:"distance_meters,omitempty"`
	WithinGeofence *bool           `json:"within_geofence,omitempty"`
	Trace          []Step          `json:"trace"`
}

// PunchLocationRequest is the body of POST /attendance/punch. The UI owns the
// device APIs, so it reports the permission outcome and the sampled position.
type PunchLocationRequest struct {
	Permission     string   `json:"permission"`
	PromptAccepted *bool    `json:"prompt_accepted,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Accuracy       float64  `json:"accuracy"`
	Timestamp      *string  `json:"timestamp,omitempty"`

	AllowNoLocation bool `json:"allow_no_location"`
}

func (r *PunchLocationRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Permission) {
		r.Permission = string(PermissionGranted)
	}
	validPermissions := []string{string(PermissionGranted), string(PermissionDenied)}
	if !validator.IsInSlice(strings.ToLower(r.Permission), validPermissions) {
		errs = append(errs, validator.ValidationError{
			Field:   "permission",
			Message: "permission must be one of: granted, denied",
		})
	}

	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude and longitude must be sent together",
		})
	}

	if r.Latitude != nil && !validator.IsValidLatitude(*r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude != nil && !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.Accuracy < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "accuracy",
			Message: "accuracy must not be negative",
		})
	}

	if r.Timestamp != nil && *r.Timestamp != "" {
		if _, valid := validator.IsValidDateTime(*r.Timestamp); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "timestamp",
				Message: "timestamp must be an ISO8601 date-time",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// STATUS DTOs
// ========================================

type RecordResponse struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	InTime   string  `json:"in_time"`
	OutTime  *string `json:"out_time"`
	Status   string  `json:"status"`
	Location *string `json:"location,omitempty"`
	IsOpen   bool    `json:"is_open"`
}

func NewRecordResponse(r Record) RecordResponse {
	resp := RecordResponse{
		ID:       r.ID,
		Date:     r.Date,
		InTime:   r.InTime.Format(time.RFC3339),
		Status:   r.Status,
		Location: r.Location,
		IsOpen:   r.IsOpen(),
	}
	if r.OutTime != nil {
		out := r.OutTime.Format(time.RFC3339)
		resp.OutTime = &out
	}
	return resp
}

type StatusResponse struct {
	Status         Status          `json:"status"`
	TodayRecord    *RecordResponse `json:"today_record,omitempty"`
	HasOpenSession bool            `json:"has_open_session"`
	CanClockIn     bool            `json:"can_clock_in"`
	CanClockOut    bool            `json:"can_clock_out"`
	PunchInFlight  bool            `json:"punch_in_flight"`
	Message        string          `json:"message"`
}

type ListRecordsResponse struct {
	TotalCount int              `json:"total_count"`
	Records    []RecordResponse `json:"records"`
}

// ========================================
// REPORT DTOs
// ========================================

type ReportFilter struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Validate defaults a zero month/year to the current month.
func (f *ReportFilter) Validate(now time.Time) error {
	var errs validator.ValidationErrors

	if f.Month == 0 {
		f.Month = int(now.Month())
	}
	if f.Year == 0 {
		f.Year = now.Year()
	}

	if !validator.IsValidMonth(f.Month) {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be between 1 and 12",
		})
	}

	if f.Year < 2000 || f.Year > 9999 {
		errs = append(errs, validator.ValidationError{
			Field:   "year",
			Message: "year must be a four digit year from 2000",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ReportRowResponse struct {
	Date         string   `json:"date"`
	CheckIn      *string  `json:"check_in,omitempty"`
	CheckOut     *string  `json:"check_out,omitempty"`
	Status       string   `json:"status"`
	WorkingHours *float64 `json:"working_hours,omitempty"`
}

type ReportResponse struct {
	Month            int                 `json:"month"`
	Year             int                 `json:"year"`
	TotalPresentDays int                 `json:"total_present_days"`
	Report           []ReportRowResponse `json:"report"`
}

// ========================================
// GEOFENCE DTOs
// ========================================

type GeofenceCheckRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (r *GeofenceCheckRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type GeofenceCheckResponse struct {
	Configured     bool    `json:"configured"`
	NearestOffice  string  `json:"nearest_office,omitempty"`
	DistanceMeters float64 `json:"distance_meters"`
	RadiusMeters   float64 `json:"radius_meters"`
	Within         bool    `json:"within"`
	Enforced       bool    `json:"enforced"`
}
