package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/location"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
)

type AttendanceHandler interface {
	Status(w http.ResponseWriter, r *http.Request)
	Today(w http.ResponseWriter, r *http.Request)
	Records(w http.ResponseWriter, r *http.Request)
	Stats(w http.ResponseWriter, r *http.Request)
	Report(w http.ResponseWriter, r *http.Request)
	Punch(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	store  attendance.SessionStore
	clock  attendance.ClockService
	report attendance.ReportService
}

func NewAttendanceHandler(store attendance.SessionStore, clock attendance.ClockService, report attendance.ReportService) AttendanceHandler {
	return &attendanceHandlerImpl{
		store:  store,
		clock:  clock,
		report: report,
	}
}

// BuildStatusResponse summarizes the store for the UI and the CLI.
func BuildStatusResponse(store attendance.SessionStore, clock attendance.ClockService) attendance.StatusResponse {
	status := store.Status()
	resp := attendance.StatusResponse{
		Status:        status,
		CanClockIn:    status != attendance.StatusClockedIn,
		CanClockOut:   status == attendance.StatusClockedIn,
		PunchInFlight: clock != nil && clock.Busy(),
	}

	for _, rec := range store.Records() {
		if rec.IsOpen() {
			resp.HasOpenSession = true
			break
		}
	}

	if today, ok := store.TodayRecord(); ok {
		rr := attendance.NewRecordResponse(today)
		resp.TodayRecord = &rr
	}

	switch status {
	case attendance.StatusClockedIn:
		resp.Message = "You are clocked in"
	case attendance.StatusClockedOut:
		resp.Message = "You are clocked out"
	default:
		resp.Message = "Attendance not marked yet"
	}
	return resp
}

// Status implements AttendanceHandler.
func (h *attendanceHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	response.Success(w, BuildStatusResponse(h.store, h.clock))
}

// Today implements AttendanceHandler.
func (h *attendanceHandlerImpl) Today(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.store.TodayRecord()
	if !ok {
		response.NotFound(w, "No attendance record for today")
		return
	}
	response.Success(w, attendance.NewRecordResponse(rec))
}

// Records implements AttendanceHandler.
func (h *attendanceHandlerImpl) Records(w http.ResponseWriter, r *http.Request) {
	records := h.store.Records()

	resp := attendance.ListRecordsResponse{
		TotalCount: len(records),
		Records:    make([]attendance.RecordResponse, 0, len(records)),
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, attendance.NewRecordResponse(rec))
	}

	response.Success(w, resp)
}

// Stats implements AttendanceHandler.
func (h *attendanceHandlerImpl) Stats(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.store.Stats())
}

// Report implements AttendanceHandler.
func (h *attendanceHandlerImpl) Report(w http.ResponseWriter, r *http.Request) {
	var filter attendance.ReportFilter
	var errs validator.ValidationErrors

	query := r.URL.Query()
	if v := query.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, validator.ValidationError{Field: "month", Message: "month must be a number"})
		}
		filter.Month = month
	}
	if v := query.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, validator.ValidationError{Field: "year", Message: "year must be a number"})
		}
		filter.Year = year
	}
	if len(errs) > 0 {
		response.HandleError(w, errs)
		return
	}

	result, err := h.report.MonthlyReport(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Punch implements AttendanceHandler.
func (h *attendanceHandlerImpl) Punch(w http.ResponseWriter, r *http.Request) {
	var req attendance.PunchLocationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("Failed to decode punch request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	var sample *attendance.LocationSample
	if req.Latitude != nil && req.Longitude != nil {
		sample = &attendance.LocationSample{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Accuracy:  req.Accuracy,
		}
		if req.Timestamp != nil {
			if ts, ok := validator.IsValidDateTime(*req.Timestamp); ok {
				sample.Timestamp = ts
			}
		}
	}

	punchReq := attendance.PunchRequest{
		Permission:      location.FixedGate{
			State:        attendance.PermissionState(strings.ToLower(req.Permission)),
			PromptAnswer: req.PromptAccepted,
		},
		Location:        location.Static{Sample: sample},
		AllowNoLocation: req.AllowNoLocation,
	}

	result, err := h.clock.Punch(r.Context(), punchReq)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

// Refresh implements AttendanceHandler.
func (h *attendanceHandlerImpl) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance refreshed", BuildStatusResponse(h.store, h.clock))
}
