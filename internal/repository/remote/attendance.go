package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/hrisapi"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
)

const (
	pathToday         = "payroll/today/"
	pathManualIn      = "payroll/manual-checkin/"
	pathManualOut     = "payroll/manual-checkout/"
	pathMonthlyReport = "payroll/monthly-report/"
)

// flexID accepts numeric and string ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}

type punchLogDTO struct {
	ID       flexID  `json:"id"`
	CheckIn  *string `json:"check_in"`
	CheckOut *string `json:"check_out"`
	Location *string `json:"location"`
}

type reportRowDTO struct {
	Date         string   `json:"date"`
	CheckIn      *string  `json:"check_in"`
	CheckOut     *string  `json:"check_out"`
	Status       string   `json:"status"`
	WorkingHours *float64 `json:"working_hours"`
}

type reportDTO struct {
	Report           []reportRowDTO `json:"report"`
	TotalPresentDays int            `json:"total_present_days"`
}

type attendanceRepository struct {
	client *hrisapi.Client
	loc    *time.Location
}

// Today implements attendance.RemoteRepository.
func (a *attendanceRepository) Today(ctx context.Context) ([]attendance.PunchLog, error) {
	env, err := a.client.Get(ctx, pathToday, nil)
	if err != nil {
		return nil, err
	}

	var rows []punchLogDTO
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := env.DecodeData(&rows); err != nil {
			return nil, &hrisapi.APIError{Kind: hrisapi.KindDecode, Message: "today log", Err: err}
		}
	}

	logs := make([]attendance.PunchLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, attendance.PunchLog{
			ID:       string(r.ID),
			CheckIn:  a.parseTime(r.CheckIn, ""),
			CheckOut: a.parseTime(r.CheckOut, ""),
			Location: emptyToNil(r.Location),
		})
	}

	return logs, nil
}

// MonthlyReport implements attendance.RemoteRepository.
func (a *attendanceRepository) MonthlyReport(ctx context.Context, month, year int) (attendance.MonthlyReport, error) {
	q := url.Values{}
	q.Set("month", strconv.Itoa(month))
	q.Set("year", strconv.Itoa(year))

	env, err := a.client.Get(ctx, pathMonthlyReport, q)
	if err != nil {
		return attendance.MonthlyReport{}, err
	}

	dto, err := decodeReport(env)
	if err != nil {
		return attendance.MonthlyReport{}, &hrisapi.APIError{Kind: hrisapi.KindDecode, Message: "monthly report", Err: err}
	}

	report := attendance.MonthlyReport{
		Month:            month,
		Year:             year,
		TotalPresentDays: dto.TotalPresentDays,
		Rows:             make([]attendance.ReportRow, 0, len(dto.Report)),
	}
	for _, r := range dto.Report {
		report.Rows = append(report.Rows, attendance.ReportRow{
			Date:         r.Date,
			CheckIn:      a.parseTime(r.CheckIn, r.Date),
			CheckOut:     a.parseTime(r.CheckOut, r.Date),
			Status:       strings.ToLower(strings.TrimSpace(r.Status)),
			WorkingHours: r.WorkingHours,
		})
	}

	return report, nil
}

// decodeReport reads report/total_present_days from the top level of the
// body, falling back to the data member.
func decodeReport(env *hrisapi.Envelope) (reportDTO, error) {
	var dto reportDTO

	found, err := env.Field("report", &dto.Report)
	if err != nil {
		return dto, err
	}
	if found {
		if _, err := env.Field("total_present_days", &dto.TotalPresentDays); err != nil {
			return dto, err
		}
		return dto, nil
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return dto, nil
	}
	if err := json.Unmarshal(env.Data, &dto); err != nil {
		return dto, err
	}
	return dto, nil
}

// CheckIn implements attendance.RemoteRepository.
func (a *attendanceRepository) CheckIn(ctx context.Context, payload attendance.PunchPayload, idempotencyKey string) (attendance.PunchAck, error) {
	return a.punch(ctx, pathManualIn, payload, idempotencyKey)
}

// CheckOut implements attendance.RemoteRepository.
func (a *attendanceRepository) CheckOut(ctx context.Context, payload attendance.PunchPayload, idempotencyKey string) (attendance.PunchAck, error) {
	return a.punch(ctx, pathManualOut, payload, idempotencyKey)
}

func (a *attendanceRepository) punch(ctx context.Context, path string, payload attendance.PunchPayload, idempotencyKey string) (attendance.PunchAck, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}

	env, err := a.client.Post(ctx, path, payload, header)
	if err != nil {
		if hrisapi.IsKind(err, hrisapi.KindRejected) || hrisapi.IsKind(err, hrisapi.KindValidation) {
			return attendance.PunchAck{}, fmt.Errorf("%w: %w", attendance.ErrPunchRejected, err)
		}
		return attendance.PunchAck{}, err
	}

	return attendance.PunchAck{Message: env.Message}, nil
}

// parseTime accepts full timestamps and, when date is known, bare
// "HH:MM[:SS]" clock times.
func (a *attendanceRepository) parseTime(value *string, date string) *time.Time {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" || v == "-" {
		return nil
	}
	if t, ok := validator.ParseTimestamp(v, a.loc); ok {
		return &t
	}
	if date == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, date+" "+v, a.loc); err == nil {
			return &t
		}
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func NewAttendanceRepository(client *hrisapi.Client, loc *time.Location) attendance.RemoteRepository {
	if loc == nil {
		loc = time.Local
	}
	return &attendanceRepository{client: client, loc: loc}
}
