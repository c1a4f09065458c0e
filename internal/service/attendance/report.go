package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
)

type ReportServiceImpl struct {
	remote attendance.RemoteRepository
	loc    *time.Location
	now    func() time.Time
}

// MonthlyReport implements attendance.ReportService.
func (r *ReportServiceImpl) MonthlyReport(ctx context.Context, filter attendance.ReportFilter) (attendance.ReportResponse, error) {
	if err := filter.Validate(r.now().In(r.loc)); err != nil {
		return attendance.ReportResponse{}, err
	}

	report, err := r.remote.MonthlyReport(ctx, filter.Month, filter.Year)
	if err != nil {
		return attendance.ReportResponse{}, fmt.Errorf("failed to fetch monthly report: %w", err)
	}

	resp := attendance.ReportResponse{
		Month:            filter.Month,
		Year:             filter.Year,
		TotalPresentDays: report.TotalPresentDays,
		Report:           make([]attendance.ReportRowResponse, 0, len(report.Rows)),
	}
	for _, row := range report.Rows {
		resp.Report = append(resp.Report, attendance.ReportRowResponse{
			Date:         row.Date,
			CheckIn:      r.formatTime(row.CheckIn),
			CheckOut:     r.formatTime(row.CheckOut),
			Status:       row.Status,
			WorkingHours: row.WorkingHours,
		})
	}

	return resp, nil
}

func (r *ReportServiceImpl) formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.In(r.loc).Format(time.RFC3339)
	return &s
}

func NewReportService(remote attendance.RemoteRepository, loc *time.Location, now func() time.Time) attendance.ReportService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &ReportServiceImpl{remote: remote, loc: loc, now: now}
}
