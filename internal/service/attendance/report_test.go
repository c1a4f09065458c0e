package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyReport_DefaultsToCurrentMonth(t *testing.T) {
	hours := 8.0
	remote := &fakeRemote{report: attendance.MonthlyReport{
		TotalPresentDays: 1,
		Rows: []attendance.ReportRow{
			{Date: "2026-10-01", CheckIn: ptrTime(time.Date(2026, 10, 1, 1, 0, 0, 0, time.UTC)), Status: "present", WorkingHours: &hours},
		},
	}}
	now := func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, wib) }
	svc := NewReportService(remote, wib, now)

	resp, err := svc.MonthlyReport(context.Background(), attendance.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.Month)
	assert.Equal(t, 2026, resp.Year)
	assert.Equal(t, 1, resp.TotalPresentDays)
	require.Len(t, resp.Report, 1)
	require.NotNil(t, resp.Report[0].CheckIn)
	assert.Equal(t, "2026-10-01T08:00:00+07:00", *resp.Report[0].CheckIn)
	assert.Nil(t, resp.Report[0].CheckOut)
}

func TestMonthlyReport_InvalidMonth(t *testing.T) {
	svc := NewReportService(&fakeRemote{}, wib, nil)

	_, err := svc.MonthlyReport(context.Background(), attendance.ReportFilter{Month: 13, Year: 2026})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "month", verrs[0].Field)
}

func TestMonthlyReport_RemoteError(t *testing.T) {
	svc := NewReportService(&fakeRemote{reportErr: errors.New("down")}, wib, nil)

	_, err := svc.MonthlyReport(context.Background(), attendance.ReportFilter{Month: 1, Year: 2026})
	assert.Error(t, err)
}
