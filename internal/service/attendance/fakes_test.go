package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
)

var wib = time.FixedZone("WIB", 7*3600)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRemote struct {
	mu sync.Mutex

	today     []attendance.PunchLog
	todayErr  error
	report    attendance.MonthlyReport
	reportErr error

	punchErr   error
	punchAck   attendance.PunchAck
	checkIns   []attendance.PunchPayload
	checkOuts  []attendance.PunchPayload
	keys       []string
	punchBlock chan struct{}
}

func (f *fakeRemote) Today(ctx context.Context) ([]attendance.PunchLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.today, f.todayErr
}

func (f *fakeRemote) MonthlyReport(ctx context.Context, month, year int) (attendance.MonthlyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.report
	r.Month, r.Year = month, year
	return r, f.reportErr
}

func (f *fakeRemote) CheckIn(ctx context.Context, payload attendance.PunchPayload, key string) (attendance.PunchAck, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkIns = append(f.checkIns, payload)
	f.keys = append(f.keys, key)
	return f.punchAck, f.punchErr
}

func (f *fakeRemote) CheckOut(ctx context.Context, payload attendance.PunchPayload, key string) (attendance.PunchAck, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkOuts = append(f.checkOuts, payload)
	f.keys = append(f.keys, key)
	return f.punchAck, f.punchErr
}

func (f *fakeRemote) wait() {
	if f.punchBlock != nil {
		<-f.punchBlock
	}
}

type fakeGate struct {
	state     attendance.PermissionState
	checkErr  error
	accept    bool
	promptErr error
	prompted  bool
}

func (g *fakeGate) Check(ctx context.Context) (attendance.PermissionState, error) {
	return g.state, g.checkErr
}

func (g *fakeGate) Prompt(ctx context.Context) (bool, error) {
	g.prompted = true
	return g.accept, g.promptErr
}

type fakeLocation struct {
	sample attendance.LocationSample
	err    error
	calls  int
}

func (l *fakeLocation) Current(ctx context.Context) (attendance.LocationSample, error) {
	l.calls++
	return l.sample, l.err
}

type fakeAreas struct {
	name string
}

func (a fakeAreas) Resolve(ctx context.Context, sample *attendance.LocationSample) *string {
	if sample == nil {
		return nil
	}
	n := a.name
	return &n
}

func ptrTime(t time.Time) *time.Time { return &t }
