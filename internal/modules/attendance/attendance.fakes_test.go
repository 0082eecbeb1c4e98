package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hrcore/attendance-engine/internal/config"
	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
	"github.com/hrcore/attendance-engine/internal/shared/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// In-memory fakes. They model the storage invariants the service depends on:
// the unique (employee, date) key behind Upsert and the floor-clamp on
// summary counters.

type logKey struct {
	employeeID uint64
	date       string
}

type fakeLogs struct {
	mu             sync.Mutex
	nextID         uint64
	rows           map[logKey]*AttendanceLog
	upsertErr      error
	upsertErrFor   map[uint64]error
	findErr        error
	setCheckoutErr error
	upsertCalls    int
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{rows: make(map[logKey]*AttendanceLog)}
}

func (f *fakeLogs) key(employeeID uint64, date time.Time) logKey {
	return logKey{employeeID, date.Format("2006-01-02")}
}

func (f *fakeLogs) Upsert(_ context.Context, log AttendanceLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if err, ok := f.upsertErrFor[log.EmployeeID]; ok {
		return err
	}
	f.upsertCalls++
	k := f.key(log.EmployeeID, log.Date)
	if existing, ok := f.rows[k]; ok {
		existing.CheckIn = log.CheckIn
		existing.CheckOut = log.CheckOut
		existing.Status = log.Status
		existing.Mode = log.Mode
		return nil
	}
	f.nextID++
	row := log
	row.ID = f.nextID
	f.rows[k] = &row
	return nil
}

func (f *fakeLogs) SetCheckout(_ context.Context, id uint64, checkout time.Time, status AttendanceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setCheckoutErr != nil {
		return f.setCheckoutErr
	}
	for _, row := range f.rows {
		if row.ID == id {
			out := checkout
			row.CheckOut = &out
			row.Status = status
			return nil
		}
	}
	return nil
}

func (f *fakeLogs) FindByDate(_ context.Context, employeeID uint64, date time.Time) (*AttendanceLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	row, ok := f.rows[f.key(employeeID, date)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeLogs) FindOpenByDate(_ context.Context, employeeID uint64, date time.Time) (*AttendanceLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	row, ok := f.rows[f.key(employeeID, date)]
	if !ok || !row.Open() {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeLogs) FindMostRecentOpen(_ context.Context, employeeID uint64) (*AttendanceLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var open []*AttendanceLog
	for _, row := range f.rows {
		if row.EmployeeID == employeeID && row.Open() {
			open = append(open, row)
		}
	}
	if len(open) == 0 {
		return nil, nil
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Date.After(open[j].Date) })
	cp := *open[0]
	return &cp, nil
}

func (f *fakeLogs) ListByDate(_ context.Context, date time.Time) ([]AttendanceLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	day := date.Format("2006-01-02")
	var logs []AttendanceLog
	for k, row := range f.rows {
		if k.date == day {
			logs = append(logs, *row)
		}
	}
	return logs, nil
}

type counterSet struct {
	PresentDays  int
	AbsentDays   int
	LateDays     int
	HalfDays     int
	LeaveDays    int
	RemoteDays   int
	MonthlyLates int
}

func clampAdd(current, delta int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}

type fakeSummaries struct {
	mu        sync.Mutex
	rolling   map[uint64]*counterSet
	monthly   map[string]*counterSet
	quarterly map[uint64]int
	applyErr  error
	bulkErr   error
}

func newFakeSummaries() *fakeSummaries {
	return &fakeSummaries{
		rolling:   make(map[uint64]*counterSet),
		monthly:   make(map[string]*counterSet),
		quarterly: make(map[uint64]int),
	}
}

func (f *fakeSummaries) apply(set *counterSet, d SummaryDeltas) {
	set.PresentDays = clampAdd(set.PresentDays, d.PresentDays)
	set.AbsentDays = clampAdd(set.AbsentDays, d.AbsentDays)
	set.LateDays = clampAdd(set.LateDays, d.LateDays)
	set.HalfDays = clampAdd(set.HalfDays, d.HalfDays)
	set.LeaveDays = clampAdd(set.LeaveDays, d.LeaveDays)
	set.RemoteDays = clampAdd(set.RemoteDays, d.RemoteDays)
}

func (f *fakeSummaries) ApplyDeltas(_ context.Context, employeeID uint64, d SummaryDeltas) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	set, ok := f.rolling[employeeID]
	if !ok {
		set = &counterSet{MonthlyLates: MonthlyLateAllowance}
		f.rolling[employeeID] = set
	}
	f.apply(set, d)
	// The late allowance lives on the rolling table only.
	set.MonthlyLates = clampAdd(set.MonthlyLates, d.MonthlyLates)
	return nil
}

func (f *fakeSummaries) ApplyMonthlyDeltas(_ context.Context, employeeID uint64, month string, d SummaryDeltas) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	key := monthKeyFor(employeeID, month)
	set, ok := f.monthly[key]
	if !ok {
		set = &counterSet{}
		f.monthly[key] = set
	}
	f.apply(set, d)
	return nil
}

func monthKeyFor(employeeID uint64, month string) string {
	return fmt.Sprintf("%d|%s", employeeID, month)
}

func (f *fakeSummaries) ResetQuarterlyLeaves(_ context.Context, value int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	for id := range f.quarterly {
		f.quarterly[id] = value
	}
	return int64(len(f.quarterly)), nil
}

func (f *fakeSummaries) AddQuarterlyLeaves(_ context.Context, delta int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	for id := range f.quarterly {
		f.quarterly[id] += delta
	}
	return int64(len(f.quarterly)), nil
}

func (f *fakeSummaries) ResetMonthlyLates(_ context.Context, value int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	for _, set := range f.rolling {
		set.MonthlyLates = value
	}
	return int64(len(f.rolling)), nil
}

type fakeEmployees struct {
	employees []Employee
	listErr   error
}

func (f *fakeEmployees) ListActive(_ context.Context) ([]Employee, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Employee(nil), f.employees...), nil
}

func (f *fakeEmployees) CountActive(_ context.Context) (int64, error) {
	if f.listErr != nil {
		return 0, f.listErr
	}
	return int64(len(f.employees)), nil
}

type fakeHolidays struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*Holiday
	err    error
}

func newFakeHolidays() *fakeHolidays {
	return &fakeHolidays{byID: make(map[uint64]*Holiday)}
}

func (f *fakeHolidays) FindByDate(_ context.Context, date time.Time) (*Holiday, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	day := date.Format("2006-01-02")
	for _, h := range f.byID {
		if h.Date.Format("2006-01-02") == day {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeHolidays) FindByID(_ context.Context, id uint64) (*Holiday, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	h, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (f *fakeHolidays) Create(_ context.Context, h Holiday) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	h.ID = f.nextID
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	f.byID[h.ID] = &h
	return h.ID, nil
}

func (f *fakeHolidays) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeHolidays) List(_ context.Context, year, month int) ([]Holiday, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Holiday
	for _, h := range f.byID {
		if year != 0 && h.Date.Year() != year {
			continue
		}
		if month != 0 && int(h.Date.Month()) != month {
			continue
		}
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeHolidays) ListUpcoming(_ context.Context, from time.Time, limit int) ([]Holiday, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Holiday
	for _, h := range f.byID {
		if !h.Date.Before(from) {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeHolidays) CountAll(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}

func (f *fakeHolidays) CountBetween(_ context.Context, from, to time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, h := range f.byID {
		if !h.Date.Before(from) && h.Date.Before(to) {
			n++
		}
	}
	return n, nil
}

func (f *fakeHolidays) CountFrom(_ context.Context, from time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, h := range f.byID {
		if !h.Date.Before(from) {
			n++
		}
	}
	return n, nil
}

type hrEntry struct {
	actorID    uint64
	actionType string
}

type fakeHRLog struct {
	mu      sync.Mutex
	entries []hrEntry
	err     error
}

func (f *fakeHRLog) Append(_ context.Context, actorID uint64, actionType string, _ *uint64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, hrEntry{actorID, actionType})
	return nil
}

// fakeTx runs the batch against the same fakes, optionally failing the whole
// transaction before any write lands.
type fakeTx struct {
	logs      *fakeLogs
	summaries *fakeSummaries
	beginErr  error
}

func (f *fakeTx) Logs() LogWriter          { return f.logs }
func (f *fakeTx) Summaries() SummaryWriter { return f.summaries }

func (f *fakeTx) WithinTransaction(ctx context.Context, _ time.Duration, fn func(ctx context.Context, repos TxRepos) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(ctx, f)
}

type fakeHealth struct {
	healthy        bool
	reconnectOK    bool
	healthyCalls   int
	reconnectCalls int
	panicOnProbe   bool
}

func (f *fakeHealth) Healthy(context.Context) bool {
	f.healthyCalls++
	if f.panicOnProbe {
		panic("probe blew up")
	}
	return f.healthy
}

func (f *fakeHealth) Reconnect(context.Context) bool {
	f.reconnectCalls++
	return f.reconnectOK
}

// fixture bundles the fakes behind one service instance.
type fixture struct {
	service   *Service
	employees *fakeEmployees
	logs      *fakeLogs
	summaries *fakeSummaries
	holidays  *fakeHolidays
	hrLog     *fakeHRLog
	tx        *fakeTx
	health    *fakeHealth
}

func testConfig() *config.Config {
	return &config.Config{
		Attendance: config.AttendanceConfig{
			Timezone:           "UTC",
			GraceMinutes:       5,
			FullDayHours:       8,
			HalfDayHours:       4,
			AbsentAfterMinutes: 180,
			BatchTimeout:       time.Minute,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, err := observability.NewLogger("info", "console")
	require.NoError(t, err)

	f := &fixture{
		employees: &fakeEmployees{},
		logs:      newFakeLogs(),
		summaries: newFakeSummaries(),
		holidays:  newFakeHolidays(),
		hrLog:     &fakeHRLog{},
		health:    &fakeHealth{healthy: true, reconnectOK: true},
	}
	f.tx = &fakeTx{logs: f.logs, summaries: f.summaries}

	repos := Repositories{
		Employees: f.employees,
		Logs:      f.logs,
		Summaries: f.summaries,
		Holidays:  f.holidays,
		HRLog:     f.hrLog,
		Tx:        f.tx,
	}

	guard := NewHealthGuard(f.health, logger, time.Second)
	f.service = NewService(repos, guard, observability.NewAuditLogger(logger),
		validator.New(), logger, nil, testConfig(), time.UTC)
	return f
}

// at pins the business clock for the test.
func (f *fixture) at(t time.Time) {
	f.service.now = func() time.Time { return t }
}

// withMetrics installs a metrics set backed by a private registry so tests
// can assert on collected samples without touching the global one.
func (f *fixture) withMetrics() *observability.Metrics {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsWithConfig(observability.MetricsConfig{
		Namespace: "test",
		Registry:  reg,
		Gatherer:  reg,
	})
	f.service.metrics = m
	return m
}

func strPtr(s string) *string { return &s }

func datePtr(t time.Time) *time.Time { return &t }
