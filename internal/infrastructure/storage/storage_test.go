package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
	"github.com/hrcore/attendance-engine/internal/modules/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testLogger(t *testing.T) *observability.Logger {
	t.Helper()
	logger, err := observability.NewLogger("info", "console")
	require.NoError(t, err)
	return logger
}

func TestEmployeeStore_ListActive(t *testing.T) {
	db, mock := newMockDB(t)
	store := &EmployeeStore{db: db}

	shift := "09:00"
	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "shift_start", "shift_end", "status"}).
		AddRow(1, "Ada", "Khan", shift, "17:00", "active").
		AddRow(2, "Bilal", "Raza", nil, nil, "active")

	mock.ExpectQuery("SELECT id, first_name, last_name, shift_start, shift_end, status").
		WillReturnRows(rows)

	employees, err := store.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "Ada", employees[0].FirstName)
	assert.Equal(t, "09:00", *employees[0].ShiftStart)
	assert.Nil(t, employees[1].ShiftStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogStore_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	store := &LogStore{db: db}

	checkIn := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO attendance_logs").
		WithArgs(uint64(7), "2026-03-10", checkIn, checkOut,
			attendance.StatusPresent, attendance.ModeOnsite).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Upsert(context.Background(), attendance.AttendanceLog{
		EmployeeID: 7,
		Date:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckIn:    &checkIn,
		CheckOut:   &checkOut,
		Status:     attendance.StatusPresent,
		Mode:       attendance.ModeOnsite,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogStore_FindByDate_NoRow(t *testing.T) {
	db, mock := newMockDB(t)
	store := &LogStore{db: db}

	mock.ExpectQuery("SELECT (.+) FROM attendance_logs WHERE employee_id").
		WithArgs(uint64(7), "2026-03-10").
		WillReturnError(sql.ErrNoRows)

	log, err := store.FindByDate(context.Background(), 7, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, log)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogStore_SetCheckout(t *testing.T) {
	db, mock := newMockDB(t)
	store := &LogStore{db: db}

	checkout := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE attendance_logs SET check_out").
		WithArgs(checkout, attendance.StatusPresent, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SetCheckout(context.Background(), 42, checkout, attendance.StatusPresent)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryStore_ApplyDeltas(t *testing.T) {
	db, mock := newMockDB(t)
	store := &SummaryStore{db: db}

	// New rows seed monthly_lates from the full allowance; existing rows
	// adjust it by the delta alone.
	mock.ExpectExec("INSERT INTO attendance_summaries").
		WithArgs(uint64(7),
			1, -1, 0, 0, 0, 0, attendance.MonthlyLateAllowance,
			1, -1, 0, 0, 0, 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := store.ApplyDeltas(context.Background(), 7, attendance.SummaryDeltas{PresentDays: 1, AbsentDays: -1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryStore_ApplyDeltas_MonthlyLates(t *testing.T) {
	db, mock := newMockDB(t)
	store := &SummaryStore{db: db}

	mock.ExpectExec("INSERT INTO attendance_summaries").
		WithArgs(uint64(7),
			0, 0, 1, 0, 0, 0, attendance.MonthlyLateAllowance-1,
			0, 0, 1, 0, 0, 0, -1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := store.ApplyDeltas(context.Background(), 7, attendance.SummaryDeltas{LateDays: 1, MonthlyLates: -1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryStore_QuarterlyLeaves(t *testing.T) {
	db, mock := newMockDB(t)
	store := &SummaryStore{db: db}

	mock.ExpectExec("UPDATE attendance_summaries SET quarterly_leaves = \\?").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 50))

	affected, err := store.ResetQuarterlyLeaves(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(50), affected)

	mock.ExpectExec("UPDATE attendance_summaries SET quarterly_leaves = quarterly_leaves \\+ \\?").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 50))

	affected, err = store.AddQuarterlyLeaves(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(50), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryStore_ResetMonthlyLates(t *testing.T) {
	db, mock := newMockDB(t)
	store := &SummaryStore{db: db}

	mock.ExpectExec("UPDATE attendance_summaries SET monthly_lates = \\?").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 50))

	affected, err := store.ResetMonthlyLates(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(50), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayStore_CreateAndFind(t *testing.T) {
	db, mock := newMockDB(t)
	store := &HolidayStore{db: db}

	mock.ExpectExec("INSERT INTO holidays").
		WithArgs("Eid", "2026-03-20", nil).
		WillReturnResult(sqlmock.NewResult(11, 1))

	id, err := store.Create(context.Background(), attendance.Holiday{
		Name: "Eid",
		Date: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "holiday_date", "description", "created_at", "updated_at"}).
		AddRow(11, "Eid", time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), nil, created, created)
	mock.ExpectQuery("SELECT (.+) FROM holidays WHERE holiday_date").
		WithArgs("2026-03-20").
		WillReturnRows(rows)

	holiday, err := store.FindByDate(context.Background(), time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, holiday)
	assert.Equal(t, "Eid", holiday.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayStore_List_Filters(t *testing.T) {
	db, mock := newMockDB(t)
	store := &HolidayStore{db: db}

	rows := sqlmock.NewRows([]string{"id", "name", "holiday_date", "description", "created_at", "updated_at"})
	mock.ExpectQuery("SELECT (.+) FROM holidays WHERE YEAR\\(holiday_date\\) = \\? AND MONTH\\(holiday_date\\) = \\?").
		WithArgs(2026, 3).
		WillReturnRows(rows)

	holidays, err := store.List(context.Background(), 2026, 3)
	require.NoError(t, err)
	assert.Empty(t, holidays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHRLogStore_Append(t *testing.T) {
	db, mock := newMockDB(t)
	store := &HRLogStore{db: db}

	affected := uint64(9)
	mock.ExpectExec("INSERT INTO hr_logs").
		WithArgs(uint64(0), "attendance_auto_checkout", sqlmock.AnyArg(), "closed session").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Append(context.Background(), 0, "attendance_auto_checkout", &affected, "closed session")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_CommitAndRollback(t *testing.T) {
	db, mock := newMockDB(t)
	runner := NewTxRunner(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendance_logs SET check_out").
		WithArgs(sqlmock.AnyArg(), attendance.StatusPresent, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := runner.WithinTransaction(context.Background(), time.Second, func(ctx context.Context, repos attendance.TxRepos) error {
		return repos.Logs().SetCheckout(ctx, 1, time.Now(), attendance.StatusPresent)
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = runner.WithinTransaction(context.Background(), time.Second, func(ctx context.Context, repos attendance.TxRepos) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthChecker(t *testing.T) {
	db, mock := newMockDB(t)
	checker := &HealthChecker{db: db, logger: testLogger(t)}

	mock.ExpectPing()
	assert.True(t, checker.Healthy(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("gone"))
	assert.False(t, checker.Reconnect(context.Background()))
}
