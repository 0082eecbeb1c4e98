package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOpenRow(t *testing.T, f *fixture, employeeID uint64, date, checkIn time.Time, status AttendanceStatus) *AttendanceLog {
	t.Helper()
	require.NoError(t, f.logs.Upsert(context.Background(), AttendanceLog{
		EmployeeID: employeeID,
		Date:       date,
		CheckIn:    datePtr(checkIn),
		Status:     status,
		Mode:       ModeOnsite,
	}))
	row, err := f.logs.FindByDate(context.Background(), employeeID, date)
	require.NoError(t, err)
	require.NotNil(t, row)
	return row
}

func TestRunAutoCheckout_ClosesYesterdayAtShiftEnd(t *testing.T) {
	f := newFixture(t)
	f.at(time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC))
	f.employees.employees = []Employee{
		{ID: 1, ShiftStart: strPtr("09:00"), ShiftEnd: strPtr("17:00")},
	}
	yesterday := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	seedOpenRow(t, f, 1, yesterday, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), StatusPresent)

	summary := f.service.RunAutoCheckout(context.Background())

	assert.Equal(t, RunSummary{Processed: 1, Updated: 1}, summary)

	row, err := f.logs.FindByDate(context.Background(), 1, yesterday)
	require.NoError(t, err)
	require.NotNil(t, row.CheckOut)
	assert.Equal(t, time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC), *row.CheckOut)
	assert.Equal(t, StatusPresent, row.Status)

	require.Len(t, f.hrLog.entries, 1)
	assert.Equal(t, ActionAutoCheckout, f.hrLog.entries[0].actionType)
	assert.Equal(t, SystemActorID, f.hrLog.entries[0].actorID)
}

func TestRunAutoCheckout_SkipsWithoutOpenSession(t *testing.T) {
	f := newFixture(t)
	f.at(time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC))
	f.employees.employees = []Employee{{ID: 1}, {ID: 2}}

	summary := f.service.RunAutoCheckout(context.Background())

	assert.Equal(t, RunSummary{Processed: 2, Skipped: 2}, summary)
	assert.Empty(t, f.hrLog.entries)
}

func TestRunAutoCheckout_LadderFindsAdjacentDays(t *testing.T) {
	f := newFixture(t)
	f.at(time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC))
	f.employees.employees = []Employee{
		{ID: 1, ShiftStart: strPtr("09:00"), ShiftEnd: strPtr("17:00")},
	}
	// Open row two days back: second rung of the ladder.
	twoDaysAgo := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	seedOpenRow(t, f, 1, twoDaysAgo, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), StatusPresent)

	summary := f.service.RunAutoCheckout(context.Background())

	assert.Equal(t, 1, summary.Updated)
	row, err := f.logs.FindByDate(context.Background(), 1, twoDaysAgo)
	require.NoError(t, err)
	require.NotNil(t, row.CheckOut)
	assert.Equal(t, time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC), *row.CheckOut)
}

func TestRunAutoCheckout_FallsBackToMostRecentOpen(t *testing.T) {
	f := newFixture(t)
	f.at(time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC))
	f.employees.employees = []Employee{
		{ID: 1, ShiftStart: strPtr("09:00"), ShiftEnd: strPtr("17:00")},
	}
	// Far outside the adjacent-day rungs.
	stale := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	seedOpenRow(t, f, 1, stale, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC), StatusPresent)

	summary := f.service.RunAutoCheckout(context.Background())

	assert.Equal(t, 1, summary.Updated)
	row, err := f.logs.FindByDate(context.Background(), 1, stale)
	require.NoError(t, err)
	assert.NotNil(t, row.CheckOut)
}

func TestRunAutoCheckout_CheckoutCappedAtInvocation(t *testing.T) {
	f := newFixture(t)
	invokedAt := time.Date(2026, 3, 11, 4, 0, 0, 0, time.UTC)
	f.at(invokedAt)
	f.employees.employees = []Employee{
		{ID: 1, ShiftStart: strPtr("21:00"), ShiftEnd: strPtr("05:00")},
	}
	yesterday := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	seedOpenRow(t, f, 1, yesterday, time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC), StatusPresent)

	summary := f.service.RunAutoCheckout(context.Background())

	assert.Equal(t, 1, summary.Updated)
	row, err := f.logs.FindByDate(context.Background(), 1, yesterday)
	require.NoError(t, err)
	require.NotNil(t, row.CheckOut)
	// Shift window ends 05:00 but the job ran at 04:00, so the checkout
	// never postdates the invocation. Seven worked hours makes a half day.
	assert.Equal(t, invokedAt, *row.CheckOut)
	assert.Equal(t, StatusHalfDay, row.Status)
}

func TestRunAutoCheckout_StatusDerivation(t *testing.T) {
	tests := []struct {
		name    string
		checkIn time.Time
		seeded  AttendanceStatus
		want    AttendanceStatus
	}{
		{
			name:    "eight hours stays present",
			checkIn: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			seeded:  StatusPresent,
			want:    StatusPresent,
		},
		{
			name:    "five hours becomes half day",
			checkIn: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			seeded:  StatusPresent,
			want:    StatusHalfDay,
		},
		{
			name:    "half hour becomes absent",
			checkIn: time.Date(2026, 3, 10, 16, 30, 0, 0, time.UTC),
			seeded:  StatusPresent,
			want:    StatusAbsent,
		},
		{
			name:    "absent row never changes",
			checkIn: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			seeded:  StatusAbsent,
			want:    StatusAbsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.at(time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC))
			f.employees.employees = []Employee{
				{ID: 1, ShiftStart: strPtr("09:00"), ShiftEnd: strPtr("17:00")},
			}
			yesterday := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
			seedOpenRow(t, f, 1, yesterday, tt.checkIn, tt.seeded)

			summary := f.service.RunAutoCheckout(context.Background())
			require.Equal(t, 1, summary.Updated)

			row, err := f.logs.FindByDate(context.Background(), 1, yesterday)
			require.NoError(t, err)
			assert.Equal(t, tt.want, row.Status)
		})
	}
}

func TestRunAutoCheckout_ErrorsIsolatedPerEmployee(t *testing.T) {
	f := newFixture(t)
	f.at(time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC))
	f.employees.employees = []Employee{
		{ID: 1, ShiftStart: strPtr("09:00"), ShiftEnd: strPtr("17:00")},
		{ID: 2, ShiftStart: strPtr("09:00"), ShiftEnd: strPtr("17:00")},
	}
	yesterday := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	seedOpenRow(t, f, 1, yesterday, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), StatusPresent)
	seedOpenRow(t, f, 2, yesterday, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), StatusPresent)

	f.logs.setCheckoutErr = assert.AnError
	summary := f.service.RunAutoCheckout(context.Background())

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, 0, summary.Updated)
}

func TestRunAutoCheckout_StorageUnavailable(t *testing.T) {
	f := newFixture(t)
	f.health.healthy = false
	f.health.reconnectOK = false
	f.employees.employees = []Employee{{ID: 1}}

	summary := f.service.RunAutoCheckout(context.Background())

	assert.Equal(t, RunSummary{}, summary)
}
