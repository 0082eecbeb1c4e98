package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkPresentForDate_CreatesPresentRow(t *testing.T) {
	f := newFixture(t)
	employee := Employee{ID: 1, ShiftStart: strPtr("09:00"), ShiftEnd: strPtr("17:00")}
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	updated, err := f.service.MarkPresentForDate(context.Background(), employee, date)
	require.NoError(t, err)
	assert.True(t, updated)

	row, err := f.logs.FindByDate(context.Background(), 1, date)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, StatusPresent, row.Status)
	assert.Equal(t, ModeOnsite, row.Mode)
	require.NotNil(t, row.CheckIn)
	require.NotNil(t, row.CheckOut)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), *row.CheckIn)
	assert.Equal(t, time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC), *row.CheckOut)

	assert.Equal(t, 1, f.summaries.rolling[1].PresentDays)
	assert.Equal(t, 0, f.summaries.rolling[1].AbsentDays)
	assert.Equal(t, 1, f.summaries.monthly[monthKeyFor(1, "2026-03")].PresentDays)
}

func TestMarkPresentForDate_Idempotent(t *testing.T) {
	f := newFixture(t)
	employee := Employee{ID: 1}
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	first, err := f.service.MarkPresentForDate(context.Background(), employee, date)
	require.NoError(t, err)
	second, err := f.service.MarkPresentForDate(context.Background(), employee, date)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, 1, f.logs.upsertCalls)
	assert.Equal(t, 1, f.summaries.rolling[1].PresentDays)
}

func TestMarkPresentForDate_DefaultShiftWindow(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := f.service.MarkPresentForDate(context.Background(), Employee{ID: 2}, date)
	require.NoError(t, err)

	row, err := f.logs.FindByDate(context.Background(), 2, date)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 9, row.CheckIn.Hour())
	assert.Equal(t, 17, row.CheckOut.Hour())
}

func TestMarkPresentForDate_DecrementsAbsentDays(t *testing.T) {
	f := newFixture(t)
	f.summaries.rolling[1] = &counterSet{AbsentDays: 2}
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := f.service.MarkPresentForDate(context.Background(), Employee{ID: 1}, date)
	require.NoError(t, err)

	assert.Equal(t, 1, f.summaries.rolling[1].AbsentDays)
	assert.Equal(t, 1, f.summaries.rolling[1].PresentDays)
}

func TestMarkPresentForDate_AbsentDaysFloorClamped(t *testing.T) {
	f := newFixture(t)
	dates := []time.Time{
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	}

	for _, date := range dates {
		_, err := f.service.MarkPresentForDate(context.Background(), Employee{ID: 1}, date)
		require.NoError(t, err)
	}

	// Three decrements against a zero counter stay at zero.
	assert.Equal(t, 0, f.summaries.rolling[1].AbsentDays)
	assert.Equal(t, 3, f.summaries.rolling[1].PresentDays)
}

func TestMarkPresentForDate_ReplacesNonPresentRow(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.logs.Upsert(context.Background(), AttendanceLog{
		EmployeeID: 1,
		Date:       date,
		Status:     StatusAbsent,
	}))

	updated, err := f.service.MarkPresentForDate(context.Background(), Employee{ID: 1}, date)
	require.NoError(t, err)
	assert.True(t, updated)

	row, err := f.logs.FindByDate(context.Background(), 1, date)
	require.NoError(t, err)
	assert.Equal(t, StatusPresent, row.Status)
}

func TestMarkPresentForDate_OvernightShift(t *testing.T) {
	f := newFixture(t)
	employee := Employee{ID: 3, ShiftStart: strPtr("21:00"), ShiftEnd: strPtr("05:00")}
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := f.service.MarkPresentForDate(context.Background(), employee, date)
	require.NoError(t, err)

	row, err := f.logs.FindByDate(context.Background(), 3, date)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC), *row.CheckIn)
	assert.Equal(t, time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC), *row.CheckOut)
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2026-03", MonthKey(time.Date(2026, 3, 10, 15, 4, 0, 0, time.UTC)))
	assert.Equal(t, "2026-12", MonthKey(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRunSummaryMerge(t *testing.T) {
	total := RunSummary{Processed: 1, Updated: 1}
	total.Merge(RunSummary{Processed: 2, Skipped: 1, Errors: 3})
	assert.Equal(t, RunSummary{Processed: 3, Updated: 1, Skipped: 1, Errors: 3}, total)
}
