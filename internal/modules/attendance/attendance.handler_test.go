package attendance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntrospector struct {
	next map[string]time.Time
}

func (f *fakeIntrospector) NextRuns() map[string]time.Time { return f.next }

func newTestRouter(t *testing.T, scheduler ScheduleIntrospector) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t)
	f.at(holidayNow)

	router := gin.New()
	RegisterRoutes(router, NewHandler(f.service, scheduler))
	return router, f
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTriggerAutoCheckout(t *testing.T) {
	router, f := newTestRouter(t, nil)
	f.employees.employees = []Employee{{ID: 1}}

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/triggers/auto-checkout", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Job     string     `json:"job"`
			Summary RunSummary `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, JobAutoCheckout, resp.Data.Job)
	assert.Equal(t, 1, resp.Data.Summary.Processed)
	assert.Equal(t, 1, resp.Data.Summary.Skipped)
}

func TestTriggerAutoMarkAbsent_WithDateReplays(t *testing.T) {
	router, f := newTestRouter(t, nil)
	// holidayNow is 10:00, only an hour past the 09:00 start; the replay
	// must mark anyway.
	f.employees.employees = []Employee{{ID: 1, ShiftStart: strPtr("09:00"), ShiftEnd: strPtr("17:00")}}

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/triggers/auto-mark-absent?date=2026-06-12", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Job     string     `json:"job"`
			Summary RunSummary `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, JobAutoMarkAbsent, resp.Data.Job)
	assert.Equal(t, 1, resp.Data.Summary.Updated)

	row, err := f.logs.FindByDate(context.Background(), 1, time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, StatusAbsent, row.Status)
}

func TestTriggerAutoMarkAbsent_RejectsBadDate(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/triggers/auto-mark-absent?date=junk", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerLatesReset(t *testing.T) {
	router, f := newTestRouter(t, nil)
	f.summaries.rolling = map[uint64]*counterSet{1: {MonthlyLates: 0}, 2: {MonthlyLates: 2}}

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/triggers/lates/reset", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Job     string     `json:"job"`
			Summary RunSummary `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, JobMonthlyLatesReset, resp.Data.Job)
	assert.Equal(t, 2, resp.Data.Summary.Updated)
	assert.Equal(t, MonthlyLateAllowance, f.summaries.rolling[1].MonthlyLates)
}

func TestTriggerMonthlyLeaveAccrual(t *testing.T) {
	router, f := newTestRouter(t, nil)
	f.summaries.quarterly = map[uint64]int{1: 3}

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/triggers/leaves/accrue-monthly", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, f.summaries.quarterly[1])
}

func TestTriggerHolidayScan_WithDateReplays(t *testing.T) {
	router, f := newTestRouter(t, nil)
	seedHoliday(t, f, "Missed", "2026-06-10", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	f.employees.employees = []Employee{{ID: 1, ShiftStart: strPtr("14:00"), ShiftEnd: strPtr("22:00")}}

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/triggers/holiday-scan?date=2026-06-10", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	row, err := f.logs.FindByDate(context.Background(), 1, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, row)
}

func TestTriggerHolidayScan_RejectsBadDate(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/triggers/holiday-scan?date=junk", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerWeekendPresence_ForceFlag(t *testing.T) {
	router, f := newTestRouter(t, nil)
	// holidayNow is a Monday; only the forced variant writes anything.
	f.employees.employees = []Employee{{ID: 1, ShiftStart: strPtr("09:00"), ShiftEnd: strPtr("17:00")}}

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/triggers/weekend-presence", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.logs.rows)

	w = doJSON(t, router, http.MethodPost, "/api/v1/attendance/triggers/weekend-presence?force=true", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.logs.rows, 1)
}

func TestGetTriggerStatus_IncludesNextRuns(t *testing.T) {
	nextRun := time.Date(2026, 6, 16, 5, 0, 0, 0, time.UTC)
	router, f := newTestRouter(t, &fakeIntrospector{next: map[string]time.Time{JobAutoCheckout: nextRun}})
	f.employees.employees = []Employee{{ID: 1}}

	w := doJSON(t, router, http.MethodGet, "/api/v1/attendance/triggers/status", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data TriggerStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2026-06-15", resp.Data.Date)
	assert.Equal(t, int64(1), resp.Data.ActiveEmployees)
	require.Contains(t, resp.Data.NextRuns, JobAutoCheckout)
	assert.True(t, resp.Data.NextRuns[JobAutoCheckout].Equal(nextRun))
}

func TestCreateHolidayEndpoint(t *testing.T) {
	router, f := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/holidays", CreateHolidayRequest{
		Name: "Founders Day",
		Date: "2026-07-01",
	}, map[string]string{"X-Actor-ID": "42"})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data HolidayCreatedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp.Data.ID)
	assert.Equal(t, "2026-07-01", resp.Data.Date)

	// The acting HR user from the header lands on the audit row.
	require.Len(t, f.hrLog.entries, 1)
	assert.Equal(t, uint64(42), f.hrLog.entries[0].actorID)
}

func TestCreateHolidayEndpoint_ValidationFailure(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/holidays", CreateHolidayRequest{
		Name: "x",
		Date: "not-a-date",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateHolidayEndpoint_Conflict(t *testing.T) {
	router, f := newTestRouter(t, nil)
	seedHoliday(t, f, "Existing", "2026-07-01", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	w := doJSON(t, router, http.MethodPost, "/api/v1/attendance/holidays", CreateHolidayRequest{
		Name: "Duplicate",
		Date: "2026-07-01",
	}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteHolidayEndpoint(t *testing.T) {
	router, f := newTestRouter(t, nil)
	planned := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	futureID := seedHoliday(t, f, "Future", "2026-06-25", planned)
	pastID := seedHoliday(t, f, "Past", "2026-06-10", planned)

	w := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/attendance/holidays/%d", pastID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/attendance/holidays/%d", futureID), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/attendance/holidays/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListHolidaysEndpoint_MonthValidation(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/attendance/holidays?month=13", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckHolidayEndpoint(t *testing.T) {
	router, f := newTestRouter(t, nil)
	seedHoliday(t, f, "Mid June Break", "2026-06-15", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	w := doJSON(t, router, http.MethodGet, "/api/v1/attendance/holidays/check?date=2026-06-15", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data HolidayCheckResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.IsHoliday)
}

func TestWeekendStatusEndpoint(t *testing.T) {
	router, f := newTestRouter(t, nil)
	f.employees.employees = []Employee{{ID: 1}}

	w := doJSON(t, router, http.MethodGet, "/api/v1/attendance/triggers/weekend-status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data WeekendStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.IsWeekend)
	assert.Equal(t, "Monday", resp.Data.Weekday)
	assert.Equal(t, int64(1), resp.Data.ActiveEmployees)
}

func TestActorIDParsing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header string
		want   uint64
	}{
		{"missing header", "", SystemActorID},
		{"valid id", "17", 17},
		{"garbage", "abc", SystemActorID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("X-Actor-ID", tt.header)
			}
			assert.Equal(t, tt.want, actorID(c))
		})
	}
}
