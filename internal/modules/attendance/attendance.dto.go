package attendance

import "time"

// CreateHolidayRequest registers a company holiday.
type CreateHolidayRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// HolidayCreatedResponse reports the created holiday plus the synchronous
// attendance adjustment outcome for past/current dates.
type HolidayCreatedResponse struct {
	ID                 uint64 `json:"id"`
	Name               string `json:"name"`
	Date               string `json:"date"`
	AttendanceAdjusted bool   `json:"attendance_adjusted"`
	EmployeesAffected  int    `json:"employees_affected"`
	AdjustmentErrors   int    `json:"adjustment_errors,omitempty"`
}

// HolidayResponse is the read model for a holiday.
type HolidayResponse struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	Description *string   `json:"description,omitempty"`
	Emergency   bool      `json:"emergency"`
	CreatedAt   time.Time `json:"created_at"`
}

// HolidayCheckResponse answers "is this date a holiday".
type HolidayCheckResponse struct {
	Date      string  `json:"date"`
	IsHoliday bool    `json:"is_holiday"`
	Name      *string `json:"name,omitempty"`
}

// HolidayStatsResponse aggregates calendar counts.
type HolidayStatsResponse struct {
	Year     int            `json:"year"`
	Total    int64          `json:"total"`
	ThisYear int64          `json:"this_year"`
	Upcoming int64          `json:"upcoming"`
	ByMonth  map[string]int `json:"by_month"`
}

// TriggerStatusResponse is the introspection payload for the job surface.
type TriggerStatusResponse struct {
	Date            string               `json:"date"`
	Timezone        string               `json:"timezone"`
	ActiveEmployees int64                `json:"active_employees"`
	TodayIsHoliday  bool                 `json:"today_is_holiday"`
	HolidayName     *string              `json:"holiday_name,omitempty"`
	NextRuns        map[string]time.Time `json:"next_runs,omitempty"`
}

// TriggerRunResponse wraps a manual job invocation result.
type TriggerRunResponse struct {
	Job     string     `json:"job"`
	Summary RunSummary `json:"summary"`
}

func toHolidayResponse(h *Holiday) HolidayResponse {
	return HolidayResponse{
		ID:          h.ID,
		Name:        h.Name,
		Date:        h.Date.Format("2006-01-02"),
		Description: h.Description,
		Emergency:   h.Emergency(),
		CreatedAt:   h.CreatedAt,
	}
}

func toHolidayResponses(holidays []Holiday) []HolidayResponse {
	out := make([]HolidayResponse, len(holidays))
	for i := range holidays {
		out[i] = toHolidayResponse(&holidays[i])
	}
	return out
}
