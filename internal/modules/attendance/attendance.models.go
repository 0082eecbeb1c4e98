package attendance

import "time"

// AttendanceStatus enumerates the terminal states an attendance log can hold.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusHalfDay AttendanceStatus = "half_day"
	StatusLeave   AttendanceStatus = "leave"
	StatusRemote  AttendanceStatus = "remote"
)

// WorkMode describes where the employee worked for a given log row.
type WorkMode string

const (
	ModeOnsite WorkMode = "onsite"
	ModeRemote WorkMode = "remote"
)

// Employee is the read-only roster view this engine consumes. Shift fields
// are HH:MM strings and may describe an overnight shift (end <= start).
type Employee struct {
	ID         uint64
	FirstName  string
	LastName   string
	ShiftStart *string
	ShiftEnd   *string
	Status     string
}

// AttendanceLog is one row per (employee, business date).
type AttendanceLog struct {
	ID         uint64
	EmployeeID uint64
	Date       time.Time
	CheckIn    *time.Time
	CheckOut   *time.Time
	Status     AttendanceStatus
	Mode       WorkMode
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Open reports whether the log has a check-in but no check-out yet.
func (l *AttendanceLog) Open() bool {
	return l.CheckIn != nil && l.CheckOut == nil
}

// Holiday is a company-wide non-working date. At most one per calendar date.
type Holiday struct {
	ID          uint64
	Name        string
	Date        time.Time
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Emergency reports whether the holiday was created on or after its own date.
// Emergency holidays cannot be deleted retroactively.
func (h *Holiday) Emergency() bool {
	created := dateOnly(h.CreatedAt)
	return !created.Before(dateOnly(h.Date))
}

// SummaryDeltas is a bounded increment/decrement set applied to the rolling
// and monthly counter tables. Negative values are floor-clamped at zero by
// the storage layer, never applied as-is. MonthlyLates is the per-month
// late allowance balance; it lives on the rolling table only.
type SummaryDeltas struct {
	PresentDays  int
	AbsentDays   int
	LateDays     int
	HalfDays     int
	LeaveDays    int
	RemoteDays   int
	MonthlyLates int
}

// RunSummary is the structured result every job returns, success or not.
type RunSummary struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Merge folds another summary into this one.
func (r *RunSummary) Merge(other RunSummary) {
	r.Processed += other.Processed
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Errors += other.Errors
}

// SystemActorID is the actor recorded on HR log rows written by scheduled
// jobs rather than a human caller.
const SystemActorID uint64 = 0

// HR log action types written alongside job runs and holiday mutations.
const (
	ActionAutoCheckout    = "attendance_auto_checkout"
	ActionAutoMarkAbsent  = "attendance_auto_marked_absent"
	ActionHolidayCreated  = "holiday_created"
	ActionHolidayDeleted  = "holiday_deleted"
	ActionHolidayAdjusted = "holiday_attendance_adjusted"
	ActionWeekendPresence = "weekend_presence_marked"
	ActionLeavesReset     = "quarterly_leaves_reset"
	ActionLeavesAccrued   = "quarterly_leaves_accrued"
	ActionLatesReset      = "monthly_lates_reset"
)

// MonthKey formats a date as the "YYYY-MM" key used by the monthly summary table.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
