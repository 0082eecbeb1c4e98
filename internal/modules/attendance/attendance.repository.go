package attendance

import (
	"context"
	"time"
)

// The engine depends on narrow repository interfaces instead of one
// monolithic data-access object so that job semantics (idempotence,
// floor-clamping, error isolation) can be tested against in-memory fakes.

// EmployeeRepository is the read-only roster view.
type EmployeeRepository interface {
	ListActive(ctx context.Context) ([]Employee, error)
	CountActive(ctx context.Context) (int64, error)
}

// LogWriter is the subset of attendance-log mutations available inside a
// holiday batch transaction.
type LogWriter interface {
	// Upsert inserts the row for (employeeID, date) or updates the
	// existing one. Relies on the unique (employee_id, date) key.
	Upsert(ctx context.Context, log AttendanceLog) error
	// SetCheckout closes an open row and re-derives its status.
	SetCheckout(ctx context.Context, id uint64, checkout time.Time, status AttendanceStatus) error
}

// AttendanceLogRepository provides log lookups plus the write operations.
type AttendanceLogRepository interface {
	LogWriter

	// FindByDate returns the row for (employeeID, date) or nil.
	FindByDate(ctx context.Context, employeeID uint64, date time.Time) (*AttendanceLog, error)
	// FindOpenByDate returns the row for (employeeID, date) that has a
	// check-in but no check-out, or nil.
	FindOpenByDate(ctx context.Context, employeeID uint64, date time.Time) (*AttendanceLog, error)
	// FindMostRecentOpen returns the newest open row regardless of date, or nil.
	FindMostRecentOpen(ctx context.Context, employeeID uint64) (*AttendanceLog, error)
	// ListByDate returns all rows for the given business date.
	ListByDate(ctx context.Context, date time.Time) ([]AttendanceLog, error)
}

// SummaryWriter applies bounded counter arithmetic. Decrements are
// floor-clamped at zero by the implementation.
type SummaryWriter interface {
	// ApplyDeltas creates the rolling summary row with baseline zeros if
	// missing, then applies the deltas.
	ApplyDeltas(ctx context.Context, employeeID uint64, deltas SummaryDeltas) error
	// ApplyMonthlyDeltas does the same against the (employee, month) row.
	ApplyMonthlyDeltas(ctx context.Context, employeeID uint64, month string, deltas SummaryDeltas) error
}

// SummaryRepository adds the bulk leave-balance operations used by the
// calendar-anchored jobs.
type SummaryRepository interface {
	SummaryWriter

	// ResetQuarterlyLeaves assigns an absolute value to every row and
	// returns the affected row count. The only absolute overwrite in the core.
	ResetQuarterlyLeaves(ctx context.Context, value int) (int64, error)
	// AddQuarterlyLeaves bulk-increments every row.
	AddQuarterlyLeaves(ctx context.Context, delta int) (int64, error)
	// ResetMonthlyLates assigns the monthly late allowance to every row.
	ResetMonthlyLates(ctx context.Context, value int) (int64, error)
}

// HolidayRepository manages the holiday calendar.
type HolidayRepository interface {
	FindByDate(ctx context.Context, date time.Time) (*Holiday, error)
	FindByID(ctx context.Context, id uint64) (*Holiday, error)
	Create(ctx context.Context, h Holiday) (uint64, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, year, month int) ([]Holiday, error)
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]Holiday, error)
	CountAll(ctx context.Context) (int64, error)
	CountBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountFrom(ctx context.Context, from time.Time) (int64, error)
}

// AuditLogRepository appends to the HR log table. Append-only.
type AuditLogRepository interface {
	Append(ctx context.Context, actorID uint64, actionType string, affectedEmployeeID *uint64, description string) error
}

// TxRepos exposes the write-side repositories bound to one transaction.
type TxRepos interface {
	Logs() LogWriter
	Summaries() SummaryWriter
}

// TxRunner groups multiple writes into a single bounded-timeout transaction.
// Used only by the holiday scan batch path.
type TxRunner interface {
	WithinTransaction(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, repos TxRepos) error) error
}

// Repositories bundles everything the service needs from storage.
type Repositories struct {
	Employees EmployeeRepository
	Logs      AttendanceLogRepository
	Summaries SummaryRepository
	Holidays  HolidayRepository
	HRLog     AuditLogRepository
	Tx        TxRunner
}
