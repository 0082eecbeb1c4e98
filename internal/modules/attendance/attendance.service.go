package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/hrcore/attendance-engine/internal/config"
	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
	"github.com/hrcore/attendance-engine/internal/shared/validator"
	"go.uber.org/zap"
)

// Service owns the attendance lifecycle automation: the reconciliation
// primitives plus every scheduled job body. Jobs never return an error to
// the scheduler; failures are absorbed into the RunSummary.
type Service struct {
	repos       Repositories
	guard       *HealthGuard
	auditLogger *observability.AuditLogger
	validator   *validator.Validator
	logger      *observability.Logger
	metrics     *observability.Metrics
	cfg         *config.Config
	loc         *time.Location

	// now is swapped in tests to pin the business clock.
	now func() time.Time
}

// NewService creates the attendance service. loc is the fixed operating
// timezone every business-date computation uses.
func NewService(
	repos Repositories,
	guard *HealthGuard,
	auditLogger *observability.AuditLogger,
	validatorInstance *validator.Validator,
	logger *observability.Logger,
	metrics *observability.Metrics,
	cfg *config.Config,
	loc *time.Location,
) *Service {
	return &Service{
		repos:       repos,
		guard:       guard,
		auditLogger: auditLogger,
		validator:   validatorInstance,
		logger:      logger,
		metrics:     metrics,
		cfg:         cfg,
		loc:         loc,
		now:         time.Now,
	}
}

// Location returns the fixed operating timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// businessNow is the current instant in the operating timezone.
func (s *Service) businessNow() time.Time {
	return s.now().In(s.loc)
}

// businessToday is today's business date (midnight, operating timezone).
func (s *Service) businessToday() time.Time {
	return dateOnly(s.businessNow())
}

func (s *Service) grace() time.Duration {
	if s.cfg.Attendance.GraceMinutes > 0 {
		return time.Duration(s.cfg.Attendance.GraceMinutes) * time.Minute
	}
	return DefaultGrace
}

// MarkPresentForDate is the idempotent marking primitive shared by the
// holiday paths. It upserts the (employee, date) log with status present and
// a check-in/check-out pair derived from the employee's shift window, then
// adjusts the rolling and monthly counters: presentDays += 1,
// absentDays floor-clamped decrement. A row already marked present is left
// untouched and reported as not updated, so repeated application has the
// same net effect as a single one.
func (s *Service) MarkPresentForDate(ctx context.Context, employee Employee, date time.Time) (bool, error) {
	date = dateOnly(date.In(s.loc))

	existing, err := s.repos.Logs.FindByDate(ctx, employee.ID, date)
	if err != nil {
		return false, WrapAttendanceError(err, "Failed to load attendance log")
	}
	if existing != nil && existing.Status == StatusPresent {
		return false, nil
	}

	if err := s.markPresent(ctx, s.repos.Logs, s.repos.Summaries, employee, date); err != nil {
		return false, err
	}
	return true, nil
}

// markPresent performs the upsert plus counter deltas against the given
// writers, which may be transaction-bound.
func (s *Service) markPresent(ctx context.Context, logs LogWriter, summaries SummaryWriter, employee Employee, date time.Time) error {
	start, end := s.shiftWindowFor(&employee, date)

	err := logs.Upsert(ctx, AttendanceLog{
		EmployeeID: employee.ID,
		Date:       date,
		CheckIn:    &start,
		CheckOut:   &end,
		Status:     StatusPresent,
		Mode:       ModeOnsite,
	})
	if err != nil {
		return WrapAttendanceError(err, "Failed to upsert attendance log")
	}

	deltas := SummaryDeltas{PresentDays: 1, AbsentDays: -1}
	if err := summaries.ApplyDeltas(ctx, employee.ID, deltas); err != nil {
		return WrapAttendanceError(err, "Failed to adjust attendance summary")
	}
	if err := summaries.ApplyMonthlyDeltas(ctx, employee.ID, MonthKey(date), deltas); err != nil {
		return WrapAttendanceError(err, "Failed to adjust monthly summary")
	}
	return nil
}

// shiftWindowFor resolves the employee's absolute shift window on the given
// business date, logging when permissive parsing had to clamp a component.
func (s *Service) shiftWindowFor(e *Employee, date time.Time) (time.Time, time.Time) {
	startStr, endStr := shiftOrDefault(e)

	if _, _, clamped := ParseShiftTime(startStr); clamped {
		s.logger.Warn(context.Background(), "Clamped malformed shift start",
			zap.Uint64("employee_id", e.ID), zap.String("shift_start", startStr))
	}
	if _, _, clamped := ParseShiftTime(endStr); clamped {
		s.logger.Warn(context.Background(), "Clamped malformed shift end",
			zap.Uint64("employee_id", e.ID), zap.String("shift_end", endStr))
	}

	return ResolveShiftWindow(date, startStr, endStr)
}

// countMarkedPresent feeds the marked-present counter, labeled by the job
// or flow that produced the markings.
func (s *Service) countMarkedPresent(source string, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.MarkedPresentTotal.WithLabelValues(source).Add(float64(n))
	}
}

// countMarkedAbsent feeds the marked-absent counter, labeled by source.
func (s *Service) countMarkedAbsent(source string, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.MarkedAbsentTotal.WithLabelValues(source).Add(float64(n))
	}
}

// recordJobRun logs the run summary and feeds the job metrics.
func (s *Service) recordJobRun(ctx context.Context, jobName string, started time.Time, summary RunSummary) {
	duration := time.Since(started)
	var jobErr error
	if summary.Errors > 0 {
		jobErr = fmt.Errorf("%d record errors", summary.Errors)
	}
	if s.metrics != nil {
		s.metrics.RecordBackgroundJob(jobName, duration, jobErr)
	}
	s.logger.Info(ctx, "Job run completed",
		zap.String("job", jobName),
		zap.Int("processed", summary.Processed),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", duration),
	)
}

// appendHRLog writes the HR-visible audit row, absorbing failures: an audit
// write must never fail the job that produced it.
func (s *Service) appendHRLog(ctx context.Context, actorID uint64, action string, affectedEmployeeID *uint64, description string) {
	if err := s.repos.HRLog.Append(ctx, actorID, action, affectedEmployeeID, description); err != nil {
		s.logger.Error(ctx, "Failed to append HR log entry",
			zap.String("action", action), zap.Error(err))
	}
}
