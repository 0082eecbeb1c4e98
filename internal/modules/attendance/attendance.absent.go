package attendance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const JobAutoMarkAbsent = "auto_mark_absent"

// DefaultAbsentAfterMinutes is how long past the shift start an employee may
// stay unlogged before the engine marks them absent.
const DefaultAbsentAfterMinutes = 180

// RunAutoMarkAbsent marks employees absent once their shift start is far
// enough in the past with no log row for the working day. The business date
// is shift-aware: during the tail of an overnight shift the row targets the
// previous calendar date. Employees without a configured shift start are
// never auto-marked, and an existing row of any status is left untouched so
// repeated runs are no-ops.
func (s *Service) RunAutoMarkAbsent(ctx context.Context) RunSummary {
	return s.runAutoMarkAbsent(ctx, nil)
}

// RunAutoMarkAbsentForDate is the manual replay variant: it processes the
// given date without the deadline filter so ops can backfill a missed run.
func (s *Service) RunAutoMarkAbsentForDate(ctx context.Context, date time.Time) RunSummary {
	d := dateOnly(date.In(s.loc))
	return s.runAutoMarkAbsent(ctx, &d)
}

func (s *Service) runAutoMarkAbsent(ctx context.Context, replayDate *time.Time) RunSummary {
	started := time.Now()
	var summary RunSummary

	if !s.guard.EnsureHealthy(ctx) {
		s.logger.Warn(ctx, "Skipping auto-mark-absent run, storage unavailable")
		return summary
	}

	now := s.businessNow()

	employees, err := s.repos.Employees.ListActive(ctx)
	if err != nil {
		s.logger.Error(ctx, "Failed to list active employees", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobAutoMarkAbsent, started, summary)
		return summary
	}

	for i := range employees {
		employee := employees[i]
		if employee.ShiftStart == nil {
			continue
		}
		summary.Processed++

		var date time.Time
		if replayDate != nil {
			date = *replayDate
		} else {
			startStr, endStr := shiftOrDefault(&employee)
			date = BusinessDateForShift(now, startStr, endStr)
			if MinutesSinceShiftStart(now, startStr) < s.absentAfter() {
				summary.Skipped++
				continue
			}
		}

		existing, err := s.repos.Logs.FindByDate(ctx, employee.ID, date)
		if err != nil {
			s.logger.Error(ctx, "Failed to load attendance log",
				zap.Uint64("employee_id", employee.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		if existing != nil {
			summary.Skipped++
			continue
		}

		if err := s.markAbsent(ctx, employee.ID, date); err != nil {
			s.logger.Error(ctx, "Failed to mark employee absent",
				zap.Uint64("employee_id", employee.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		summary.Updated++
	}

	s.countMarkedAbsent(JobAutoMarkAbsent, summary.Updated)

	if summary.Updated > 0 {
		s.appendHRLog(ctx, SystemActorID, ActionAutoMarkAbsent, nil,
			fmt.Sprintf("Auto-mark-absent recorded %d employees absent", summary.Updated))
	}

	s.recordJobRun(ctx, JobAutoMarkAbsent, started, summary)
	return summary
}

// markAbsent writes an absent row with no check-in/check-out and bumps the
// absent counters on the rolling and monthly summaries.
func (s *Service) markAbsent(ctx context.Context, employeeID uint64, date time.Time) error {
	err := s.repos.Logs.Upsert(ctx, AttendanceLog{
		EmployeeID: employeeID,
		Date:       date,
		Status:     StatusAbsent,
		Mode:       ModeOnsite,
	})
	if err != nil {
		return WrapAttendanceError(err, "Failed to upsert attendance log")
	}

	deltas := SummaryDeltas{AbsentDays: 1}
	if err := s.repos.Summaries.ApplyDeltas(ctx, employeeID, deltas); err != nil {
		return WrapAttendanceError(err, "Failed to adjust attendance summary")
	}
	if err := s.repos.Summaries.ApplyMonthlyDeltas(ctx, employeeID, MonthKey(date), deltas); err != nil {
		return WrapAttendanceError(err, "Failed to adjust monthly summary")
	}
	return nil
}

func (s *Service) absentAfter() int {
	if s.cfg.Attendance.AbsentAfterMinutes > 0 {
		return s.cfg.Attendance.AbsentAfterMinutes
	}
	return DefaultAbsentAfterMinutes
}
