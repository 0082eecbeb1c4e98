package attendance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const JobWeekendPresence = "weekend_presence"

// RunWeekendPresence marks shift-eligible employees present on Saturdays and
// Sundays. On any other weekday the run is a no-op. An employee qualifies
// when their shift start falls inside the grace window of "now" and no log
// row exists yet for today; the existence check makes a second run inside
// the same window a no-op.
func (s *Service) RunWeekendPresence(ctx context.Context) RunSummary {
	return s.runWeekendPresence(ctx, false)
}

// RunWeekendPresenceForced is the manual-trigger variant: it bypasses the
// weekend check and the grace filter so ops can replay a missed run.
func (s *Service) RunWeekendPresenceForced(ctx context.Context) RunSummary {
	return s.runWeekendPresence(ctx, true)
}

func (s *Service) runWeekendPresence(ctx context.Context, force bool) RunSummary {
	started := time.Now()
	var summary RunSummary

	if !s.guard.EnsureHealthy(ctx) {
		s.logger.Warn(ctx, "Skipping weekend presence run, storage unavailable")
		return summary
	}

	now := s.businessNow()
	today := s.businessToday()

	if !force && !isWeekend(now) {
		s.logger.Debug(ctx, "Weekend presence run on a weekday, nothing to do",
			zap.String("weekday", now.Weekday().String()))
		s.recordJobRun(ctx, JobWeekendPresence, started, summary)
		return summary
	}

	employees, err := s.repos.Employees.ListActive(ctx)
	if err != nil {
		s.logger.Error(ctx, "Failed to list active employees", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobWeekendPresence, started, summary)
		return summary
	}

	for i := range employees {
		employee := employees[i]
		if employee.ShiftStart == nil {
			continue
		}
		summary.Processed++

		if !force && !IsWithinGrace(now, *employee.ShiftStart, s.grace()) {
			summary.Skipped++
			continue
		}

		existing, err := s.repos.Logs.FindByDate(ctx, employee.ID, today)
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

		if err := s.markPresent(ctx, s.repos.Logs, s.repos.Summaries, employee, today); err != nil {
			s.logger.Error(ctx, "Failed to mark weekend presence",
				zap.Uint64("employee_id", employee.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		summary.Updated++
	}

	s.countMarkedPresent(JobWeekendPresence, summary.Updated)

	if summary.Updated > 0 {
		s.appendHRLog(ctx, SystemActorID, ActionWeekendPresence, nil,
			fmt.Sprintf("Weekend presence marked for %d employees on %s", summary.Updated, today.Format("2006-01-02")))
	}

	s.recordJobRun(ctx, JobWeekendPresence, started, summary)
	return summary
}

// WeekendStatus is the read-only introspection surface for the weekend job.
type WeekendStatus struct {
	IsWeekend       bool   `json:"is_weekend"`
	Weekday         string `json:"weekday"`
	ActiveEmployees int64  `json:"active_employees"`
	GraceMinutes    int    `json:"grace_minutes"`
}

// GetWeekendStatus reports whether the weekend job would act right now.
func (s *Service) GetWeekendStatus(ctx context.Context) (*WeekendStatus, error) {
	now := s.businessNow()

	count, err := s.repos.Employees.CountActive(ctx)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to count active employees")
	}

	return &WeekendStatus{
		IsWeekend:       isWeekend(now),
		Weekday:         now.Weekday().String(),
		ActiveEmployees: count,
		GraceMinutes:    int(s.grace().Minutes()),
	}, nil
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
