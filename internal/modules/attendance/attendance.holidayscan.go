package attendance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const JobHolidayScan = "holiday_scan"

// RunHolidayScan is the daily scan for the current date. If today is a
// holiday it marks present those active employees whose shift start falls
// inside the grace window of "now", so each shift cohort is picked up by the
// scan run closest to its own start.
func (s *Service) RunHolidayScan(ctx context.Context) RunSummary {
	return s.runHolidayScan(ctx, s.businessToday(), true)
}

// RunHolidayScanForDate is the manual replay variant: it processes the given
// date without the grace filter so ops can backfill a missed scan.
func (s *Service) RunHolidayScanForDate(ctx context.Context, date time.Time) RunSummary {
	return s.runHolidayScan(ctx, dateOnly(date.In(s.loc)), false)
}

func (s *Service) runHolidayScan(ctx context.Context, date time.Time, graceFilter bool) RunSummary {
	started := time.Now()
	var summary RunSummary

	if !s.guard.EnsureHealthy(ctx) {
		s.logger.Warn(ctx, "Skipping holiday scan, storage unavailable")
		return summary
	}

	holiday, err := s.repos.Holidays.FindByDate(ctx, date)
	if err != nil {
		s.logger.Error(ctx, "Failed to check holiday calendar", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobHolidayScan, started, summary)
		return summary
	}
	if holiday == nil {
		s.recordJobRun(ctx, JobHolidayScan, started, summary)
		return summary
	}

	employees, err := s.repos.Employees.ListActive(ctx)
	if err != nil {
		s.logger.Error(ctx, "Failed to list active employees", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobHolidayScan, started, summary)
		return summary
	}

	now := s.businessNow()
	eligible := make([]Employee, 0, len(employees))
	for i := range employees {
		if graceFilter {
			if employees[i].ShiftStart == nil || !IsWithinGrace(now, *employees[i].ShiftStart, s.grace()) {
				continue
			}
		}
		eligible = append(eligible, employees[i])
	}
	if len(eligible) == 0 {
		s.recordJobRun(ctx, JobHolidayScan, started, summary)
		return summary
	}

	existing, err := s.repos.Logs.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error(ctx, "Failed to batch-fetch attendance logs", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobHolidayScan, started, summary)
		return summary
	}
	existingByEmployee := make(map[uint64]*AttendanceLog, len(existing))
	for i := range existing {
		existingByEmployee[existing[i].EmployeeID] = &existing[i]
	}

	// Partition into the set that needs a write and the already-present set.
	toMark := make([]Employee, 0, len(eligible))
	for i := range eligible {
		summary.Processed++
		if row, ok := existingByEmployee[eligible[i].ID]; ok && row.Status == StatusPresent {
			summary.Skipped++
			continue
		}
		toMark = append(toMark, eligible[i])
	}
	if len(toMark) == 0 {
		s.recordJobRun(ctx, JobHolidayScan, started, summary)
		return summary
	}

	// All writes for the cohort go into one bounded-timeout transaction. A
	// failure counts against the whole cohort; nothing is partially retried.
	timeout := s.cfg.Attendance.BatchTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	err = s.repos.Tx.WithinTransaction(ctx, timeout, func(txCtx context.Context, repos TxRepos) error {
		for i := range toMark {
			if err := s.markPresent(txCtx, repos.Logs(), repos.Summaries(), toMark[i], date); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "Holiday scan transaction failed",
			zap.Int("cohort_size", len(toMark)), zap.Error(err))
		summary.Errors += len(toMark)
		s.recordJobRun(ctx, JobHolidayScan, started, summary)
		return summary
	}
	summary.Updated += len(toMark)
	s.countMarkedPresent(JobHolidayScan, summary.Updated)

	s.appendHRLog(ctx, SystemActorID, ActionHolidayAdjusted, nil,
		fmt.Sprintf("Holiday scan (%s) marked %d employees present for %s", holiday.Name, summary.Updated, date.Format("2006-01-02")))
	s.recordJobRun(ctx, JobHolidayScan, started, summary)
	return summary
}
