package attendance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const JobAutoCheckout = "auto_checkout"

// RunAutoCheckout closes open check-ins from the prior business day. For
// each active employee it looks for an open row at yesterday, then
// yesterday-1, yesterday+1, and finally the most recent open row at any
// date. The derived checkout is capped at the job's own invocation time so
// it never postdates "now". Status is re-derived from worked hours, except
// that an absent row is authoritative and never changed.
func (s *Service) RunAutoCheckout(ctx context.Context) RunSummary {
	started := time.Now()
	var summary RunSummary

	if !s.guard.EnsureHealthy(ctx) {
		s.logger.Warn(ctx, "Skipping auto-checkout run, storage unavailable")
		return summary
	}

	invokedAt := s.businessNow()
	yesterday := s.businessToday().AddDate(0, 0, -1)

	employees, err := s.repos.Employees.ListActive(ctx)
	if err != nil {
		s.logger.Error(ctx, "Failed to list active employees", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobAutoCheckout, started, summary)
		return summary
	}

	for i := range employees {
		employee := employees[i]
		summary.Processed++

		open, err := s.findOpenSession(ctx, employee.ID, yesterday)
		if err != nil {
			s.logger.Error(ctx, "Failed to locate open session",
				zap.Uint64("employee_id", employee.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		if open == nil {
			summary.Skipped++
			continue
		}

		checkout := CandidateCheckout(open.Date, employee.ShiftStart, employee.ShiftEnd, invokedAt)
		status := s.deriveStatus(open, checkout)

		if err := s.repos.Logs.SetCheckout(ctx, open.ID, checkout, status); err != nil {
			s.logger.Error(ctx, "Failed to close attendance session",
				zap.Uint64("employee_id", employee.ID),
				zap.Uint64("log_id", open.ID),
				zap.Error(err))
			summary.Errors++
			continue
		}
		if s.metrics != nil {
			s.metrics.AutoCheckoutsTotal.WithLabelValues(string(status)).Inc()
		}
		summary.Updated++
	}

	if summary.Updated > 0 {
		s.appendHRLog(ctx, SystemActorID, ActionAutoCheckout, nil,
			fmt.Sprintf("Auto-checkout closed %d open sessions for %s", summary.Updated, yesterday.Format("2006-01-02")))
	}

	s.recordJobRun(ctx, JobAutoCheckout, started, summary)
	return summary
}

// findOpenSession applies the lookup ladder: yesterday, yesterday-1,
// yesterday+1, then the most recent open row regardless of date.
func (s *Service) findOpenSession(ctx context.Context, employeeID uint64, yesterday time.Time) (*AttendanceLog, error) {
	for _, date := range []time.Time{yesterday, yesterday.AddDate(0, 0, -1), yesterday.AddDate(0, 0, 1)} {
		open, err := s.repos.Logs.FindOpenByDate(ctx, employeeID, date)
		if err != nil {
			return nil, err
		}
		if open != nil {
			return open, nil
		}
	}
	return s.repos.Logs.FindMostRecentOpen(ctx, employeeID)
}

// deriveStatus maps worked hours to a status. An absent row stays absent.
func (s *Service) deriveStatus(open *AttendanceLog, checkout time.Time) AttendanceStatus {
	if open.Status == StatusAbsent {
		return StatusAbsent
	}

	worked := 0.0
	if open.CheckIn != nil {
		worked = checkout.Sub(*open.CheckIn).Hours()
	}

	fullDay := s.cfg.Attendance.FullDayHours
	if fullDay <= 0 {
		fullDay = 8
	}
	halfDay := s.cfg.Attendance.HalfDayHours
	if halfDay <= 0 {
		halfDay = 4
	}

	switch {
	case worked >= fullDay:
		return StatusPresent
	case worked >= halfDay:
		return StatusHalfDay
	default:
		return StatusAbsent
	}
}
