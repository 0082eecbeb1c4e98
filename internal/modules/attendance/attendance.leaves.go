package attendance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	JobAnnualLeaveReset      = "annual_leave_reset"
	JobQuarterlyLeaveAccrual = "quarterly_leave_accrual"
	JobMonthlyLeaveAccrual   = "monthly_leave_accrual"
	JobMonthlyLatesReset     = "monthly_lates_reset"

	// AnnualLeaveAllowance is the balance every employee starts the year
	// with; each later quarter adds the same amount.
	AnnualLeaveAllowance = 5

	// MonthlyLeaveAccrual is added to every leave balance on the first of
	// each month.
	MonthlyLeaveAccrual = 2

	// MonthlyLateAllowance is the late budget every employee gets back at
	// the start of each month.
	MonthlyLateAllowance = 3
)

// RunAnnualLeaveReset sets quarterlyLeaves to the annual allowance on every
// summary row. This is the one job allowed to assign an absolute value: it
// targets a column no other job writes, so the overwrite is conflict-free.
func (s *Service) RunAnnualLeaveReset(ctx context.Context) RunSummary {
	started := time.Now()
	var summary RunSummary

	if !s.guard.EnsureHealthy(ctx) {
		s.logger.Warn(ctx, "Skipping annual leave reset, storage unavailable")
		return summary
	}

	affected, err := s.repos.Summaries.ResetQuarterlyLeaves(ctx, AnnualLeaveAllowance)
	if err != nil {
		s.logger.Error(ctx, "Annual leave reset failed", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobAnnualLeaveReset, started, summary)
		return summary
	}

	summary.Processed = int(affected)
	summary.Updated = int(affected)
	if s.metrics != nil {
		s.metrics.LeaveUpdatesTotal.WithLabelValues("reset").Add(float64(affected))
	}

	s.appendHRLog(ctx, SystemActorID, ActionLeavesReset,
		nil, fmt.Sprintf("Annual reset: quarterly leaves set to %d for %d employees", AnnualLeaveAllowance, affected))
	s.recordJobRun(ctx, JobAnnualLeaveReset, started, summary)
	return summary
}

// RunQuarterlyLeaveAccrual bulk-increments quarterlyLeaves on every summary
// row. Fires on the first day of Q2, Q3 and Q4.
func (s *Service) RunQuarterlyLeaveAccrual(ctx context.Context) RunSummary {
	started := time.Now()
	var summary RunSummary

	if !s.guard.EnsureHealthy(ctx) {
		s.logger.Warn(ctx, "Skipping quarterly leave accrual, storage unavailable")
		return summary
	}

	affected, err := s.repos.Summaries.AddQuarterlyLeaves(ctx, AnnualLeaveAllowance)
	if err != nil {
		s.logger.Error(ctx, "Quarterly leave accrual failed", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobQuarterlyLeaveAccrual, started, summary)
		return summary
	}

	summary.Processed = int(affected)
	summary.Updated = int(affected)
	if s.metrics != nil {
		s.metrics.LeaveUpdatesTotal.WithLabelValues("accrual").Add(float64(affected))
	}

	s.appendHRLog(ctx, SystemActorID, ActionLeavesAccrued,
		nil, fmt.Sprintf("Quarterly accrual: +%d leaves for %d employees", AnnualLeaveAllowance, affected))
	s.recordJobRun(ctx, JobQuarterlyLeaveAccrual, started, summary)
	return summary
}

// RunMonthlyLeaveAccrual bulk-increments the leave balance on every summary
// row at the start of each month.
func (s *Service) RunMonthlyLeaveAccrual(ctx context.Context) RunSummary {
	started := time.Now()
	var summary RunSummary

	if !s.guard.EnsureHealthy(ctx) {
		s.logger.Warn(ctx, "Skipping monthly leave accrual, storage unavailable")
		return summary
	}

	affected, err := s.repos.Summaries.AddQuarterlyLeaves(ctx, MonthlyLeaveAccrual)
	if err != nil {
		s.logger.Error(ctx, "Monthly leave accrual failed", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobMonthlyLeaveAccrual, started, summary)
		return summary
	}

	summary.Processed = int(affected)
	summary.Updated = int(affected)
	if s.metrics != nil {
		s.metrics.LeaveUpdatesTotal.WithLabelValues("monthly_accrual").Add(float64(affected))
	}

	s.appendHRLog(ctx, SystemActorID, ActionLeavesAccrued,
		nil, fmt.Sprintf("Monthly accrual: +%d leaves for %d employees", MonthlyLeaveAccrual, affected))
	s.recordJobRun(ctx, JobMonthlyLeaveAccrual, started, summary)
	return summary
}

// RunMonthlyLatesReset restores the monthly late allowance on every summary
// row. Like the annual reset this writes an absolute value: the column is
// owned by this job alone, so the overwrite is conflict-free.
func (s *Service) RunMonthlyLatesReset(ctx context.Context) RunSummary {
	started := time.Now()
	var summary RunSummary

	if !s.guard.EnsureHealthy(ctx) {
		s.logger.Warn(ctx, "Skipping monthly lates reset, storage unavailable")
		return summary
	}

	affected, err := s.repos.Summaries.ResetMonthlyLates(ctx, MonthlyLateAllowance)
	if err != nil {
		s.logger.Error(ctx, "Monthly lates reset failed", zap.Error(err))
		summary.Errors++
		s.recordJobRun(ctx, JobMonthlyLatesReset, started, summary)
		return summary
	}

	summary.Processed = int(affected)
	summary.Updated = int(affected)

	s.appendHRLog(ctx, SystemActorID, ActionLatesReset,
		nil, fmt.Sprintf("Monthly reset: late allowance set to %d for %d employees", MonthlyLateAllowance, affected))
	s.recordJobRun(ctx, JobMonthlyLatesReset, started, summary)
	return summary
}
