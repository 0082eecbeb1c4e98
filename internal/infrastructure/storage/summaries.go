package storage

import (
	"context"
	"fmt"

	"github.com/hrcore/attendance-engine/internal/infrastructure/database"
	"github.com/hrcore/attendance-engine/internal/modules/attendance"
)

// SummaryStore applies bounded counter arithmetic to the rolling and monthly
// summary tables. Decrements are floor-clamped at zero with GREATEST so a
// counter can never go negative, on insert or on update.
type SummaryStore struct {
	db database.DBTX
}

func (s *SummaryStore) ApplyDeltas(ctx context.Context, employeeID uint64, d attendance.SummaryDeltas) error {
	// A row created on the fly starts from the full monthly late allowance
	// before the delta is applied; an existing row adjusts in place.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_summaries
		   (employee_id, present_days, absent_days, late_days, half_days, leave_days, remote_days, monthly_lates)
		 VALUES (?, GREATEST(0, ?), GREATEST(0, ?), GREATEST(0, ?), GREATEST(0, ?), GREATEST(0, ?), GREATEST(0, ?), GREATEST(0, ?))
		 ON DUPLICATE KEY UPDATE
		   present_days  = GREATEST(0, present_days + ?),
		   absent_days   = GREATEST(0, absent_days + ?),
		   late_days     = GREATEST(0, late_days + ?),
		   half_days     = GREATEST(0, half_days + ?),
		   leave_days    = GREATEST(0, leave_days + ?),
		   remote_days   = GREATEST(0, remote_days + ?),
		   monthly_lates = GREATEST(0, monthly_lates + ?)`,
		employeeID,
		d.PresentDays, d.AbsentDays, d.LateDays, d.HalfDays, d.LeaveDays, d.RemoteDays,
		attendance.MonthlyLateAllowance+d.MonthlyLates,
		d.PresentDays, d.AbsentDays, d.LateDays, d.HalfDays, d.LeaveDays, d.RemoteDays,
		d.MonthlyLates)
	if err != nil {
		return fmt.Errorf("apply summary deltas: %w", err)
	}
	return nil
}

// ApplyMonthlyDeltas mirrors ApplyDeltas against the (employee, month) row.
// The monthly table carries the six day counters only; the late allowance
// lives on the rolling table.
func (s *SummaryStore) ApplyMonthlyDeltas(ctx context.Context, employeeID uint64, month string, d attendance.SummaryDeltas) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO monthly_attendance_summaries
		   (employee_id, month, present_days, absent_days, late_days, half_days, leave_days, remote_days)
		 VALUES (?, ?, GREATEST(0, ?), GREATEST(0, ?), GREATEST(0, ?), GREATEST(0, ?), GREATEST(0, ?), GREATEST(0, ?))
		 ON DUPLICATE KEY UPDATE
		   present_days = GREATEST(0, present_days + ?),
		   absent_days  = GREATEST(0, absent_days + ?),
		   late_days    = GREATEST(0, late_days + ?),
		   half_days    = GREATEST(0, half_days + ?),
		   leave_days   = GREATEST(0, leave_days + ?),
		   remote_days  = GREATEST(0, remote_days + ?)`,
		employeeID, month,
		d.PresentDays, d.AbsentDays, d.LateDays, d.HalfDays, d.LeaveDays, d.RemoteDays,
		d.PresentDays, d.AbsentDays, d.LateDays, d.HalfDays, d.LeaveDays, d.RemoteDays)
	if err != nil {
		return fmt.Errorf("apply monthly summary deltas: %w", err)
	}
	return nil
}

// ResetQuarterlyLeaves assigns the absolute annual allowance to every row.
func (s *SummaryStore) ResetQuarterlyLeaves(ctx context.Context, value int) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE attendance_summaries SET quarterly_leaves = ?`, value)
	if err != nil {
		return 0, fmt.Errorf("reset quarterly leaves: %w", err)
	}
	return result.RowsAffected()
}

// AddQuarterlyLeaves bulk-increments the leave balance on every row.
func (s *SummaryStore) AddQuarterlyLeaves(ctx context.Context, delta int) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE attendance_summaries SET quarterly_leaves = quarterly_leaves + ?`, delta)
	if err != nil {
		return 0, fmt.Errorf("add quarterly leaves: %w", err)
	}
	return result.RowsAffected()
}

// ResetMonthlyLates assigns the absolute monthly late allowance to every row.
func (s *SummaryStore) ResetMonthlyLates(ctx context.Context, value int) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE attendance_summaries SET monthly_lates = ?`, value)
	if err != nil {
		return 0, fmt.Errorf("reset monthly lates: %w", err)
	}
	return result.RowsAffected()
}
