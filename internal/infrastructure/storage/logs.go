package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hrcore/attendance-engine/internal/infrastructure/database"
	"github.com/hrcore/attendance-engine/internal/modules/attendance"
)

// LogStore persists attendance log rows, one per (employee, business date).
type LogStore struct {
	db database.DBTX
}

const logColumns = `id, employee_id, date, check_in, check_out, status, mode, created_at, updated_at`

// Upsert relies on the unique (employee_id, date) key: an existing row is
// overwritten in place, so replaying the same marking is a no-op at the row
// level.
func (s *LogStore) Upsert(ctx context.Context, log attendance.AttendanceLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_logs (employee_id, date, check_in, check_out, status, mode)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   check_in = VALUES(check_in),
		   check_out = VALUES(check_out),
		   status = VALUES(status),
		   mode = VALUES(mode)`,
		log.EmployeeID, log.Date.Format(dateLayout), log.CheckIn, log.CheckOut, log.Status, log.Mode)
	if err != nil {
		return fmt.Errorf("upsert attendance log: %w", err)
	}
	return nil
}

func (s *LogStore) SetCheckout(ctx context.Context, id uint64, checkout time.Time, status attendance.AttendanceStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE attendance_logs SET check_out = ?, status = ? WHERE id = ?`,
		checkout, status, id)
	if err != nil {
		return fmt.Errorf("set checkout: %w", err)
	}
	return nil
}

func (s *LogStore) FindByDate(ctx context.Context, employeeID uint64, date time.Time) (*attendance.AttendanceLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM attendance_logs WHERE employee_id = ? AND date = ?`,
		employeeID, date.Format(dateLayout))
	return scanLog(row)
}

func (s *LogStore) FindOpenByDate(ctx context.Context, employeeID uint64, date time.Time) (*attendance.AttendanceLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM attendance_logs
		 WHERE employee_id = ? AND date = ? AND check_in IS NOT NULL AND check_out IS NULL`,
		employeeID, date.Format(dateLayout))
	return scanLog(row)
}

func (s *LogStore) FindMostRecentOpen(ctx context.Context, employeeID uint64) (*attendance.AttendanceLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM attendance_logs
		 WHERE employee_id = ? AND check_in IS NOT NULL AND check_out IS NULL
		 ORDER BY date DESC LIMIT 1`,
		employeeID)
	return scanLog(row)
}

func (s *LogStore) ListByDate(ctx context.Context, date time.Time) ([]attendance.AttendanceLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM attendance_logs WHERE date = ?`,
		date.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list attendance logs: %w", err)
	}
	defer rows.Close()

	var logs []attendance.AttendanceLog
	for rows.Next() {
		var l attendance.AttendanceLog
		if err := rows.Scan(&l.ID, &l.EmployeeID, &l.Date, &l.CheckIn, &l.CheckOut,
			&l.Status, &l.Mode, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func scanLog(row *sql.Row) (*attendance.AttendanceLog, error) {
	var l attendance.AttendanceLog
	err := row.Scan(&l.ID, &l.EmployeeID, &l.Date, &l.CheckIn, &l.CheckOut,
		&l.Status, &l.Mode, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan attendance log: %w", err)
	}
	return &l, nil
}
