package storage

import (
	"context"
	"fmt"

	"github.com/hrcore/attendance-engine/internal/infrastructure/database"
	"github.com/hrcore/attendance-engine/internal/modules/attendance"
)

// EmployeeStore is the read-only roster view.
type EmployeeStore struct {
	db database.DBTX
}

func (s *EmployeeStore) ListActive(ctx context.Context) ([]attendance.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, shift_start, shift_end, status
		 FROM employees
		 WHERE status = 'active'
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	defer rows.Close()

	var employees []attendance.Employee
	for rows.Next() {
		var e attendance.Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.ShiftStart, &e.ShiftEnd, &e.Status); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *EmployeeStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employees WHERE status = 'active'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active employees: %w", err)
	}
	return count, nil
}
