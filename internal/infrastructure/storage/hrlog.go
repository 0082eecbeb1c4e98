package storage

import (
	"context"
	"fmt"

	"github.com/hrcore/attendance-engine/internal/infrastructure/database"
)

// HRLogStore appends to the hr_logs audit table. Append-only: nothing in the
// engine updates or deletes these rows.
type HRLogStore struct {
	db database.DBTX
}

func (s *HRLogStore) Append(ctx context.Context, actorID uint64, actionType string, affectedEmployeeID *uint64, description string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hr_logs (actor_id, action_type, affected_employee_id, description)
		 VALUES (?, ?, ?, ?)`,
		actorID, actionType, affectedEmployeeID, description)
	if err != nil {
		return fmt.Errorf("append hr log: %w", err)
	}
	return nil
}
