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

// HolidayStore manages the holiday calendar. The unique key on holiday_date
// backs the one-holiday-per-date invariant.
type HolidayStore struct {
	db database.DBTX
}

const holidayColumns = `id, name, holiday_date, description, created_at, updated_at`

func (s *HolidayStore) FindByDate(ctx context.Context, date time.Time) (*attendance.Holiday, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+holidayColumns+` FROM holidays WHERE holiday_date = ?`,
		date.Format(dateLayout))
	return scanHoliday(row)
}

func (s *HolidayStore) FindByID(ctx context.Context, id uint64) (*attendance.Holiday, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+holidayColumns+` FROM holidays WHERE id = ?`, id)
	return scanHoliday(row)
}

func (s *HolidayStore) Create(ctx context.Context, h attendance.Holiday) (uint64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO holidays (name, holiday_date, description) VALUES (?, ?, ?)`,
		h.Name, h.Date.Format(dateLayout), h.Description)
	if err != nil {
		return 0, fmt.Errorf("create holiday: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("holiday insert id: %w", err)
	}
	return uint64(id), nil
}

func (s *HolidayStore) Delete(ctx context.Context, id uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return nil
}

// List returns holidays, optionally narrowed to a year and month.
func (s *HolidayStore) List(ctx context.Context, year, month int) ([]attendance.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays`
	var args []interface{}

	switch {
	case year != 0 && month != 0:
		query += ` WHERE YEAR(holiday_date) = ? AND MONTH(holiday_date) = ?`
		args = append(args, year, month)
	case year != 0:
		query += ` WHERE YEAR(holiday_date) = ?`
		args = append(args, year)
	case month != 0:
		query += ` WHERE MONTH(holiday_date) = ?`
		args = append(args, month)
	}
	query += ` ORDER BY holiday_date`

	return s.queryHolidays(ctx, query, args...)
}

func (s *HolidayStore) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]attendance.Holiday, error) {
	return s.queryHolidays(ctx,
		`SELECT `+holidayColumns+` FROM holidays WHERE holiday_date >= ? ORDER BY holiday_date LIMIT ?`,
		from.Format(dateLayout), limit)
}

func (s *HolidayStore) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM holidays`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count holidays: %w", err)
	}
	return count, nil
}

func (s *HolidayStore) CountBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM holidays WHERE holiday_date >= ? AND holiday_date < ?`,
		from.Format(dateLayout), to.Format(dateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count holidays between: %w", err)
	}
	return count, nil
}

func (s *HolidayStore) CountFrom(ctx context.Context, from time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM holidays WHERE holiday_date >= ?`,
		from.Format(dateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count upcoming holidays: %w", err)
	}
	return count, nil
}

func (s *HolidayStore) queryHolidays(ctx context.Context, query string, args ...interface{}) ([]attendance.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []attendance.Holiday
	for rows.Next() {
		var h attendance.Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.Description, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func scanHoliday(row *sql.Row) (*attendance.Holiday, error) {
	var h attendance.Holiday
	err := row.Scan(&h.ID, &h.Name, &h.Date, &h.Description, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan holiday: %w", err)
	}
	return &h, nil
}
