package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
	"go.uber.org/zap"
)

// CreateHoliday registers a holiday after checking the one-per-date
// invariant. When the date is today or earlier the attendance adjustment
// runs synchronously: every active employee is marked present for that date,
// with per-employee errors isolated so one bad record cannot abort the rest.
func (s *Service) CreateHoliday(ctx context.Context, actorID uint64, req CreateHolidayRequest) (*HolidayCreatedResponse, error) {
	date, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
	if err != nil {
		return nil, ValidationError("date", "Date must be in YYYY-MM-DD format")
	}
	date = dateOnly(date)

	existing, err := s.repos.Holidays.FindByDate(ctx, date)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to check existing holidays")
	}
	if existing != nil {
		return nil, ErrHolidayExists
	}

	holiday := Holiday{Name: req.Name, Date: date}
	if req.Description != "" {
		holiday.Description = &req.Description
	}

	id, err := s.repos.Holidays.Create(ctx, holiday)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to create holiday")
	}

	s.appendHRLog(ctx, actorID, ActionHolidayCreated, nil,
		fmt.Sprintf("Holiday %q created for %s", req.Name, req.Date))
	s.auditLogger.LogSecurityEvent(ctx, observability.SecurityEvent{
		Type:     "holiday",
		Action:   "create",
		UserID:   actorID,
		Resource: fmt.Sprintf("holiday:%d", id),
		Success:  true,
	})
	if s.metrics != nil {
		s.metrics.HolidayMutationsTotal.WithLabelValues("create").Inc()
	}

	resp := &HolidayCreatedResponse{
		ID:   id,
		Name: req.Name,
		Date: req.Date,
	}

	// Future holidays are handled by the daily scan; only past or current
	// dates are reconciled immediately.
	if date.After(s.businessToday()) {
		return resp, nil
	}

	adjusted := s.adjustAttendanceForDate(ctx, actorID, date)
	resp.AttendanceAdjusted = adjusted.Updated > 0
	resp.EmployeesAffected = adjusted.Updated
	resp.AdjustmentErrors = adjusted.Errors
	return resp, nil
}

// adjustAttendanceForDate marks every active employee present for the date.
func (s *Service) adjustAttendanceForDate(ctx context.Context, actorID uint64, date time.Time) RunSummary {
	var summary RunSummary

	employees, err := s.repos.Employees.ListActive(ctx)
	if err != nil {
		s.logger.Error(ctx, "Failed to list employees for holiday adjustment", zap.Error(err))
		summary.Errors++
		return summary
	}

	for i := range employees {
		summary.Processed++
		updated, err := s.MarkPresentForDate(ctx, employees[i], date)
		if err != nil {
			s.logger.Error(ctx, "Holiday adjustment failed for employee",
				zap.Uint64("employee_id", employees[i].ID), zap.Error(err))
			summary.Errors++
			continue
		}
		if updated {
			summary.Updated++
		} else {
			summary.Skipped++
		}
	}

	s.countMarkedPresent("holiday_adjustment", summary.Updated)

	if summary.Updated > 0 {
		s.appendHRLog(ctx, actorID, ActionHolidayAdjusted, nil,
			fmt.Sprintf("Holiday adjustment marked %d employees present for %s", summary.Updated, date.Format("2006-01-02")))
	}
	return summary
}

// DeleteHoliday removes a holiday, subject to the deletion rules: already
// reconciled dates (past or today) cannot be undone, tomorrow is too close
// to the scan job, and emergency holidays are never deletable.
func (s *Service) DeleteHoliday(ctx context.Context, actorID uint64, id uint64) error {
	holiday, err := s.repos.Holidays.FindByID(ctx, id)
	if err != nil {
		return WrapAttendanceError(err, "Failed to load holiday")
	}
	if holiday == nil {
		return ErrHolidayNotFound
	}

	today := s.businessToday()
	holidayDate := dateOnly(holiday.Date.In(s.loc))

	switch {
	case holidayDate.Before(today):
		return ErrHolidayInPast
	case holidayDate.Equal(today):
		return ErrHolidayToday
	case holidayDate.Equal(today.AddDate(0, 0, 1)):
		return ErrHolidayTooSoon
	case holiday.Emergency():
		return ErrEmergencyHoliday
	}

	if err := s.repos.Holidays.Delete(ctx, id); err != nil {
		return WrapAttendanceError(err, "Failed to delete holiday")
	}

	s.appendHRLog(ctx, actorID, ActionHolidayDeleted, nil,
		fmt.Sprintf("Holiday %q (%s) deleted", holiday.Name, holidayDate.Format("2006-01-02")))
	s.auditLogger.LogSecurityEvent(ctx, observability.SecurityEvent{
		Type:     "holiday",
		Action:   "delete",
		UserID:   actorID,
		Resource: fmt.Sprintf("holiday:%d", id),
		Success:  true,
	})
	if s.metrics != nil {
		s.metrics.HolidayMutationsTotal.WithLabelValues("delete").Inc()
	}
	return nil
}

// GetHoliday returns one holiday by id.
func (s *Service) GetHoliday(ctx context.Context, id uint64) (*HolidayResponse, error) {
	holiday, err := s.repos.Holidays.FindByID(ctx, id)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to load holiday")
	}
	if holiday == nil {
		return nil, ErrHolidayNotFound
	}
	resp := toHolidayResponse(holiday)
	return &resp, nil
}

// ListHolidays returns holidays filtered by optional year and month.
func (s *Service) ListHolidays(ctx context.Context, year, month int) ([]HolidayResponse, error) {
	holidays, err := s.repos.Holidays.List(ctx, year, month)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to list holidays")
	}
	return toHolidayResponses(holidays), nil
}

// ListUpcomingHolidays returns the next holidays from today onward.
func (s *Service) ListUpcomingHolidays(ctx context.Context, limit int) ([]HolidayResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	holidays, err := s.repos.Holidays.ListUpcoming(ctx, s.businessToday(), limit)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to list upcoming holidays")
	}
	return toHolidayResponses(holidays), nil
}

// IsHoliday reports whether the given date is a registered holiday.
func (s *Service) IsHoliday(ctx context.Context, date time.Time) (*HolidayCheckResponse, error) {
	holiday, err := s.repos.Holidays.FindByDate(ctx, dateOnly(date.In(s.loc)))
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to check holiday")
	}

	resp := &HolidayCheckResponse{Date: date.Format("2006-01-02")}
	if holiday != nil {
		resp.IsHoliday = true
		resp.Name = &holiday.Name
	}
	return resp, nil
}

// GetHolidayStats aggregates calendar counts for dashboards.
func (s *Service) GetHolidayStats(ctx context.Context, year int) (*HolidayStatsResponse, error) {
	if year == 0 {
		year = s.businessNow().Year()
	}

	total, err := s.repos.Holidays.CountAll(ctx)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to count holidays")
	}

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	yearEnd := yearStart.AddDate(1, 0, 0)
	thisYear, err := s.repos.Holidays.CountBetween(ctx, yearStart, yearEnd)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to count holidays for year")
	}

	upcoming, err := s.repos.Holidays.CountFrom(ctx, s.businessToday())
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to count upcoming holidays")
	}

	inYear, err := s.repos.Holidays.List(ctx, year, 0)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to list holidays for year")
	}

	byMonth := make(map[string]int, 12)
	for i := range inYear {
		byMonth[inYear[i].Date.In(s.loc).Month().String()]++
	}

	return &HolidayStatsResponse{
		Year:     year,
		Total:    total,
		ThisYear: thisYear,
		Upcoming: upcoming,
		ByMonth:  byMonth,
	}, nil
}

// GetTriggerStatus is the ops introspection surface: whether today is a
// holiday, the active roster size, and the operating timezone.
func (s *Service) GetTriggerStatus(ctx context.Context) (*TriggerStatusResponse, error) {
	today := s.businessToday()

	holiday, err := s.repos.Holidays.FindByDate(ctx, today)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to check today's holiday")
	}

	count, err := s.repos.Employees.CountActive(ctx)
	if err != nil {
		return nil, WrapAttendanceError(err, "Failed to count active employees")
	}

	resp := &TriggerStatusResponse{
		Date:            today.Format("2006-01-02"),
		Timezone:        s.loc.String(),
		ActiveEmployees: count,
		TodayIsHoliday:  holiday != nil,
	}
	if holiday != nil {
		resp.HolidayName = &holiday.Name
	}
	return resp, nil
}
