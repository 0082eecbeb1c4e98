package attendance

import (
	"strconv"
	"strings"
	"time"
)

// Default shift window applied when an employee has no shift configured.
const (
	DefaultShiftStart = "09:00"
	DefaultShiftEnd   = "17:00"
	DefaultGrace      = 5 * time.Minute
)

// ParseShiftTime parses an HH:MM shift string permissively. An hour-only
// value ("21") means minute zero; out-of-range components are clamped into
// [0,23]/[0,59] instead of rejected so a malformed roster entry degrades to
// a usable window rather than failing the whole batch. The second return
// reports whether clamping changed anything, so callers can log it.
func ParseShiftTime(raw string) (hour, minute int, clamped bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0, false
	}

	parts := strings.SplitN(raw, ":", 2)
	hour = atoiSafe(parts[0])
	if len(parts) == 2 {
		minute = atoiSafe(parts[1])
	}

	if hour < 0 {
		hour, clamped = 0, true
	} else if hour > 23 {
		hour, clamped = 23, true
	}
	if minute < 0 {
		minute, clamped = 0, true
	} else if minute > 59 {
		minute, clamped = 59, true
	}
	return hour, minute, clamped
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ResolveShiftWindow converts a business date plus HH:MM shift strings into
// absolute start/end timestamps in the date's location. When the end time is
// not after the start the shift crosses midnight and the end rolls to the
// next calendar day.
func ResolveShiftWindow(businessDate time.Time, shiftStart, shiftEnd string) (start, end time.Time) {
	sh, sm, _ := ParseShiftTime(shiftStart)
	eh, em, _ := ParseShiftTime(shiftEnd)

	loc := businessDate.Location()
	start = time.Date(businessDate.Year(), businessDate.Month(), businessDate.Day(), sh, sm, 0, 0, loc)
	end = time.Date(businessDate.Year(), businessDate.Month(), businessDate.Day(), eh, em, 0, 0, loc)

	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// IsWithinGrace reports whether now falls inside the grace window around the
// shift start, comparing minutes-of-day so the calendar date is irrelevant.
func IsWithinGrace(now time.Time, shiftStart string, grace time.Duration) bool {
	sh, sm, _ := ParseShiftTime(shiftStart)

	nowMinutes := now.Hour()*60 + now.Minute()
	shiftMinutes := sh*60 + sm

	diff := nowMinutes - shiftMinutes
	if diff < 0 {
		diff = -diff
	}
	return diff <= int(grace.Minutes())
}

// MinutesSinceShiftStart returns how many minutes have elapsed since the most
// recent occurrence of the shift start, comparing minutes-of-day with midnight
// wrap: a 23:00 shift queried at 01:30 yields 150, not a negative value.
func MinutesSinceShiftStart(now time.Time, shiftStart string) int {
	sh, sm, _ := ParseShiftTime(shiftStart)

	nowMinutes := now.Hour()*60 + now.Minute()
	startMinutes := sh*60 + sm

	if nowMinutes >= startMinutes {
		return nowMinutes - startMinutes
	}
	return (24*60 - startMinutes) + nowMinutes
}

// BusinessDateForShift maps "now" to the business date the shift belongs to.
// Before the end of a shift that crosses midnight the working day is still
// the previous calendar date; day shifts always map to today.
func BusinessDateForShift(now time.Time, shiftStart, shiftEnd string) time.Time {
	sh, _, _ := ParseShiftTime(shiftStart)
	eh, em, _ := ParseShiftTime(shiftEnd)

	today := dateOnly(now)
	nowMinutes := now.Hour()*60 + now.Minute()
	if eh < sh && nowMinutes < eh*60+em {
		return today.AddDate(0, 0, -1)
	}
	return today
}

// CandidateCheckout derives the checkout timestamp for an open row on the
// given business date. Preference order: the shift end (midnight-aware),
// shift start + 9h when only a start is known, and finally the cap itself.
// The result never exceeds cap, so a checkout cannot postdate "now".
func CandidateCheckout(businessDate time.Time, shiftStart, shiftEnd *string, cap time.Time) time.Time {
	var candidate time.Time

	switch {
	case shiftStart != nil && shiftEnd != nil:
		_, candidate = ResolveShiftWindow(businessDate, *shiftStart, *shiftEnd)
	case shiftStart != nil:
		start, _ := ResolveShiftWindow(businessDate, *shiftStart, *shiftStart)
		candidate = start.Add(9 * time.Hour)
	default:
		candidate = cap
	}

	if candidate.After(cap) {
		return cap
	}
	return candidate
}

// shiftOrDefault returns the employee's shift strings, falling back to the
// company default 09:00-17:00 window when either side is missing.
func shiftOrDefault(e *Employee) (string, string) {
	start, end := DefaultShiftStart, DefaultShiftEnd
	if e.ShiftStart != nil && strings.TrimSpace(*e.ShiftStart) != "" {
		start = *e.ShiftStart
	}
	if e.ShiftEnd != nil && strings.TrimSpace(*e.ShiftEnd) != "" {
		end = *e.ShiftEnd
	}
	return start, end
}
