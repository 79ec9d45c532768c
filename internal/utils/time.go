package contextutils

import (
	"time"
)

// DateLayout is the calendar date format used for streaks and daily challenges
const DateLayout = "2006-01-02"

// LoadUserLocation resolves an IANA timezone name, falling back to UTC when the
// name is empty or unknown. The effective timezone name is returned alongside.
func LoadUserLocation(timezone string) (*time.Location, string) {
	if timezone == "" {
		return time.UTC, "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, timezone
}

// CalendarDay truncates t to midnight of its calendar day in loc.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween returns the number of calendar days from a to b (b - a) in loc.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	da := CalendarDay(a, loc)
	db := CalendarDay(b, loc)
	// Date arithmetic in UTC sidesteps DST hour shifts.
	ua := time.Date(da.Year(), da.Month(), da.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(db.Year(), db.Month(), db.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// ParseDateInLocation parses a YYYY-MM-DD string in the given timezone.
func ParseDateInLocation(dateStr, timezone string) (time.Time, error) {
	loc, _ := LoadUserLocation(timezone)
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, WrapError(ErrInvalidInput, "invalid date format")
	}
	return date, nil
}

// LocalDayRange returns the UTC bounds [start, end) covering the last `days`
// calendar days up to and including the day of now in the given timezone.
func LocalDayRange(now time.Time, days int, timezone string) (time.Time, time.Time) {
	if days <= 0 {
		days = 1
	}
	loc, _ := LoadUserLocation(timezone)
	today := CalendarDay(now, loc)
	startLocal := today.AddDate(0, 0, -(days - 1))
	endLocal := today.AddDate(0, 0, 1)
	return startLocal.UTC(), endLocal.UTC()
}
