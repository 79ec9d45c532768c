package services

import (
	"time"

	contextutils "telugulearn/internal/utils"
)

// StreakState is the streak portion of a profile. LastActivity is a calendar
// date: only its year, month and day are meaningful.
type StreakState struct {
	Current      int
	Longest      int
	LastActivity *time.Time
}

// asLocalDate reinterprets the calendar date of d as midnight in loc
func asLocalDate(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// NextStreak applies an activity at now to s using calendar days in loc.
// Same day leaves the count alone, the next day extends it and any longer gap
// starts over at one.
func NextStreak(s StreakState, now time.Time, loc *time.Location) StreakState {
	if loc == nil {
		loc = time.UTC
	}
	today := contextutils.CalendarDay(now, loc)
	next := StreakState{Current: s.Current, Longest: s.Longest, LastActivity: &today}

	if s.LastActivity == nil {
		next.Current = 1
	} else {
		last := asLocalDate(*s.LastActivity, loc)
		switch gap := contextutils.DaysBetween(last, today, loc); {
		case gap <= 0:
			if next.Current == 0 {
				next.Current = 1
			}
			if gap < 0 {
				// Clock moved backwards; keep the later date
				next.LastActivity = &last
			}
		case gap == 1:
			next.Current++
		default:
			next.Current = 1
		}
	}

	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	return next
}

// StreakExpired reports whether a streak last extended on lastActivity is
// broken as of now, i.e. neither today nor yesterday saw activity.
func StreakExpired(lastActivity time.Time, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	today := contextutils.CalendarDay(now, loc)
	return contextutils.DaysBetween(asLocalDate(lastActivity, loc), today, loc) > 1
}

// EffectiveStreak returns the streak a user holds right now, which is zero
// once it has expired even if the nightly sweep has not run yet.
func EffectiveStreak(current int, lastActivity *time.Time, now time.Time, loc *time.Location) int {
	if lastActivity == nil || StreakExpired(*lastActivity, now, loc) {
		return 0
	}
	return current
}
