// Package timeutil provides calendar-day arithmetic in an explicit location.
// Streaks and period leaderboards are defined over civil dates, not rolling
// 24h windows, so every helper here takes the *time.Location that defines
// where a day starts. A nil location means UTC.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// LoadLocation resolves an IANA zone name. An empty name is UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown location %q: %w", name, err)
	}
	return loc, nil
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// civilDay returns the date of t in loc as a UTC noon instant.
// Noon keeps the value clear of DST transitions when subtracting.
func civilDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(locOrUTC(loc))
	return time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, time.UTC)
}

// CalendarDaysBetween returns the number of calendar days from a to b in loc.
// 23:59 and 00:01 on the next day are one day apart; 00:01 and 23:59 on the
// same day are zero days apart. The result is negative when b's date precedes a's.
func CalendarDaysBetween(a, b time.Time, loc *time.Location) int {
	diff := civilDay(b, loc).Sub(civilDay(a, loc))
	return int(diff.Round(time.Hour).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return CalendarDaysBetween(a, b, loc) == 0
}

// StartOfDay returns 00:00:00 of t's date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(locOrUTC(loc))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// EndOfDay returns the last nanosecond of t's date in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(locOrUTC(loc))
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, local.Location())
}

// StartOfWeek returns Monday 00:00:00 of t's week in loc.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	local := t.In(locOrUTC(loc))
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDay(local.AddDate(0, 0, -(weekday-1)), loc)
}

// EndOfWeek returns Sunday 23:59:59.999999999 of t's week in loc.
func EndOfWeek(t time.Time, loc *time.Location) time.Time {
	return EndOfDay(StartOfWeek(t, loc).AddDate(0, 0, 6), loc)
}

// StartOfMonth returns the first instant of t's month in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	local := t.In(locOrUTC(loc))
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, local.Location())
}

// EndOfMonth returns the last nanosecond of t's month in loc.
func EndOfMonth(t time.Time, loc *time.Location) time.Time {
	return EndOfDay(StartOfMonth(t, loc).AddDate(0, 1, -1), loc)
}
