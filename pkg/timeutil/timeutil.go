// Package timeutil provides timezone utilities for the regions trainees
// attend class from. Courses run across the UK and South Africa, so every
// date calculation (class days, lateness, due windows) has to be done in
// the region's local timezone, never the server's.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// Region timezones. Fixed zones are used as fallbacks when the IANA
// database is unavailable; LocationFor prefers the real zones so DST is
// handled correctly.
var (
	LondonTZ       = time.FixedZone("Europe/London", 0)
	JohannesburgTZ = time.FixedZone("Africa/Johannesburg", 2*60*60)
)

// LocationFor resolves an IANA timezone name, falling back to a fixed
// zone for the two zones courses actually run in, then UTC.
func LocationFor(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	switch name {
	case "Africa/Johannesburg":
		return JohannesburgTZ
	case "Europe/London":
		return LondonTZ
	}
	return time.UTC
}

// Class timing. Classes start at 10:00 local; a check-in more than
// LateThreshold after that counts as late.
const (
	ClassStartHour   = 10
	ClassStartMinute = 0
	LateThreshold    = 10 * time.Minute
)

// ClassStartOn returns the class start instant for a given class day in
// the given location. The day's own year/month/day are interpreted in loc.
func ClassStartOn(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), ClassStartHour, ClassStartMinute, 0, 0, loc)
}

// StartOfDay returns 00:00:00 of t's day in the given location.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of t's day in the given location.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Date creates a local-midnight time for the given calendar day.
func Date(year, month, day int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

// IsSameDay checks if two instants fall on the same calendar day in loc.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	a, b := t1.In(loc), t2.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DayConcluded reports whether the whole of day has passed at now, in loc.
// Attendance on an unconcluded day stays unknown rather than absent.
func DayConcluded(day, now time.Time, loc *time.Location) bool {
	return EndOfDay(day, loc).Before(now)
}

// WholeDaysSince returns the floored whole days between then and now,
// ignoring calendar boundaries: 47 hours is 1 day. Used for
// days-since-last-review style metrics.
func WholeDaysSince(then, now time.Time) int {
	if now.Before(then) {
		return 0
	}
	return int(now.Sub(then).Hours() / 24)
}

// FormatDate is the standard date format (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in loc.
func FormatDateStr(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(FormatDate)
}

// ParseDate parses a date string (YYYY-MM-DD) as local midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, loc)
}
