package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRON SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// CronSchedule runs a job on a standard 5-field cron expression:
// minute hour day-of-month month day-of-week. It implements Schedule, so
// cron jobs and interval jobs share the same scheduler loop.
//
// Examples:
//   - "*/15 * * * *" - every 15 minutes
//   - "0 3 * * *"    - every day at 03:00
//   - "0 0 * * 0"    - every Sunday at midnight
type CronSchedule struct {
	raw      string
	minutes  []int // 0-59
	hours    []int // 0-23
	days     []int // 1-31
	months   []int // 1-12
	weekdays []int // 0-6, 0 = Sunday
}

// NewCronSchedule parses a cron expression into a schedule.
// Fields support *, single values, ranges (a-b), lists (a,b,c) and
// steps (*/n, a-b/n).
func NewCronSchedule(expr string) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(fields))
	}

	s := &CronSchedule{raw: expr}
	var err error

	if s.minutes, err = parseCronField(fields[0], 0, 59); err != nil {
		return nil, fmt.Errorf("invalid minute field: %w", err)
	}
	if s.hours, err = parseCronField(fields[1], 0, 23); err != nil {
		return nil, fmt.Errorf("invalid hour field: %w", err)
	}
	if s.days, err = parseCronField(fields[2], 1, 31); err != nil {
		return nil, fmt.Errorf("invalid day field: %w", err)
	}
	if s.months, err = parseCronField(fields[3], 1, 12); err != nil {
		return nil, fmt.Errorf("invalid month field: %w", err)
	}
	if s.weekdays, err = parseCronField(fields[4], 0, 6); err != nil {
		return nil, fmt.Errorf("invalid weekday field: %w", err)
	}
	return s, nil
}

// MustCronSchedule parses a cron expression or panics. For constants only.
func MustCronSchedule(expr string) *CronSchedule {
	s, err := NewCronSchedule(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Next returns the first matching instant strictly after t.
func (s *CronSchedule) Next(t time.Time) time.Time {
	next := t.Truncate(time.Minute).Add(time.Minute)

	// A valid expression matches at least once a year; the bound only
	// guards against a corrupted field slice.
	const maxMinutes = 366 * 24 * 60
	for i := 0; i < maxMinutes; i++ {
		if s.matches(next) {
			return next
		}
		next = next.Add(time.Minute)
	}
	return time.Time{}
}

// String returns the original cron expression.
func (s *CronSchedule) String() string {
	return s.raw
}

func (s *CronSchedule) matches(t time.Time) bool {
	return containsInt(s.minutes, t.Minute()) &&
		containsInt(s.hours, t.Hour()) &&
		containsInt(s.days, t.Day()) &&
		containsInt(s.months, int(t.Month())) &&
		containsInt(s.weekdays, int(t.Weekday()))
}

// parseCronField expands one field into the sorted set of matching values.
func parseCronField(field string, min, max int) ([]int, error) {
	seen := make(map[int]struct{})

	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)

		step := 1
		if idx := strings.IndexByte(part, '/'); idx >= 0 {
			v, err := strconv.Atoi(part[idx+1:])
			if err != nil || v <= 0 {
				return nil, fmt.Errorf("invalid step in %q", part)
			}
			step = v
			part = part[:idx]
		}

		start, end := min, max
		switch {
		case part == "*":
			// full range
		case strings.Contains(part, "-"):
			bounds := strings.SplitN(part, "-", 2)
			a, errA := strconv.Atoi(bounds[0])
			b, errB := strconv.Atoi(bounds[1])
			if errA != nil || errB != nil || a > b {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			start, end = a, b
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q", part)
			}
			if v < min || v > max {
				return nil, fmt.Errorf("value %d out of range [%d-%d]", v, min, max)
			}
			start, end = v, v
			if step > 1 {
				// "n/step" means from n to the end of the range.
				end = max
			}
		}

		for i := start; i <= end; i += step {
			if i >= min && i <= max {
				seen[i] = struct{}{}
			}
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("field %q matches nothing", field)
	}
	result := make([]int, 0, len(seen))
	for i := min; i <= max; i++ {
		if _, ok := seen[i]; ok {
			result = append(result, i)
		}
	}
	return result, nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
