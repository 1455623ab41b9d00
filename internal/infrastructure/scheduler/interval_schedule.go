package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule runs a job on a fixed cadence, aligned to wall-clock
// multiples of the interval. Alignment keeps run timestamps predictable
// across worker restarts: a 30m reconcile interval fires at :00 and :30
// no matter when the process came up.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates an IntervalSchedule. Intervals under a
// second are clamped to a second, matching the scheduler's tick.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	if interval < time.Second {
		interval = time.Second
	}
	return &IntervalSchedule{Interval: interval}
}

// Next returns the first interval boundary strictly after t.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Truncate(s.Interval).Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}
