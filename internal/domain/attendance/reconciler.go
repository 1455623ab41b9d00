package attendance

import (
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/pkg/timeutil"
)

// Reconciler classifies check-ins against scheduled class days. Like the
// submission reconciler it holds no cross-run state.
type Reconciler struct {
	// lateAfter is how long after class start a check-in still counts as
	// on time. Beyond it the day is late.
	lateAfter time.Duration
}

// NewReconciler creates a reconciler with the standard late threshold.
func NewReconciler() *Reconciler {
	return &Reconciler{lateAfter: timeutil.LateThreshold}
}

// Result is one trainee's classified attendance.
type Result struct {
	// Slots has exactly one entry per scheduled class day, in curriculum
	// order (module order, then sprint order).
	Slots []Slot

	// WrongDay holds markers for check-ins outside the scheduled set.
	// They coexist with the scheduled slots; neither replaces the other.
	WrongDay []Slot

	// Invalid holds the events that failed validation, in input order.
	// They fill no slot; callers surface them as unmatched.
	Invalid []CheckInEvent
}

// ReconcileTrainee classifies a single trainee's check-ins against the
// course's scheduled class days for the trainee's region.
//
// A scheduled day with a check-in classifies by the event's raw code, or
// by lateness against the local class start when the code carries no
// state. A scheduled day without a check-in is absent once the day has
// concluded, unknown before that. Check-ins on unscheduled days become
// wrong-day markers; events failing validation are returned in Invalid
// rather than dropped.
func (r *Reconciler) ReconcileTrainee(course *curriculum.Course, trainee roster.Trainee, events []CheckInEvent, now time.Time) Result {
	loc := timeutil.LocationFor(trainee.Region.TimezoneName())
	days := scheduledDays(course, trainee, loc)

	var result Result
	var valid []CheckInEvent
	for _, ev := range events {
		if ev.Validate() != nil {
			result.Invalid = append(result.Invalid, ev)
			continue
		}
		valid = append(valid, ev)
	}
	used := make([]bool, len(valid))

	for _, day := range days {
		slot := Slot{Date: day, State: Unknown}

		matched := false
		for i, ev := range valid {
			if used[i] {
				continue
			}
			if !timeutil.IsSameDay(ev.Timestamp, day, loc) {
				continue
			}
			used[i] = true
			matched = true
			slot.State = r.classify(ev, day, loc)
			slot.RegisterURL = ev.RegisterURL
			break
		}
		if !matched && timeutil.DayConcluded(day, now, loc) {
			slot.State = Absent
		}
		result.Slots = append(result.Slots, slot)
	}

	for i, ev := range valid {
		if used[i] {
			continue
		}
		result.WrongDay = append(result.WrongDay, Slot{
			Date:        timeutil.StartOfDay(ev.Timestamp, loc),
			State:       WrongDay,
			RegisterURL: ev.RegisterURL,
		})
	}
	return result
}

// classify resolves a check-in on its scheduled day.
func (r *Reconciler) classify(ev CheckInEvent, day time.Time, loc *time.Location) DayState {
	switch normalizeCode(ev.Code) {
	case CodePresent:
		return Present
	case CodeLate:
		return Late
	case CodeAbsent:
		return Absent
	case "":
		start := timeutil.ClassStartOn(day, loc)
		if ev.Timestamp.Sub(start) > r.lateAfter {
			return Late
		}
		return Present
	default:
		// Unrecognized code: ambiguous data resolves to unknown.
		return Unknown
	}
}

// scheduledDays collects the course's class days for the trainee's
// region, in curriculum order. Only sprints carrying an attendance
// assignment schedule a class.
func scheduledDays(course *curriculum.Course, trainee roster.Trainee, loc *time.Location) []time.Time {
	var days []time.Time
	for _, m := range course.Modules {
		for _, s := range m.Sprints {
			if !hasAttendance(s) {
				continue
			}
			if date, ok := s.ClassDate(trainee.Region); ok {
				days = append(days, timeutil.StartOfDay(date, loc))
			}
		}
	}
	return days
}

func hasAttendance(s curriculum.Sprint) bool {
	for _, a := range s.Assignments {
		if a.Kind == curriculum.KindAttendance {
			return true
		}
	}
	return false
}
