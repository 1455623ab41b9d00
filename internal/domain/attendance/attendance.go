// Package attendance reconciles class check-in events against the
// scheduled class days of a course. One classified slot is produced per
// trainee per scheduled day; check-ins on days with no scheduled class
// become wrong-day markers and never fill a scheduled slot.
package attendance

import (
	"strings"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// CheckInEvent is one register entry as supplied by the fetch layer.
type CheckInEvent struct {
	Login shared.GithubLogin

	// Timestamp is the moment the trainee checked in.
	Timestamp time.Time

	// Code is the raw attendance code from the register. When present it
	// overrides timestamp-based classification; codes the register does
	// not define resolve to unknown, never to another state.
	Code string

	// RegisterURL links back to the register row for the report.
	RegisterURL string
}

// Validate reports why the event cannot be reconciled, or nil.
func (e CheckInEvent) Validate() error {
	if e.Login == "" {
		return shared.ErrEventMissingAuthor
	}
	if e.Timestamp.IsZero() {
		return shared.ErrEventZeroTimestamp
	}
	return nil
}

// Raw codes the register may carry.
const (
	CodePresent = "present"
	CodeLate    = "late"
	CodeAbsent  = "absent"
)

// DayState classifies one scheduled class day.
type DayState int

const (
	// Unknown means no check-in exists and the day has not concluded yet,
	// or the check-in data is ambiguous.
	Unknown DayState = iota
	Present
	Late
	Absent
	// WrongDay marks a check-in on a day outside the scheduled set.
	WrongDay
)

// String returns the report form of the state.
func (s DayState) String() string {
	switch s {
	case Present:
		return "present"
	case Late:
		return "late"
	case Absent:
		return "absent"
	case WrongDay:
		return "wrong-day"
	default:
		return "unknown"
	}
}

// Slot is one classified cell of a trainee's attendance grid.
type Slot struct {
	// Date is the class day, at local midnight in the trainee's region.
	Date        time.Time
	State       DayState
	RegisterURL string
}

// Counted reports whether the slot counts toward the attendance fraction
// denominator. Wrong-day markers are extra rows, not scheduled days, and
// unknown days have not resolved yet.
func (s Slot) Counted() bool {
	return s.State == Present || s.State == Late || s.State == Absent
}

// normalizeCode lowercases and trims a raw register code.
func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
