// Package curriculum describes what a course expects from its trainees:
// an ordered hierarchy of modules, sprints and assignments. The structure
// is loaded once per reconciliation run and held immutable; its ordering
// defines the column order of every trainee's slot grid.
package curriculum

import (
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Assignment
// ═══════════════════════════════════════════════════════════════════════════

// Optionality says whether an assignment is required or a stretch goal.
// Stretch assignments weigh differently in the progress score and are
// penalized far less when missing.
type Optionality int

const (
	Mandatory Optionality = iota
	Stretch
)

// String returns the human-readable form.
func (o Optionality) String() string {
	if o == Stretch {
		return "stretch"
	}
	return "mandatory"
}

// Kind distinguishes what evidence an assignment expects.
type Kind int

const (
	// KindPullRequest expects a PR against the module repository.
	KindPullRequest Kind = iota
	// KindAttendance expects a class check-in on the sprint's class day.
	KindAttendance
)

// MatchRule constrains which PR events can fill an assignment's slot.
// TitleWords is derived from the assignment heading; an event matches by
// word overlap, see the submission package.
type MatchRule struct {
	// TitlePattern is an optional explicit substring that must appear in
	// the PR title (case-insensitive). Empty means heading-based matching.
	TitlePattern string
}

// Assignment is one expected piece of work inside a sprint.
type Assignment struct {
	// ID is unique across the whole course, e.g. "itp/1/2/sprint-1-capstone".
	ID string

	// Heading is the assignment title as trainees see it.
	Heading string

	// Repo is the repository (within the course org) submissions are
	// expected against. For attendance assignments it is empty.
	Repo string

	// IssueURL links the curriculum issue the assignment came from.
	IssueURL string

	Kind        Kind
	Optionality Optionality
	Match       MatchRule

	// Weight is the scoring weight. Zero means "use the default for the
	// assignment's kind and optionality".
	Weight int

	// DueOffset overrides the sprint's due offset when non-zero.
	DueOffset time.Duration
}

// IsDue reports whether the assignment's due window has passed, given the
// batch start and an explicit now. Absence before this point is
// MissingButNotExpected, after it MissingButExpected.
func (a Assignment) IsDue(batchStart time.Time, sprintOffset time.Duration, now time.Time) bool {
	offset := sprintOffset
	if a.DueOffset != 0 {
		offset = a.DueOffset
	}
	return now.After(batchStart.Add(offset))
}

// ═══════════════════════════════════════════════════════════════════════════
// Sprint / Module / Course
// ═══════════════════════════════════════════════════════════════════════════

// Sprint is one week (or similar unit) of a module.
type Sprint struct {
	// Number is the 1-based sprint number within the module.
	Number shared.SprintNumber

	// DueOffset is the duration after batch start at which this sprint's
	// assignments become expected.
	DueOffset time.Duration

	// ClassDates holds the scheduled class day per region. Attendance for
	// the sprint is reconciled against these dates.
	ClassDates map[shared.Region]time.Time

	Assignments []Assignment
}

// ClassDate returns the scheduled class day for a region, if any.
func (s Sprint) ClassDate(region shared.Region) (time.Time, bool) {
	d, ok := s.ClassDates[region]
	return d, ok
}

// Module is a named, ordered sequence of sprints. The module name doubles
// as the repository name submissions arrive in.
type Module struct {
	Name    string
	Sprints []Sprint
}

// AssignmentCount returns the total assignment count across all sprints.
func (m Module) AssignmentCount() int {
	n := 0
	for _, s := range m.Sprints {
		n += len(s.Assignments)
	}
	return n
}

// Course is the root of the curriculum. Modules keep insertion order.
type Course struct {
	Name      string
	Modules   []Module
	StartDate time.Time
	EndDate   time.Time
}

// ModuleNames returns the module names in curriculum order.
func (c *Course) ModuleNames() []string {
	names := make([]string, 0, len(c.Modules))
	for _, m := range c.Modules {
		names = append(names, m.Name)
	}
	return names
}

// Module looks a module up by name.
func (c *Course) Module(name string) (Module, bool) {
	for _, m := range c.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

// AssignmentCount returns the total assignment count across all modules.
func (c *Course) AssignmentCount() int {
	n := 0
	for _, m := range c.Modules {
		n += m.AssignmentCount()
	}
	return n
}

// SlotRef addresses one assignment within the course. The triple of
// indexes is stable for a validated course and is shared by every
// trainee's grid.
type SlotRef struct {
	ModuleIndex     int
	SprintIndex     int
	AssignmentIndex int

	// ModuleName and Sprint carry display context so report layers never
	// have to walk back up the course structure.
	ModuleName string
	Sprint     shared.SprintNumber

	Assignment Assignment
}

// SlotRefs returns every assignment in grid order: modules in curriculum
// order, sprints in number order, assignments in declaration order.
func (c *Course) SlotRefs() []SlotRef {
	refs := make([]SlotRef, 0, c.AssignmentCount())
	for mi, m := range c.Modules {
		for si, s := range m.Sprints {
			for ai, a := range s.Assignments {
				refs = append(refs, SlotRef{
					ModuleIndex:     mi,
					SprintIndex:     si,
					AssignmentIndex: ai,
					ModuleName:      m.Name,
					Sprint:          s.Number,
					Assignment:      a,
				})
			}
		}
	}
	return refs
}
