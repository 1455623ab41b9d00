package submission

import (
	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Slot (closed sum type)
// ═══════════════════════════════════════════════════════════════════════════

// SlotKind is the variant tag of a Slot.
type SlotKind int

const (
	// Matched means a PR event filled this slot.
	Matched SlotKind = iota
	// MissingButExpected means no match and the due window has passed.
	MissingButExpected
	// MissingButNotExpected means no match and the assignment is not yet due.
	MissingButNotExpected
)

// String returns the report form of the kind.
func (k SlotKind) String() string {
	switch k {
	case Matched:
		return "matched"
	case MissingButExpected:
		return "missing-but-expected"
	default:
		return "missing-but-not-expected"
	}
}

// Submission is the payload of a Matched slot.
type Submission struct {
	URL         string
	DisplayText string
	State       ReviewState
	Event       PREvent
}

// Slot is one cell of a trainee's grid. Fields are private so a slot can
// only be built through the constructors: a Matched slot always carries a
// submission, a missing slot never does.
type Slot struct {
	kind       SlotKind
	submission *Submission
}

// NewMatchedSlot builds a Matched slot.
func NewMatchedSlot(sub Submission) Slot {
	return Slot{kind: Matched, submission: &sub}
}

// NewMissingExpectedSlot builds a MissingButExpected slot.
func NewMissingExpectedSlot() Slot {
	return Slot{kind: MissingButExpected}
}

// NewMissingNotExpectedSlot builds a MissingButNotExpected slot.
func NewMissingNotExpectedSlot() Slot {
	return Slot{kind: MissingButNotExpected}
}

// Kind returns the variant tag.
func (s Slot) Kind() SlotKind {
	return s.kind
}

// IsMatched reports whether the slot holds a submission.
func (s Slot) IsMatched() bool {
	return s.kind == Matched
}

// Submission returns the matched submission, if any.
func (s Slot) Submission() (Submission, bool) {
	if s.submission == nil {
		return Submission{}, false
	}
	return *s.submission, true
}

// ═══════════════════════════════════════════════════════════════════════════
// Grid
// ═══════════════════════════════════════════════════════════════════════════

// Cell is one addressed slot of a grid.
type Cell struct {
	Ref  curriculum.SlotRef
	Slot Slot
}

// Grid is a trainee's complete ordered sequence of classified PR
// assignment slots. Cell order mirrors curriculum order, so every grid in
// a batch has the identical sequence of assignment IDs.
type Grid struct {
	Login shared.GithubLogin
	Cells []Cell
}

// Cell looks a cell up by assignment ID.
func (g *Grid) Cell(assignmentID string) (Cell, bool) {
	for _, c := range g.Cells {
		if c.Ref.Assignment.ID == assignmentID {
			return c, true
		}
	}
	return Cell{}, false
}

// Matched returns how many cells hold a submission.
func (g *Grid) Matched() int {
	n := 0
	for _, c := range g.Cells {
		if c.Slot.IsMatched() {
			n++
		}
	}
	return n
}
