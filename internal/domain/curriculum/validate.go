package curriculum

import (
	"fmt"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// Validate checks the course for structural consistency. A failure here is
// fatal: reconciliation must not start against a malformed curriculum, so
// callers check this before touching any event data.
func (c *Course) Validate() error {
	if c.Name == "" {
		return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent, "course has no name")
	}
	if len(c.Modules) == 0 {
		return shared.ErrEmptyCourse
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() || !c.StartDate.Before(c.EndDate) {
		return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
			fmt.Sprintf("course %s has invalid date range", c.Name))
	}

	seenModules := make(map[string]struct{}, len(c.Modules))
	seenAssignments := make(map[string]struct{}, c.AssignmentCount())

	for _, m := range c.Modules {
		if m.Name == "" {
			return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent, "module has no name")
		}
		if _, dup := seenModules[m.Name]; dup {
			return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
				fmt.Sprintf("duplicate module %s", m.Name))
		}
		seenModules[m.Name] = struct{}{}

		if len(m.Sprints) == 0 {
			return shared.WrapError("curriculum", "Validate", shared.ErrInconsistent,
				fmt.Sprintf("module %s has no sprints", m.Name), shared.ErrEmptySprint)
		}

		prevOffset := int64(-1)
		for si, s := range m.Sprints {
			if !s.Number.IsValid() {
				return shared.ErrInvalidSprintNumber
			}
			if s.Number.Int() != si+1 {
				return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
					fmt.Sprintf("module %s sprint %d is numbered %d", m.Name, si+1, s.Number.Int()))
			}
			if int64(s.DueOffset) < prevOffset {
				return shared.ErrSprintOutOfOrder
			}
			prevOffset = int64(s.DueOffset)

			if len(s.Assignments) == 0 {
				return shared.ErrEmptySprint
			}
			for _, a := range s.Assignments {
				if err := validateAssignment(m.Name, s, a, seenAssignments); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateAssignment(module string, s Sprint, a Assignment, seen map[string]struct{}) error {
	if a.ID == "" {
		return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
			fmt.Sprintf("module %s sprint %d has an assignment without ID", module, s.Number.Int()))
	}
	if _, dup := seen[a.ID]; dup {
		return shared.WrapError("curriculum", "Validate", shared.ErrInconsistent, a.ID, shared.ErrDuplicateAssignment)
	}
	seen[a.ID] = struct{}{}

	if a.Weight < 0 {
		return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
			fmt.Sprintf("assignment %s has negative weight", a.ID))
	}

	switch a.Kind {
	case KindPullRequest:
		if a.Heading == "" {
			return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
				fmt.Sprintf("PR assignment %s has no heading", a.ID))
		}
		if a.Repo == "" {
			return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
				fmt.Sprintf("PR assignment %s has no expected repository", a.ID))
		}
	case KindAttendance:
		if len(s.ClassDates) == 0 {
			return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
				fmt.Sprintf("attendance assignment %s has no class dates on its sprint", a.ID))
		}
	default:
		return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
			fmt.Sprintf("assignment %s has unknown kind", a.ID))
	}
	return nil
}

// ValidateAgainstRegions checks that every sprint scheduling a class
// covers the given regions. Any sprint carrying class dates is checked,
// whether or not an attendance assignment sits on it: a roster region
// with no class date cannot be reconciled.
func (c *Course) ValidateAgainstRegions(regions []shared.Region) error {
	for _, m := range c.Modules {
		for _, s := range m.Sprints {
			if len(s.ClassDates) == 0 {
				continue
			}
			for _, r := range regions {
				if _, ok := s.ClassDates[r]; !ok {
					return shared.NewDomainError("curriculum", "Validate", shared.ErrInconsistent,
						fmt.Sprintf("module %s sprint %d has no class date for region %s", m.Name, s.Number.Int(), r))
				}
			}
		}
	}
	return nil
}
