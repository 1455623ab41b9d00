// Package roster models who is being tracked: trainees grouped into
// batches, and the reviewers serving a course. The roster is loaded once
// per run and held immutable, identity is the GitHub login.
package roster

import (
	"sort"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// Trainee is one person on a course.
type Trainee struct {
	Login  shared.GithubLogin
	Name   string
	Email  shared.Email
	Region shared.Region
}

// Reviewer is a volunteer reviewing trainee PRs. Reviewers have no
// curriculum relationship; activity is derived purely from review events.
type Reviewer struct {
	Login shared.GithubLogin
}

// Batch is an ordered group of trainees working through one course
// together. The course is shared, not owned: every trainee's grid is laid
// out against the same curriculum value.
type Batch struct {
	Name      string
	Slug      shared.BatchSlug
	Course    *curriculum.Course
	StartDate time.Time
	Trainees  []Trainee
}

// Validate checks the batch for structural consistency. Like curriculum
// validation this is fatal: a malformed roster aborts the run before any
// reconciliation begins.
func (b *Batch) Validate() error {
	if b.Course == nil {
		return shared.NewDomainError("roster", "Validate", shared.ErrInconsistent, "batch has no course")
	}
	if !b.Slug.IsValid() {
		return shared.NewDomainError("roster", "Validate", shared.ErrInconsistent, "batch has invalid slug")
	}
	if b.StartDate.IsZero() {
		return shared.NewDomainError("roster", "Validate", shared.ErrInconsistent, "batch has no start date")
	}
	if len(b.Trainees) == 0 {
		return shared.ErrEmptyBatch
	}

	seen := make(map[string]struct{}, len(b.Trainees))
	for _, t := range b.Trainees {
		if !t.Login.IsValid() {
			return shared.ErrInvalidGithubLogin
		}
		if _, dup := seen[t.Login.Key()]; dup {
			return shared.WrapError("roster", "Validate", shared.ErrInconsistent, t.Login.String(), shared.ErrDuplicateTrainee)
		}
		seen[t.Login.Key()] = struct{}{}
		if !t.Region.IsValid() {
			return shared.ErrUnknownRegion
		}
	}
	return b.Course.ValidateAgainstRegions(b.Regions())
}

// Trainee looks a trainee up by login, case-insensitively.
func (b *Batch) Trainee(login shared.GithubLogin) (Trainee, bool) {
	for _, t := range b.Trainees {
		if t.Login.Equals(login) {
			return t, true
		}
	}
	return Trainee{}, false
}

// Regions returns the batch's regions ordered by trainee count, smallest
// first, ties broken by name for determinism.
func (b *Batch) Regions() []shared.Region {
	counts := make(map[shared.Region]int)
	for _, t := range b.Trainees {
		counts[t.Region]++
	}
	regions := make([]shared.Region, 0, len(counts))
	for r := range counts {
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool {
		if counts[regions[i]] != counts[regions[j]] {
			return counts[regions[i]] < counts[regions[j]]
		}
		return regions[i] < regions[j]
	})
	return regions
}
