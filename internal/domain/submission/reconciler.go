package submission

import (
	"sort"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// Reconciler maps PR events onto assignment slots. It holds no state
// between runs; every invocation recomputes the grids from scratch.
type Reconciler struct{}

// NewReconciler creates a reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Reconcile builds one grid per trainee from the full event list.
//
// Events that fail validation are routed to the collector immediately, in
// input order. Events from authors outside the batch follow after all
// per-trainee leftovers. Per-trainee leftovers are merged in roster
// order, so the collector's first-seen order is deterministic even when
// callers run trainees concurrently (each trainee's computation is
// independent, see ReconcileTrainee).
//
// The batch and its course must validate; a structural inconsistency
// aborts before any event is looked at.
func (r *Reconciler) Reconcile(batch *roster.Batch, events []PREvent, now time.Time, collector *UnmatchedCollector) ([]*Grid, error) {
	if err := batch.Course.Validate(); err != nil {
		return nil, err
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	byAuthor := make(map[string][]PREvent, len(batch.Trainees))
	var unknownAuthor []PREvent
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			collector.Append(unmatchedFor(ev, reasonForError(err)))
			continue
		}
		if _, ok := batch.Trainee(ev.Author); ok {
			key := ev.Author.Key()
			byAuthor[key] = append(byAuthor[key], ev)
		} else {
			unknownAuthor = append(unknownAuthor, ev)
		}
	}

	grids := make([]*Grid, 0, len(batch.Trainees))
	for _, t := range batch.Trainees {
		grid, leftovers := r.ReconcileTrainee(batch.Course, batch.StartDate, t, byAuthor[t.Login.Key()], now)
		collector.Merge(leftovers)
		grids = append(grids, grid)
	}

	for _, ev := range unknownAuthor {
		collector.Append(unmatchedFor(ev, ReasonUnknownAuthor))
	}
	return grids, nil
}

// ReconcileTrainee builds the grid for a single trainee from that
// trainee's events. Leftover events come back in input order with reason
// tags; the caller owns merging them into the shared collector.
func (r *Reconciler) ReconcileTrainee(course *curriculum.Course, batchStart time.Time, trainee roster.Trainee, events []PREvent, now time.Time) (*Grid, []UnmatchedEvent) {
	grid := newGrid(course, batchStart, trainee.Login, now)

	// Keyed by event index so duplicate or URL-less events cannot shadow
	// each other; nothing is ever silently dropped.
	reasons := make(map[int]string)

	type candidate struct {
		index   int
		ev      PREvent
		hint    shared.SprintNumber
		hasHint bool
	}
	candidates := make([]candidate, 0, len(events))
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			reasons[i] = reasonForError(err)
			continue
		}
		hint, hasHint, err := sprintHint(ev.Title)
		if err != nil {
			reasons[i] = ReasonBadSprintNumber
			continue
		}
		candidates = append(candidates, candidate{index: i, ev: ev, hint: hint, hasHint: hasHint})
	}

	// Preference order for slot claims: open PRs beat closed ones, newer
	// updates beat older, URL breaks the remaining ties. A PR processed
	// earlier claims its best slot first, which realizes the "prefer the
	// most recently updated open PR" tie-break.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].ev, candidates[j].ev
		if a.IsClosed != b.IsClosed {
			return !a.IsClosed
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.URL < b.URL
	})

	for _, c := range candidates {
		idx := bestCell(c.ev, grid.Cells, c.hint, c.hasHint)
		if idx < 0 {
			reasons[c.index] = ReasonNoMatchingAssignment
			continue
		}
		grid.Cells[idx].Slot = NewMatchedSlot(Submission{
			URL:         c.ev.URL,
			DisplayText: c.ev.DisplayText(),
			State:       ClassifyReviewState(c.ev),
			Event:       c.ev,
		})
	}

	// Leftovers keep the caller's input order, not the preference order.
	var leftovers []UnmatchedEvent
	for i, ev := range events {
		if reason, ok := reasons[i]; ok {
			leftovers = append(leftovers, unmatchedFor(ev, reason))
		}
	}
	return grid, leftovers
}

// newGrid lays out the initial cells: every PR assignment classified as
// missing, expected or not by pure date arithmetic against batch start.
func newGrid(course *curriculum.Course, batchStart time.Time, login shared.GithubLogin, now time.Time) *Grid {
	grid := &Grid{Login: login}
	for _, ref := range course.SlotRefs() {
		if ref.Assignment.Kind != curriculum.KindPullRequest {
			continue
		}
		sprint := course.Modules[ref.ModuleIndex].Sprints[ref.SprintIndex]
		slot := NewMissingNotExpectedSlot()
		if ref.Assignment.IsDue(batchStart, sprint.DueOffset, now) {
			slot = NewMissingExpectedSlot()
		}
		grid.Cells = append(grid.Cells, Cell{Ref: ref, Slot: slot})
	}
	return grid
}

func unmatchedFor(ev PREvent, reason string) UnmatchedEvent {
	return UnmatchedEvent{
		URL:    ev.URL,
		Title:  ev.Title,
		Author: ev.Author.String(),
		Repo:   ev.RepoName,
		Reason: reason,
	}
}

func reasonForError(err error) string {
	switch {
	case err == nil:
		return ""
	case err == shared.ErrEventMissingURL:
		return ReasonMissingURL
	case err == shared.ErrEventMissingAuthor:
		return ReasonMissingAuthor
	case err == shared.ErrEventZeroTimestamp:
		return ReasonZeroTimestamp
	default:
		return err.Error()
	}
}
