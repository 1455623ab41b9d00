package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

var batchStart = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func testCourse() *curriculum.Course {
	return &curriculum.Course{
		Name:      "itp",
		StartDate: batchStart,
		EndDate:   batchStart.AddDate(0, 6, 0),
		Modules: []curriculum.Module{
			{
				Name: "onboarding",
				Sprints: []curriculum.Sprint{
					{
						Number:    1,
						DueOffset: 7 * 24 * time.Hour,
						Assignments: []curriculum.Assignment{
							{ID: "onboarding/1/alarm-clock", Heading: "Alarm Clock", Repo: "onboarding", Kind: curriculum.KindPullRequest},
							{ID: "onboarding/1/quiz", Heading: "Sprint 1 Quiz", Repo: "onboarding", Kind: curriculum.KindPullRequest, Optionality: curriculum.Stretch},
						},
					},
					{
						Number:    2,
						DueOffset: 14 * 24 * time.Hour,
						Assignments: []curriculum.Assignment{
							{ID: "onboarding/2/notes-app", Heading: "Notes App", Repo: "onboarding", Kind: curriculum.KindPullRequest},
						},
					},
				},
			},
		},
	}
}

func testBatch() *roster.Batch {
	return &roster.Batch{
		Name:      "May 2025",
		Slug:      "2025-05",
		Course:    testCourse(),
		StartDate: batchStart,
		Trainees: []roster.Trainee{
			{Login: "alice", Name: "Alice", Region: shared.RegionLondon},
			{Login: "bobsmith", Name: "Bob", Region: shared.RegionLondon},
		},
	}
}

func prEvent(author, title, url string) PREvent {
	return PREvent{
		Author:    shared.GithubLogin(author),
		RepoName:  "onboarding",
		Title:     title,
		URL:       url,
		Number:    1,
		UpdatedAt: batchStart.Add(48 * time.Hour),
	}
}

func TestReconcile_GridCompleteness(t *testing.T) {
	r := NewReconciler()
	collector := NewUnmatchedCollector()
	now := batchStart.Add(8 * 24 * time.Hour)

	grids, err := r.Reconcile(testBatch(), nil, now, collector)
	require.NoError(t, err)
	require.Len(t, grids, 2)

	// Every grid carries the full assignment sequence in curriculum order,
	// with no events at all.
	for _, grid := range grids {
		require.Len(t, grid.Cells, 3)
		assert.Equal(t, "onboarding/1/alarm-clock", grid.Cells[0].Ref.Assignment.ID)
		assert.Equal(t, "onboarding/1/quiz", grid.Cells[1].Ref.Assignment.ID)
		assert.Equal(t, "onboarding/2/notes-app", grid.Cells[2].Ref.Assignment.ID)

		// Sprint 1 is past due, sprint 2 is not.
		assert.Equal(t, MissingButExpected, grid.Cells[0].Slot.Kind())
		assert.Equal(t, MissingButExpected, grid.Cells[1].Slot.Kind())
		assert.Equal(t, MissingButNotExpected, grid.Cells[2].Slot.Kind())
	}
	assert.Equal(t, 0, collector.Len())
}

func TestReconcile_MatchesByHeadingOverlap(t *testing.T) {
	r := NewReconciler()
	collector := NewUnmatchedCollector()
	now := batchStart.Add(8 * 24 * time.Hour)

	ev := prEvent("alice", "Alarm Clock app", "https://github.com/org/onboarding/pull/1")
	ev.IsMerged = true

	grids, err := r.Reconcile(testBatch(), []PREvent{ev}, now, collector)
	require.NoError(t, err)

	cell, ok := grids[0].Cell("onboarding/1/alarm-clock")
	require.True(t, ok)
	require.True(t, cell.Slot.IsMatched())

	sub, ok := cell.Slot.Submission()
	require.True(t, ok)
	assert.Equal(t, StateComplete, sub.State)
	assert.Equal(t, ev.URL, sub.URL)
	assert.Equal(t, "#1", sub.DisplayText)
	assert.Equal(t, 0, collector.Len())
}

func TestReconcile_SprintHintConstrainsCandidates(t *testing.T) {
	r := NewReconciler()
	collector := NewUnmatchedCollector()
	now := batchStart.Add(8 * 24 * time.Hour)

	ev := prEvent("alice", "Sprint 1 | Quiz", "https://github.com/org/onboarding/pull/2")

	grids, err := r.Reconcile(testBatch(), []PREvent{ev}, now, collector)
	require.NoError(t, err)

	cell, ok := grids[0].Cell("onboarding/1/quiz")
	require.True(t, ok)
	assert.True(t, cell.Slot.IsMatched())
}

func TestReconcile_OpenPRBeatsClosedForSameSlot(t *testing.T) {
	r := NewReconciler()
	collector := NewUnmatchedCollector()
	now := batchStart.Add(8 * 24 * time.Hour)

	closed := prEvent("alice", "Alarm Clock", "https://github.com/org/onboarding/pull/3")
	closed.IsClosed = true
	closed.UpdatedAt = batchStart.Add(72 * time.Hour)

	open := prEvent("alice", "Alarm Clock", "https://github.com/org/onboarding/pull/4")
	open.UpdatedAt = batchStart.Add(24 * time.Hour)

	grids, err := r.Reconcile(testBatch(), []PREvent{closed, open}, now, collector)
	require.NoError(t, err)

	cell, _ := grids[0].Cell("onboarding/1/alarm-clock")
	sub, ok := cell.Slot.Submission()
	require.True(t, ok)
	assert.Equal(t, open.URL, sub.URL)

	// The losing PR matches nothing else and surfaces as unmatched.
	events := collector.Events()
	require.Len(t, events, 1)
	assert.Equal(t, closed.URL, events[0].URL)
	assert.Equal(t, ReasonNoMatchingAssignment, events[0].Reason)
}

func TestReconcile_NewerUpdateWinsAmongOpenPRs(t *testing.T) {
	r := NewReconciler()
	collector := NewUnmatchedCollector()
	now := batchStart.Add(8 * 24 * time.Hour)

	older := prEvent("alice", "Alarm Clock", "https://github.com/org/onboarding/pull/5")
	older.UpdatedAt = batchStart.Add(24 * time.Hour)

	newer := prEvent("alice", "Alarm Clock", "https://github.com/org/onboarding/pull/6")
	newer.UpdatedAt = batchStart.Add(96 * time.Hour)

	grids, err := r.Reconcile(testBatch(), []PREvent{older, newer}, now, collector)
	require.NoError(t, err)

	cell, _ := grids[0].Cell("onboarding/1/alarm-clock")
	sub, _ := cell.Slot.Submission()
	assert.Equal(t, newer.URL, sub.URL)
}

func TestReconcile_UnknownAuthorGoesToCollector(t *testing.T) {
	r := NewReconciler()
	collector := NewUnmatchedCollector()
	now := batchStart.Add(8 * 24 * time.Hour)

	ev := prEvent("stranger", "Alarm Clock", "https://github.com/org/onboarding/pull/7")

	_, err := r.Reconcile(testBatch(), []PREvent{ev}, now, collector)
	require.NoError(t, err)

	events := collector.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ReasonUnknownAuthor, events[0].Reason)
	assert.Equal(t, "stranger", events[0].Author)
}

func TestReconcile_InvalidEventsGetReasonTags(t *testing.T) {
	r := NewReconciler()
	collector := NewUnmatchedCollector()
	now := batchStart.Add(8 * 24 * time.Hour)

	noURL := prEvent("alice", "Alarm Clock", "")
	badSprint := prEvent("alice", "Sprint 99 | Quiz", "https://github.com/org/onboarding/pull/8")

	_, err := r.Reconcile(testBatch(), []PREvent{noURL, badSprint}, now, collector)
	require.NoError(t, err)

	events := collector.Events()
	require.Len(t, events, 2)
	assert.Equal(t, ReasonMissingURL, events[0].Reason)
	assert.Equal(t, ReasonBadSprintNumber, events[1].Reason)
}

func TestReconcile_StructuralErrorAborts(t *testing.T) {
	r := NewReconciler()
	collector := NewUnmatchedCollector()

	batch := testBatch()
	batch.Trainees = nil

	_, err := r.Reconcile(batch, nil, batchStart, collector)
	assert.Error(t, err)
}

func TestUnmatchedCollector_DeduplicatesByURL(t *testing.T) {
	c := NewUnmatchedCollector()

	ev := UnmatchedEvent{URL: "https://github.com/org/onboarding/pull/9", Reason: ReasonUnknownAuthor}
	assert.True(t, c.Append(ev))
	assert.False(t, c.Append(ev))
	assert.Equal(t, 1, c.Len())
}

func TestUnmatchedCollector_KeepsFirstSeenOrder(t *testing.T) {
	c := NewUnmatchedCollector()
	c.Merge([]UnmatchedEvent{
		{URL: "u1", Reason: ReasonMissingURL},
		{URL: "u2", Reason: ReasonUnknownAuthor},
		{URL: "u1", Reason: ReasonMissingURL},
	})

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "u1", events[0].URL)
	assert.Equal(t, "u2", events[1].URL)
}

func TestUnmatchedCollector_URLLessEventsDoNotShadow(t *testing.T) {
	c := NewUnmatchedCollector()

	a := UnmatchedEvent{Author: "alice", Repo: "onboarding", Title: "x", Reason: ReasonMissingURL}
	b := UnmatchedEvent{Author: "bobsmith", Repo: "onboarding", Title: "x", Reason: ReasonMissingURL}
	assert.True(t, c.Append(a))
	assert.True(t, c.Append(b))
	assert.Equal(t, 2, c.Len())
}
