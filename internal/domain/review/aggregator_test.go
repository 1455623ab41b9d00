package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

var aggNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func reviewEvent(reviewer, author, url string, at time.Time) Event {
	return Event{
		Reviewer: shared.GithubLogin(reviewer),
		PR: PrRef{
			RepoName: "onboarding",
			URL:      url,
			Number:   1,
			Author:   shared.GithubLogin(author),
		},
		ReviewedAt: at,
	}
}

func TestAggregate_SkipsSelfReviews(t *testing.T) {
	a := NewAggregator()
	events := []Event{
		reviewEvent("carol", "carol", "u1", aggNow.Add(-time.Hour)),
		reviewEvent("Carol", "carol", "u1", aggNow.Add(-time.Hour)),
	}

	assert.Empty(t, a.Aggregate(events, aggNow))
}

func TestAggregate_SkipsInvalidEvents(t *testing.T) {
	a := NewAggregator()
	events := []Event{
		{PR: PrRef{URL: "u1"}, ReviewedAt: aggNow},
		{Reviewer: "carol", PR: PrRef{URL: "u1"}},
	}

	assert.Empty(t, a.Aggregate(events, aggNow))
}

func TestAggregate_CountsAndLastReview(t *testing.T) {
	a := NewAggregator()
	first := aggNow.Add(-72 * time.Hour)
	last := aggNow.Add(-24 * time.Hour)
	events := []Event{
		reviewEvent("carol", "alice", "u1", first),
		reviewEvent("carol", "alice", "u2", last),
	}

	result := a.Aggregate(events, aggNow)
	require.Len(t, result, 1)
	assert.Equal(t, 2, result[0].TotalReviews)
	assert.Equal(t, last, result[0].LastReviewAt)
	assert.Equal(t, 1, result[0].DaysSinceLast)
}

func TestAggregate_PerPRDedupKeepsLatestTime(t *testing.T) {
	a := NewAggregator()
	events := []Event{
		reviewEvent("carol", "alice", "u1", aggNow.Add(-48*time.Hour)),
		reviewEvent("carol", "alice", "u1", aggNow.Add(-12*time.Hour)),
	}

	result := a.Aggregate(events, aggNow)
	require.Len(t, result, 1)
	require.Len(t, result[0].ReviewedPRs, 1)
	assert.Equal(t, aggNow.Add(-12*time.Hour), result[0].ReviewedPRs[0].LatestReviewAt)
	assert.Equal(t, 2, result[0].TotalReviews)
}

func TestAggregate_ActiveDays28(t *testing.T) {
	a := NewAggregator()
	events := []Event{
		// Two reviews on the same day count once.
		reviewEvent("carol", "alice", "u1", aggNow.Add(-26*time.Hour)),
		reviewEvent("carol", "alice", "u2", aggNow.Add(-27*time.Hour)),
		reviewEvent("carol", "alice", "u3", aggNow.Add(-5*24*time.Hour)),
		// Outside the trailing window.
		reviewEvent("carol", "alice", "u4", aggNow.Add(-40*24*time.Hour)),
	}

	result := a.Aggregate(events, aggNow)
	require.Len(t, result, 1)
	assert.Equal(t, 2, result[0].ActiveDays28)
}

func TestAggregate_Buckets(t *testing.T) {
	a := NewAggregator()

	// 11 reviews, last one yesterday: super-active.
	var events []Event
	for i := 0; i < 11; i++ {
		events = append(events, reviewEvent("carol", "alice", "u1", aggNow.Add(-24*time.Hour)))
	}
	// Recent but few reviews: active.
	events = append(events, reviewEvent("dave", "alice", "u2", aggNow.Add(-24*time.Hour)))
	// Long gone: inactive.
	events = append(events, reviewEvent("erin", "alice", "u3", aggNow.Add(-30*24*time.Hour)))

	result := a.Aggregate(events, aggNow)
	require.Len(t, result, 3)

	byLogin := map[string]ActivityBucket{}
	for _, act := range result {
		byLogin[act.Login.Key()] = act.Bucket
	}
	assert.Equal(t, SuperActive, byLogin["carol"])
	assert.Equal(t, Active, byLogin["dave"])
	assert.Equal(t, Inactive, byLogin["erin"])
}

func TestAggregate_ManyReviewsButStaleIsNotSuperActive(t *testing.T) {
	a := NewAggregator()

	var events []Event
	for i := 0; i < 20; i++ {
		events = append(events, reviewEvent("carol", "alice", "u1", aggNow.Add(-20*24*time.Hour)))
	}

	result := a.Aggregate(events, aggNow)
	require.Len(t, result, 1)
	assert.Equal(t, Active, result[0].Bucket)
}

func TestAggregate_Ordering(t *testing.T) {
	a := NewAggregator()
	events := []Event{
		reviewEvent("late", "alice", "u1", aggNow.Add(-72*time.Hour)),
		reviewEvent("fresh", "alice", "u2", aggNow.Add(-24*time.Hour)),
		// Same last review as "late" but two PRs.
		reviewEvent("busy", "alice", "u3", aggNow.Add(-72*time.Hour)),
		reviewEvent("busy", "alice", "u4", aggNow.Add(-90*time.Hour)),
	}

	result := a.Aggregate(events, aggNow)
	require.Len(t, result, 3)
	assert.Equal(t, shared.GithubLogin("fresh"), result[0].Login)
	assert.Equal(t, shared.GithubLogin("busy"), result[1].Login)
	assert.Equal(t, shared.GithubLogin("late"), result[2].Login)
}

func TestAggregate_ReviewedPRsMostRecentFirst(t *testing.T) {
	a := NewAggregator()
	events := []Event{
		reviewEvent("carol", "alice", "u1", aggNow.Add(-72*time.Hour)),
		reviewEvent("carol", "alice", "u2", aggNow.Add(-24*time.Hour)),
	}

	result := a.Aggregate(events, aggNow)
	require.Len(t, result, 1)
	require.Len(t, result[0].ReviewedPRs, 2)
	assert.Equal(t, "u2", result[0].ReviewedPRs[0].PR.URL)
	assert.Equal(t, "u1", result[0].ReviewedPRs[1].PR.URL)
}
