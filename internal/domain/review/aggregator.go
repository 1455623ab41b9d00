// Package review aggregates completed PR reviews into per-reviewer
// activity metrics and a coarse activity bucket. All time arithmetic is
// done against an explicit now so a report is reproducible.
package review

import (
	"sort"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/pkg/timeutil"
)

// PrRef identifies the PR a review was left on.
type PrRef struct {
	RepoName string
	URL      string
	Number   int

	// Author is the PR author, used to discard self-reviews.
	Author shared.GithubLogin
}

// Event is one completed review: a formal review or a PR comment, the
// two count equally.
type Event struct {
	Reviewer   shared.GithubLogin
	PR         PrRef
	ReviewedAt time.Time
}

// Validate reports why the event cannot be aggregated, or nil.
func (e Event) Validate() error {
	if e.Reviewer == "" {
		return shared.ErrEventMissingAuthor
	}
	if e.ReviewedAt.IsZero() {
		return shared.ErrEventZeroTimestamp
	}
	return nil
}

// IsSelfReview reports whether the reviewer authored the PR themselves.
// Self-reviews never count toward activity.
func (e Event) IsSelfReview() bool {
	return e.Reviewer.Equals(e.PR.Author)
}

// ═══════════════════════════════════════════════════════════════════════════
// Activity bucket
// ═══════════════════════════════════════════════════════════════════════════

// ActivityBucket summarizes how engaged a reviewer currently is.
type ActivityBucket int

const (
	Active ActivityBucket = iota
	SuperActive
	Inactive
)

// String returns the report form of the bucket.
func (b ActivityBucket) String() string {
	switch b {
	case SuperActive:
		return "super-active"
	case Inactive:
		return "inactive"
	default:
		return "active"
	}
}

// Bucket thresholds.
const (
	// SuperActiveWithinDays: a recent enough last review for super-active.
	SuperActiveWithinDays = 14
	// SuperActiveMinReviews: total reviews must exceed this for super-active.
	SuperActiveMinReviews = 10
	// InactiveAfterDays: no review for longer than this means inactive.
	InactiveAfterDays = 28
	// RecentWindowDays is the trailing window for the distinct-days metric.
	RecentWindowDays = 28
)

// ═══════════════════════════════════════════════════════════════════════════
// Aggregation
// ═══════════════════════════════════════════════════════════════════════════

// ReviewedPR is one PR a reviewer touched, with their latest review time
// on it.
type ReviewedPR struct {
	PR             PrRef
	LatestReviewAt time.Time
}

// Activity is the aggregated metric set for one reviewer.
type Activity struct {
	Login shared.GithubLogin

	// TotalReviews counts every non-self review event.
	TotalReviews int

	LastReviewAt time.Time

	// DaysSinceLast is now minus LastReviewAt in whole days, floored.
	DaysSinceLast int

	// ActiveDays28 counts distinct calendar days with at least one review
	// in the trailing 28-day window ending at now.
	ActiveDays28 int

	// ReviewedPRs lists the PRs touched, most recently reviewed first.
	ReviewedPRs []ReviewedPR

	Bucket ActivityBucket
}

// Aggregator turns review events into per-reviewer activity.
type Aggregator struct{}

// NewAggregator creates an aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate computes activity for every reviewer seen in events.
// Self-reviews and invalid events are skipped. The result is ordered
// most recent last review first, then by PR count, then by login, so
// two runs over the same inputs produce the identical report.
func (a *Aggregator) Aggregate(events []Event, now time.Time) []Activity {
	type state struct {
		activity   Activity
		latestByPR map[string]int // PR URL -> index into ReviewedPRs
		recentDays map[string]struct{}
	}
	byReviewer := make(map[string]*state)

	window := shared.TrailingDays(now, RecentWindowDays)

	for _, ev := range events {
		if ev.Validate() != nil || ev.IsSelfReview() {
			continue
		}
		key := ev.Reviewer.Key()
		st, ok := byReviewer[key]
		if !ok {
			st = &state{
				activity:   Activity{Login: ev.Reviewer},
				latestByPR: make(map[string]int),
				recentDays: make(map[string]struct{}),
			}
			byReviewer[key] = st
		}

		st.activity.TotalReviews++
		if ev.ReviewedAt.After(st.activity.LastReviewAt) {
			st.activity.LastReviewAt = ev.ReviewedAt
		}
		if window.Contains(ev.ReviewedAt) {
			st.recentDays[ev.ReviewedAt.UTC().Format(timeutil.FormatDate)] = struct{}{}
		}

		if idx, seen := st.latestByPR[ev.PR.URL]; seen {
			if ev.ReviewedAt.After(st.activity.ReviewedPRs[idx].LatestReviewAt) {
				st.activity.ReviewedPRs[idx].LatestReviewAt = ev.ReviewedAt
			}
		} else {
			st.latestByPR[ev.PR.URL] = len(st.activity.ReviewedPRs)
			st.activity.ReviewedPRs = append(st.activity.ReviewedPRs, ReviewedPR{
				PR:             ev.PR,
				LatestReviewAt: ev.ReviewedAt,
			})
		}
	}

	result := make([]Activity, 0, len(byReviewer))
	for _, st := range byReviewer {
		act := st.activity
		act.DaysSinceLast = timeutil.WholeDaysSince(act.LastReviewAt, now)
		act.ActiveDays28 = len(st.recentDays)
		act.Bucket = bucketFor(act)
		sort.Slice(act.ReviewedPRs, func(i, j int) bool {
			if !act.ReviewedPRs[i].LatestReviewAt.Equal(act.ReviewedPRs[j].LatestReviewAt) {
				return act.ReviewedPRs[i].LatestReviewAt.After(act.ReviewedPRs[j].LatestReviewAt)
			}
			return act.ReviewedPRs[i].PR.URL < act.ReviewedPRs[j].PR.URL
		})
		result = append(result, act)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].LastReviewAt.Equal(result[j].LastReviewAt) {
			return result[i].LastReviewAt.After(result[j].LastReviewAt)
		}
		if len(result[i].ReviewedPRs) != len(result[j].ReviewedPRs) {
			return len(result[i].ReviewedPRs) > len(result[j].ReviewedPRs)
		}
		return result[i].Login.Key() < result[j].Login.Key()
	})
	return result
}

// bucketFor evaluates the bucket rules in priority order: super-active
// first, then inactive, else active. The order matters if the thresholds
// are ever tuned to overlap; keep it even though the defaults are
// mutually exclusive.
func bucketFor(act Activity) ActivityBucket {
	if act.DaysSinceLast < SuperActiveWithinDays && act.TotalReviews > SuperActiveMinReviews {
		return SuperActive
	}
	if act.DaysSinceLast > InactiveAfterDays {
		return Inactive
	}
	return Active
}
