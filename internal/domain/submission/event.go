// Package submission reconciles pull request events against the expected
// assignment slots of a curriculum. The output is one complete grid per
// trainee: every PR assignment classified, every leftover event routed to
// the unmatched collector. Nothing here performs I/O; events arrive as
// plain values from the external fetch layer.
package submission

import (
	"fmt"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// PREvent is one pull request as supplied by the fetch layer.
type PREvent struct {
	Author   shared.GithubLogin
	RepoName string
	Title    string
	URL      string
	Number   int

	IsMerged bool
	IsClosed bool

	// ReviewDecisions holds the decisions left on the PR, e.g. "approved"
	// or "changes_requested". Plain comments are not decisions.
	ReviewDecisions []string

	// Labels ride along for display; classification uses the fields above.
	Labels []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate reports why the event cannot be reconciled, or nil. A non-nil
// result routes the event to the unmatched collector with a reason tag;
// it never aborts the run.
func (e PREvent) Validate() error {
	if e.URL == "" {
		return shared.ErrEventMissingURL
	}
	if e.Author == "" {
		return shared.ErrEventMissingAuthor
	}
	if e.UpdatedAt.IsZero() {
		return shared.ErrEventZeroTimestamp
	}
	return nil
}

// DisplayText is the short author-visible form used in reports.
func (e PREvent) DisplayText() string {
	return fmt.Sprintf("#%d", e.Number)
}

// ═══════════════════════════════════════════════════════════════════════════
// Review state classification
// ═══════════════════════════════════════════════════════════════════════════

// ReviewState classifies a matched submission.
type ReviewState int

const (
	// StateUnknown means the state cannot be determined from the event
	// fields. It is assigned explicitly, never defaulted into.
	StateUnknown ReviewState = iota
	StateNeedsReview
	StateReviewed
	StateComplete
)

// String returns the report form of the state.
func (s ReviewState) String() string {
	switch s {
	case StateComplete:
		return "complete"
	case StateReviewed:
		return "reviewed"
	case StateNeedsReview:
		return "needs-review"
	default:
		return "unknown"
	}
}

// ClassifyReviewState derives the review state from the event fields:
// merged PRs are complete, PRs with at least one review decision are
// reviewed, open PRs without decisions need review. Anything else, such
// as a PR closed without merging, is unknown.
func ClassifyReviewState(e PREvent) ReviewState {
	if e.IsMerged {
		return StateComplete
	}
	if len(e.ReviewDecisions) > 0 {
		return StateReviewed
	}
	if !e.IsClosed {
		return StateNeedsReview
	}
	return StateUnknown
}
