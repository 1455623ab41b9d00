package github

import (
	"strings"

	"github.com/trainee-hub/trainee-tracker/internal/domain/review"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/internal/domain/submission"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to Domain conversion
// Bad payloads are mapped as-is, not rejected: the reconciler routes
// anything it cannot use to the unmatched collector with a reason, which
// is more useful in a report than an error from this layer.
// ══════════════════════════════════════════════════════════════════════════════

// Mapper converts GitHub wire shapes into domain events.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// PREventFromDTO maps a pull request and its formal reviews into a
// submission event.
func (m *Mapper) PREventFromDTO(repoName string, pr PullRequestDTO, reviews []ReviewDTO) submission.PREvent {
	event := submission.PREvent{
		RepoName:  repoName,
		Title:     pr.Title,
		URL:       pr.HTMLURL,
		Number:    pr.Number,
		IsMerged:  pr.MergedAt != nil,
		IsClosed:  strings.EqualFold(pr.State, "closed"),
		CreatedAt: pr.CreatedAt,
		UpdatedAt: pr.UpdatedAt,
	}

	if pr.User != nil {
		event.Author = shared.GithubLogin(pr.User.Login)
	}

	for _, label := range pr.Labels {
		if label.Name != "" {
			event.Labels = append(event.Labels, label.Name)
		}
	}

	for _, r := range reviews {
		switch r.State {
		case ReviewStateApproved:
			event.ReviewDecisions = append(event.ReviewDecisions, "approved")
		case ReviewStateChangesRequested:
			event.ReviewDecisions = append(event.ReviewDecisions, "changes_requested")
		}
	}

	return event
}

// ReviewEventsFromDTO maps the formal reviews and conversation comments of
// a pull request into review events. A formal review and a comment weigh
// the same for activity purposes. Payloads without an author or timestamp
// are dropped here since the aggregator has no unmatched lane to put them
// in.
func (m *Mapper) ReviewEventsFromDTO(repoName string, pr PullRequestDTO, reviews []ReviewDTO, comments []IssueCommentDTO) []review.Event {
	ref := review.PrRef{
		RepoName: repoName,
		URL:      pr.HTMLURL,
		Number:   pr.Number,
	}
	if pr.User != nil {
		ref.Author = shared.GithubLogin(pr.User.Login)
	}

	var events []review.Event

	for _, r := range reviews {
		if r.User == nil || r.SubmittedAt.IsZero() {
			continue
		}
		events = append(events, review.Event{
			Reviewer:   shared.GithubLogin(r.User.Login),
			PR:         ref,
			ReviewedAt: r.SubmittedAt,
		})
	}

	for _, c := range comments {
		if c.User == nil || c.CreatedAt.IsZero() {
			continue
		}
		events = append(events, review.Event{
			Reviewer:   shared.GithubLogin(c.User.Login),
			PR:         ref,
			ReviewedAt: c.CreatedAt,
		})
	}

	return events
}
