package command

import (
	"context"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/review"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH REVIEWERS COMMAND
// Recomputes reviewer activity for a course from the raw review events
// and emits inactivity events. Like reconciliation, the computation is a
// pure function of the event list and an explicit now.
// ══════════════════════════════════════════════════════════════════════════════

// RefreshReviewersCommand contains the parameters of one refresh.
type RefreshReviewersCommand struct {
	// Course selects which course's reviewer pool to refresh.
	Course string

	// Now is the instant activity is measured against. Zero means wall
	// clock.
	Now time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RefreshReviewersCommand) Validate() error {
	if c.Course == "" {
		return shared.NewDomainError("command", "RefreshReviewers", shared.ErrEmptyValue, "course is required")
	}
	return nil
}

// RefreshReviewersResult contains the outcome of a refresh.
type RefreshReviewersResult struct {
	Course        string
	ReviewerCount int

	// Inactive lists the logins currently in the inactive bucket.
	Inactive []string

	RefreshedAt time.Time

	// Events contains domain events generated during the refresh.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// ReviewEventFetcher pulls the raw review events for a course.
type ReviewEventFetcher interface {
	FetchReviewEvents(ctx context.Context, course string) ([]review.Event, error)
}

// ReviewActivityStore persists aggregated reviewer activity so the read
// side can serve it without refetching.
type ReviewActivityStore interface {
	SaveReviewerActivity(ctx context.Context, course string, activities []review.Activity, refreshedAt time.Time) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RefreshReviewersHandler handles the RefreshReviewersCommand.
type RefreshReviewersHandler struct {
	fetcher    ReviewEventFetcher
	store      ReviewActivityStore
	publisher  shared.EventPublisher
	aggregator *review.Aggregator
}

// NewRefreshReviewersHandler creates a new handler. store and publisher
// may be nil.
func NewRefreshReviewersHandler(
	fetcher ReviewEventFetcher,
	store ReviewActivityStore,
	publisher shared.EventPublisher,
) *RefreshReviewersHandler {
	return &RefreshReviewersHandler{
		fetcher:    fetcher,
		store:      store,
		publisher:  publisher,
		aggregator: review.NewAggregator(),
	}
}

// Handle executes the refresh.
func (h *RefreshReviewersHandler) Handle(ctx context.Context, cmd RefreshReviewersCommand) (*RefreshReviewersResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	events, err := h.fetcher.FetchReviewEvents(ctx, cmd.Course)
	if err != nil {
		return nil, shared.WrapError("command", "RefreshReviewers", shared.ErrExternalService, "failed to fetch review events", err)
	}

	activities := h.aggregator.Aggregate(events, now)

	if h.store != nil {
		if err := h.store.SaveReviewerActivity(ctx, cmd.Course, activities, now); err != nil {
			return nil, shared.WrapError("command", "RefreshReviewers", shared.ErrExternalService, "failed to save reviewer activity", err)
		}
	}

	result := &RefreshReviewersResult{
		Course:        cmd.Course,
		ReviewerCount: len(activities),
		RefreshedAt:   now,
	}

	for _, act := range activities {
		if act.Bucket != review.Inactive {
			continue
		}
		result.Inactive = append(result.Inactive, act.Login.String())
		event := shared.NewReviewerInactiveEvent(act.Login.String(), cmd.Course, act.DaysSinceLast, act.LastReviewAt)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)
	}

	for _, event := range result.Events {
		if h.publisher == nil {
			break
		}
		_ = h.publisher.Publish(event)
	}
	return result, nil
}
