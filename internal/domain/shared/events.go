// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Reconciliation run events
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"

	// Trainee events
	EventTraineeAtRisk        EventType = "trainee.at_risk"
	EventTraineeStatusChanged EventType = "trainee.status_changed"

	// Reviewer events
	EventReviewerInactive EventType = "reviewer.inactive"

	// Submission events
	EventUnmatchedRecorded EventType = "submission.unmatched_recorded"

	// System events
	EventSnapshotSaved EventType = "system.snapshot_saved"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Reconciliation Run Events
// ═══════════════════════════════════════════════════════════════════════════

// RunCompletedEvent is emitted when a full reconciliation run finishes.
type RunCompletedEvent struct {
	BaseEvent
	RunID          string        `json:"run_id"`
	Course         string        `json:"course"`
	Batch          string        `json:"batch"`
	TraineeCount   int           `json:"trainee_count"`
	UnmatchedCount int           `json:"unmatched_count"`
	Took           time.Duration `json:"took"`
}

// Payload implements Event interface.
func (e RunCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"run_id":          e.RunID,
		"course":          e.Course,
		"batch":           e.Batch,
		"trainee_count":   e.TraineeCount,
		"unmatched_count": e.UnmatchedCount,
		"took":            e.Took.String(),
	}
}

// NewRunCompletedEvent creates a new RunCompletedEvent.
func NewRunCompletedEvent(runID, course, batch string, trainees, unmatched int, took time.Duration) RunCompletedEvent {
	return RunCompletedEvent{
		BaseEvent:      NewBaseEvent(EventRunCompleted, runID),
		RunID:          runID,
		Course:         course,
		Batch:          batch,
		TraineeCount:   trainees,
		UnmatchedCount: unmatched,
		Took:           took,
	}
}

// RunFailedEvent is emitted when a reconciliation run aborts.
type RunFailedEvent struct {
	BaseEvent
	RunID  string `json:"run_id"`
	Course string `json:"course"`
	Batch  string `json:"batch"`
	Reason string `json:"reason"`
}

// Payload implements Event interface.
func (e RunFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"run_id": e.RunID,
		"course": e.Course,
		"batch":  e.Batch,
		"reason": e.Reason,
	}
}

// NewRunFailedEvent creates a new RunFailedEvent.
func NewRunFailedEvent(runID, course, batch, reason string) RunFailedEvent {
	return RunFailedEvent{
		BaseEvent: NewBaseEvent(EventRunFailed, runID),
		RunID:     runID,
		Course:    course,
		Batch:     batch,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Trainee Events
// ═══════════════════════════════════════════════════════════════════════════

// TraineeAtRiskEvent is emitted when a trainee's progress score drops
// into the at-risk band.
type TraineeAtRiskEvent struct {
	BaseEvent
	TraineeLogin string `json:"trainee_login"`
	Course       string `json:"course"`
	Batch        string `json:"batch"`
	Score        int    `json:"score"`
	Status       string `json:"status"`
}

// Payload implements Event interface.
func (e TraineeAtRiskEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"trainee_login": e.TraineeLogin,
		"course":        e.Course,
		"batch":         e.Batch,
		"score":         e.Score,
		"status":        e.Status,
	}
}

// NewTraineeAtRiskEvent creates a new TraineeAtRiskEvent.
func NewTraineeAtRiskEvent(login, course, batch string, score int) TraineeAtRiskEvent {
	return TraineeAtRiskEvent{
		BaseEvent:    NewBaseEvent(EventTraineeAtRisk, login),
		TraineeLogin: login,
		Course:       course,
		Batch:        batch,
		Score:        score,
		Status:       "at-risk",
	}
}

// TraineeStatusChangedEvent is emitted when a trainee moves between
// progress bands across two reconciliation runs.
type TraineeStatusChangedEvent struct {
	BaseEvent
	TraineeLogin string `json:"trainee_login"`
	Course       string `json:"course"`
	Batch        string `json:"batch"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
	Score        int    `json:"score"`
}

// Payload implements Event interface.
func (e TraineeStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"trainee_login": e.TraineeLogin,
		"course":        e.Course,
		"batch":         e.Batch,
		"old_status":    e.OldStatus,
		"new_status":    e.NewStatus,
		"score":         e.Score,
	}
}

// NewTraineeStatusChangedEvent creates a new TraineeStatusChangedEvent.
func NewTraineeStatusChangedEvent(login, course, batch, oldStatus, newStatus string, score int) TraineeStatusChangedEvent {
	return TraineeStatusChangedEvent{
		BaseEvent:    NewBaseEvent(EventTraineeStatusChanged, login),
		TraineeLogin: login,
		Course:       course,
		Batch:        batch,
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
		Score:        score,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reviewer Events
// ═══════════════════════════════════════════════════════════════════════════

// ReviewerInactiveEvent is emitted when a reviewer has not reviewed
// anything for longer than the inactivity window.
type ReviewerInactiveEvent struct {
	BaseEvent
	ReviewerLogin string    `json:"reviewer_login"`
	Course        string    `json:"course"`
	DaysInactive  int       `json:"days_inactive"`
	LastReviewAt  time.Time `json:"last_review_at"`
}

// Payload implements Event interface.
func (e ReviewerInactiveEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reviewer_login": e.ReviewerLogin,
		"course":         e.Course,
		"days_inactive":  e.DaysInactive,
		"last_review_at": e.LastReviewAt.Format(time.RFC3339),
	}
}

// NewReviewerInactiveEvent creates a new ReviewerInactiveEvent.
func NewReviewerInactiveEvent(login, course string, daysInactive int, lastReviewAt time.Time) ReviewerInactiveEvent {
	return ReviewerInactiveEvent{
		BaseEvent:     NewBaseEvent(EventReviewerInactive, login),
		ReviewerLogin: login,
		Course:        course,
		DaysInactive:  daysInactive,
		LastReviewAt:  lastReviewAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Submission Events
// ═══════════════════════════════════════════════════════════════════════════

// UnmatchedRecordedEvent is emitted for every event the reconciler could
// not place into a slot. Handlers use it for audit trails, never to alter
// the grid.
type UnmatchedRecordedEvent struct {
	BaseEvent
	URL    string `json:"url"`
	Author string `json:"author"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
	RunID  string `json:"run_id"`
}

// Payload implements Event interface.
func (e UnmatchedRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"url":    e.URL,
		"author": e.Author,
		"title":  e.Title,
		"reason": e.Reason,
		"run_id": e.RunID,
	}
}

// NewUnmatchedRecordedEvent creates a new UnmatchedRecordedEvent.
func NewUnmatchedRecordedEvent(url, author, title, reason, runID string) UnmatchedRecordedEvent {
	return UnmatchedRecordedEvent{
		BaseEvent: NewBaseEvent(EventUnmatchedRecorded, url),
		URL:       url,
		Author:    author,
		Title:     title,
		Reason:    reason,
		RunID:     runID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
