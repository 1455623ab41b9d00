// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
// A reconciliation run is the only write path: it fetches events,
// rebuilds every report from scratch and persists the result.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trainee-hub/trainee-tracker/internal/application/query"
	"github.com/trainee-hub/trainee-tracker/internal/domain/attendance"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/internal/domain/scoring"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/internal/domain/submission"
)

// ══════════════════════════════════════════════════════════════════════════════
// RUN RECONCILIATION COMMAND
// Rebuilds the batch report: fetch PR and check-in events, reconcile
// them against the curriculum, score every trainee, persist a snapshot
// and refresh the cache. Runs are idempotent: the same inputs and the
// same now produce the same snapshot.
// ══════════════════════════════════════════════════════════════════════════════

// RunReconciliationCommand contains the parameters of one run.
type RunReconciliationCommand struct {
	// BatchSlug selects the batch to reconcile.
	BatchSlug string

	// Now is the instant the run reasons about. Zero means wall clock;
	// tests and replays pass an explicit value.
	Now time.Time

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c RunReconciliationCommand) Validate() error {
	if _, err := shared.NewBatchSlug(c.BatchSlug); err != nil {
		return err
	}
	return nil
}

// RunReconciliationResult contains the outcome of a run.
type RunReconciliationResult struct {
	// RunID uniquely identifies this run in snapshots and events.
	RunID string

	BatchSlug      string
	TraineeCount   int
	UnmatchedCount int

	// AtRisk lists the logins that scored into the at-risk band.
	AtRisk []string

	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration

	// Events contains domain events generated during the run.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// BatchSource loads the roster and curriculum for a batch.
type BatchSource interface {
	Batch(ctx context.Context, slug shared.BatchSlug) (*roster.Batch, error)
}

// PREventSource fetches the pull request events for a batch's course.
type PREventSource interface {
	PREvents(ctx context.Context, batch *roster.Batch) ([]submission.PREvent, error)
}

// CheckInSource fetches the attendance register entries for a batch.
type CheckInSource interface {
	CheckIns(ctx context.Context, batch *roster.Batch) ([]attendance.CheckInEvent, error)
}

// SnapshotStore persists finished reports and the unmatched audit trail.
type SnapshotStore interface {
	SaveBatchReport(ctx context.Context, runID string, report *query.BatchReport) error
	RecordUnmatched(ctx context.Context, runID string, slug shared.BatchSlug, events []submission.UnmatchedEvent) error
	LatestBatchReport(ctx context.Context, slug shared.BatchSlug) (*query.BatchReport, error)
}

// ReportCacheWriter refreshes the read-side cache after a run.
type ReportCacheWriter interface {
	SetBatchReport(ctx context.Context, slug shared.BatchSlug, report *query.BatchReport) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RunReconciliationHandler handles the RunReconciliationCommand.
type RunReconciliationHandler struct {
	batches   BatchSource
	prEvents  PREventSource
	checkIns  CheckInSource
	snapshots SnapshotStore
	cache     ReportCacheWriter
	publisher shared.EventPublisher
	builder   *query.ReportBuilder
}

// NewRunReconciliationHandler creates a new handler. cache and publisher
// may be nil; both are best-effort sides of the run.
func NewRunReconciliationHandler(
	batches BatchSource,
	prEvents PREventSource,
	checkIns CheckInSource,
	snapshots SnapshotStore,
	cache ReportCacheWriter,
	publisher shared.EventPublisher,
	builder *query.ReportBuilder,
) *RunReconciliationHandler {
	if builder == nil {
		builder = query.NewDefaultReportBuilder()
	}
	return &RunReconciliationHandler{
		batches:   batches,
		prEvents:  prEvents,
		checkIns:  checkIns,
		snapshots: snapshots,
		cache:     cache,
		publisher: publisher,
		builder:   builder,
	}
}

// Handle executes one reconciliation run.
//
// Structural inconsistencies in the curriculum or roster abort the run
// before any event is reconciled. Event-level problems never abort:
// they surface in the report's unmatched section.
func (h *RunReconciliationHandler) Handle(ctx context.Context, cmd RunReconciliationCommand) (*RunReconciliationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "RunReconciliation", shared.ErrValidation, "invalid command", err)
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	startedAt := time.Now()
	runID := uuid.NewString()
	slug := shared.BatchSlug(cmd.BatchSlug)

	batch, err := h.batches.Batch(ctx, slug)
	if err != nil {
		return nil, shared.WrapError("command", "RunReconciliation", shared.ErrNotFound, "batch not found", err)
	}

	prEvents, err := h.prEvents.PREvents(ctx, batch)
	if err != nil {
		h.publishFailed(runID, batch, "fetching PR events failed")
		return nil, shared.WrapError("command", "RunReconciliation", shared.ErrExternalService, "failed to fetch PR events", err)
	}

	checkIns, err := h.checkIns.CheckIns(ctx, batch)
	if err != nil {
		h.publishFailed(runID, batch, "fetching check-ins failed")
		return nil, shared.WrapError("command", "RunReconciliation", shared.ErrExternalService, "failed to fetch check-ins", err)
	}

	// Previous report is loaded before the new one is saved so status
	// transitions can be detected. Absence is fine on the first run.
	previous, prevErr := h.snapshots.LatestBatchReport(ctx, slug)
	if prevErr != nil && !shared.IsNotFound(prevErr) {
		previous = nil
	}

	report, err := h.builder.Build(batch, prEvents, checkIns, now)
	if err != nil {
		h.publishFailed(runID, batch, err.Error())
		return nil, err
	}

	if err := h.snapshots.SaveBatchReport(ctx, runID, report); err != nil {
		return nil, shared.WrapError("command", "RunReconciliation", shared.ErrExternalService, "failed to save snapshot", err)
	}
	// Audit trail write failure does not undo the run; the snapshot
	// already carries the unmatched section.
	_ = h.snapshots.RecordUnmatched(ctx, runID, slug, unmatchedFromReport(report))

	if h.cache != nil {
		_ = h.cache.SetBatchReport(ctx, slug, report)
	}

	result := &RunReconciliationResult{
		RunID:          runID,
		BatchSlug:      cmd.BatchSlug,
		TraineeCount:   len(report.Trainees),
		UnmatchedCount: len(report.Unmatched),
		AtRisk:         report.AtRisk(),
		StartedAt:      startedAt,
	}
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(startedAt)
	result.Events = h.buildEvents(runID, batch, report, previous, result, cmd.CorrelationID)

	for _, event := range result.Events {
		if h.publisher == nil {
			break
		}
		if err := h.publisher.Publish(event); err != nil {
			// Log error but don't fail the run. Events can be replayed
			// from the snapshot.
			continue
		}
	}
	return result, nil
}

// buildEvents derives the domain events of a finished run.
func (h *RunReconciliationHandler) buildEvents(
	runID string,
	batch *roster.Batch,
	report *query.BatchReport,
	previous *query.BatchReport,
	result *RunReconciliationResult,
	correlationID string,
) []shared.Event {
	var events []shared.Event

	completed := shared.NewRunCompletedEvent(
		runID, batch.Course.Name, batch.Name,
		result.TraineeCount, result.UnmatchedCount, result.Duration,
	)
	if correlationID != "" {
		completed.BaseEvent = completed.BaseEvent.WithCorrelationID(correlationID)
	}
	events = append(events, completed)

	for _, t := range report.Trainees {
		if t.Status == scoring.AtRisk.String() {
			events = append(events, shared.NewTraineeAtRiskEvent(t.Login, report.Course, report.Batch, t.Score))
		}
		if previous != nil {
			if prev, ok := previous.Trainee(t.Login); ok && prev.Status != t.Status {
				events = append(events, shared.NewTraineeStatusChangedEvent(
					t.Login, report.Course, report.Batch, prev.Status, t.Status, t.Score,
				))
			}
		}
	}

	for _, u := range report.Unmatched {
		events = append(events, shared.NewUnmatchedRecordedEvent(u.URL, u.Author, u.Title, u.Reason, runID))
	}
	return events
}

// publishFailed emits a RunFailedEvent, best effort.
func (h *RunReconciliationHandler) publishFailed(runID string, batch *roster.Batch, reason string) {
	if h.publisher == nil || batch == nil {
		return
	}
	_ = h.publisher.Publish(shared.NewRunFailedEvent(runID, batch.Course.Name, batch.Name, reason))
}

func unmatchedFromReport(report *query.BatchReport) []submission.UnmatchedEvent {
	events := make([]submission.UnmatchedEvent, 0, len(report.Unmatched))
	for _, u := range report.Unmatched {
		events = append(events, submission.UnmatchedEvent{
			URL:    u.URL,
			Title:  u.Title,
			Author: u.Author,
			Repo:   u.Repo,
			Reason: u.Reason,
		})
	}
	return events
}
