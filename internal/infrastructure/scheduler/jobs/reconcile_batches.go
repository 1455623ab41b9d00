// Package jobs contains implementations of scheduled jobs for the trainee
// tracker. Each job keeps one derived dataset fresh: the batch reports
// and the reviewer activity aggregation.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/application/command"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE BATCHES JOB
// ══════════════════════════════════════════════════════════════════════════════

// BatchCatalog lists the batches to reconcile. Reload picks up catalog
// edits made between runs without a restart.
type BatchCatalog interface {
	Reload() error
	BatchSlugs() []shared.BatchSlug
}

// ReconcileBatchesJob runs a reconciliation for every batch in the
// catalog. Batches are independent, so one failing batch never blocks
// the others; the job only fails if every batch failed.
type ReconcileBatchesJob struct {
	catalog BatchCatalog
	handler *command.RunReconciliationHandler
	logger  *slog.Logger

	config ReconcileBatchesConfig

	lastRunStats atomic.Value // *ReconcileStats
}

// ReconcileBatchesConfig contains configuration for the reconcile job.
type ReconcileBatchesConfig struct {
	// Timeout is the maximum duration for one full pass over all batches.
	Timeout time.Duration

	// PerBatchTimeout bounds a single batch's run.
	PerBatchTimeout time.Duration
}

// DefaultReconcileBatchesConfig returns sensible defaults.
func DefaultReconcileBatchesConfig() ReconcileBatchesConfig {
	return ReconcileBatchesConfig{
		Timeout:         20 * time.Minute,
		PerBatchTimeout: 5 * time.Minute,
	}
}

// ReconcileStats contains statistics from one pass.
type ReconcileStats struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	TotalBatches int
	SucceededRun int
	FailedRun    int
	Unmatched    int
	AtRisk       int
	Errors       []BatchError
}

// BatchError records a failed batch run.
type BatchError struct {
	BatchSlug  string
	Error      error
	OccurredAt time.Time
}

// NewReconcileBatchesJob creates a new reconcile job.
func NewReconcileBatchesJob(
	catalog BatchCatalog,
	handler *command.RunReconciliationHandler,
	logger *slog.Logger,
	config ReconcileBatchesConfig,
) *ReconcileBatchesJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PerBatchTimeout <= 0 {
		config.PerBatchTimeout = 5 * time.Minute
	}

	return &ReconcileBatchesJob{
		catalog: catalog,
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// Name returns the job name.
func (j *ReconcileBatchesJob) Name() string {
	return "reconcile_batches"
}

// Description returns a human-readable description.
func (j *ReconcileBatchesJob) Description() string {
	return "Rebuilds the progress report for every batch in the catalog"
}

// Run executes one reconciliation pass.
func (j *ReconcileBatchesJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &ReconcileStats{
		StartedAt: startedAt,
		Errors:    make([]BatchError, 0),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	// Staff edit the catalog between runs; pick up their changes first.
	// A broken catalog keeps the previous in-memory one, so a typo in a
	// course file degrades to stale data rather than an outage.
	if err := j.catalog.Reload(); err != nil {
		j.logger.Warn("catalog reload failed, using previous catalog", "error", err)
	}

	slugs := j.catalog.BatchSlugs()
	stats.TotalBatches = len(slugs)

	j.logger.Info("starting reconcile_batches job", "batches", len(slugs))

	// Batches run sequentially. Each run already fans out per repo
	// internally, and sequential runs keep the GitHub quota predictable.
	for _, slug := range slugs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := j.reconcileBatch(ctx, slug)
		if err != nil {
			stats.FailedRun++
			stats.Errors = append(stats.Errors, BatchError{
				BatchSlug:  slug.String(),
				Error:      err,
				OccurredAt: time.Now(),
			})
			j.logger.Error("batch reconciliation failed",
				"batch", slug.String(),
				"error", err,
			)
			continue
		}

		stats.SucceededRun++
		stats.Unmatched += result.UnmatchedCount
		stats.AtRisk += len(result.AtRisk)

		j.logger.Info("batch reconciled",
			"batch", slug.String(),
			"run_id", result.RunID,
			"trainees", result.TraineeCount,
			"unmatched", result.UnmatchedCount,
			"at_risk", len(result.AtRisk),
			"duration", result.Duration.String(),
		)
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("reconcile_batches job completed",
		"duration", stats.Duration.String(),
		"total", stats.TotalBatches,
		"succeeded", stats.SucceededRun,
		"failed", stats.FailedRun,
	)

	if stats.TotalBatches > 0 && stats.SucceededRun == 0 {
		return fmt.Errorf("all %d batch reconciliations failed", stats.TotalBatches)
	}
	return nil
}

// reconcileBatch runs a single batch with its own timeout.
func (j *ReconcileBatchesJob) reconcileBatch(ctx context.Context, slug shared.BatchSlug) (*command.RunReconciliationResult, error) {
	batchCtx, cancel := context.WithTimeout(ctx, j.config.PerBatchTimeout)
	defer cancel()

	return j.handler.Handle(batchCtx, command.RunReconciliationCommand{
		BatchSlug: slug.String(),
	})
}

// LastRunStats returns statistics from the last pass.
func (j *ReconcileBatchesJob) LastRunStats() *ReconcileStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*ReconcileStats)
}
