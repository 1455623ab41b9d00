package jobs

import (
	"context"
	"log/slog"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRUNE SNAPSHOTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotPruner deletes report snapshots older than a retention window.
type SnapshotPruner interface {
	PruneSnapshots(ctx context.Context, olderThan time.Duration) (int64, error)
}

// PruneSnapshotsJob trims old report snapshots. Every reconciliation run
// writes a new snapshot, so without pruning the table grows by one row
// per batch per run forever. The latest snapshot per batch is never older
// than the reconcile interval and is therefore never touched.
type PruneSnapshotsJob struct {
	pruner    SnapshotPruner
	logger    *slog.Logger
	retention time.Duration
}

// NewPruneSnapshotsJob creates a new prune job.
func NewPruneSnapshotsJob(pruner SnapshotPruner, retention time.Duration, logger *slog.Logger) *PruneSnapshotsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PruneSnapshotsJob{
		pruner:    pruner,
		logger:    logger,
		retention: retention,
	}
}

// Name returns the job name.
func (j *PruneSnapshotsJob) Name() string {
	return "prune_snapshots"
}

// Description returns a human-readable description.
func (j *PruneSnapshotsJob) Description() string {
	return "Deletes report snapshots older than the retention window"
}

// Run executes one prune pass.
func (j *PruneSnapshotsJob) Run(ctx context.Context) error {
	deleted, err := j.pruner.PruneSnapshots(ctx, j.retention)
	if err != nil {
		j.logger.Error("snapshot prune failed", "error", err)
		return err
	}

	j.logger.Info("snapshots pruned",
		"deleted", deleted,
		"retention", j.retention.String(),
	)
	return nil
}
