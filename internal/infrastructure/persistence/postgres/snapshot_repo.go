// Package postgres implements the PostgreSQL persistence layer for the
// trainee tracker.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/application/query"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/internal/domain/submission"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REPOSITORY IMPLEMENTATION
// The report is persisted as one JSONB document per run. Reads never
// reach inside it: the latest snapshot is served verbatim, which keeps
// the schema stable while report shape evolves.
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository implements the snapshot store and snapshot reader
// ports for PostgreSQL.
type SnapshotRepository struct {
	conn *Connection
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(conn *Connection) *SnapshotRepository {
	return &SnapshotRepository{conn: conn}
}

// SaveBatchReport persists one finished run's report.
func (r *SnapshotRepository) SaveBatchReport(ctx context.Context, runID string, report *query.BatchReport) error {
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	q := `
		INSERT INTO batch_reports (
			run_id, batch_slug, course, generated_at,
			trainee_count, unmatched_count, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.conn.Exec(ctx, q,
		runID,
		report.BatchSlug,
		report.Course,
		report.GeneratedAt,
		len(report.Trainees),
		len(report.Unmatched),
		doc,
	)
	if err != nil {
		return fmt.Errorf("failed to save batch report: %w", err)
	}
	return nil
}

// LatestBatchReport returns the most recent snapshot for a batch.
func (r *SnapshotRepository) LatestBatchReport(ctx context.Context, slug shared.BatchSlug) (*query.BatchReport, error) {
	q := `
		SELECT report
		FROM batch_reports
		WHERE batch_slug = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var doc []byte
	if err := r.conn.QueryRow(ctx, q, slug.String()).Scan(&doc); err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("postgres", "LatestBatchReport", shared.ErrNotFound,
				fmt.Sprintf("no snapshot for batch %s", slug))
		}
		return nil, fmt.Errorf("failed to load batch report: %w", err)
	}

	var report query.BatchReport
	if err := json.Unmarshal(doc, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// RecordUnmatched appends a run's unmatched events to the audit trail.
func (r *SnapshotRepository) RecordUnmatched(ctx context.Context, runID string, slug shared.BatchSlug, events []submission.UnmatchedEvent) error {
	if len(events) == 0 {
		return nil
	}

	q := `
		INSERT INTO unmatched_events (run_id, batch_slug, url, title, author, repo, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, ev := range events {
		if _, err := r.conn.Exec(ctx, q,
			runID, slug.String(), ev.URL, ev.Title, ev.Author, ev.Repo, ev.Reason,
		); err != nil {
			return fmt.Errorf("failed to record unmatched event: %w", err)
		}
	}
	return nil
}

// UnmatchedRow is one row of the unmatched audit trail.
type UnmatchedRow struct {
	RunID      string
	URL        string
	Title      string
	Author     string
	Repo       string
	Reason     string
	RecordedAt time.Time
}

// UnmatchedHistory lists unmatched rows for a batch, one page at a time.
func (r *SnapshotRepository) UnmatchedHistory(ctx context.Context, slug shared.BatchSlug, page shared.Pagination) ([]UnmatchedRow, error) {
	page = shared.NewPagination(page.Page, page.PageSize)

	q := `
		SELECT run_id, url, title, author, repo, reason, recorded_at
		FROM unmatched_events
		WHERE batch_slug = $1
		ORDER BY recorded_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, q, slug.String(), page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched history: %w", err)
	}
	defer rows.Close()

	var result []UnmatchedRow
	for rows.Next() {
		var row UnmatchedRow
		if err := rows.Scan(&row.RunID, &row.URL, &row.Title, &row.Author, &row.Repo, &row.Reason, &row.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unmatched row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// PruneSnapshots deletes snapshots older than the retention window,
// keeping at least one per batch regardless of age.
func (r *SnapshotRepository) PruneSnapshots(ctx context.Context, olderThan time.Duration) (int64, error) {
	q := `
		DELETE FROM batch_reports
		WHERE created_at < NOW() - $1::interval
		  AND run_id NOT IN (
			SELECT DISTINCT ON (batch_slug) run_id
			FROM batch_reports
			ORDER BY batch_slug, created_at DESC
		  )
	`

	tag, err := r.conn.Exec(ctx, q, fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
