package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH REVIEWERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// CourseCatalog lists the courses whose reviewer pools are refreshed.
type CourseCatalog interface {
	CourseNames() []string
}

// RefreshReviewersJob recomputes reviewer activity for every course.
// Reviewer activity moves slowly (the buckets look at 14 and 28 day
// windows), so this runs far less often than reconciliation.
type RefreshReviewersJob struct {
	catalog CourseCatalog
	handler *command.RefreshReviewersHandler
	logger  *slog.Logger

	config RefreshReviewersConfig

	lastRunStats atomic.Value // *RefreshStats
}

// RefreshReviewersConfig contains configuration for the refresh job.
type RefreshReviewersConfig struct {
	// Timeout is the maximum duration for one pass over all courses.
	Timeout time.Duration
}

// DefaultRefreshReviewersConfig returns sensible defaults.
func DefaultRefreshReviewersConfig() RefreshReviewersConfig {
	return RefreshReviewersConfig{
		Timeout: 15 * time.Minute,
	}
}

// RefreshStats contains statistics from one pass.
type RefreshStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	TotalCourses  int
	Succeeded     int
	Failed        int
	ReviewerCount int
	InactiveCount int
}

// NewRefreshReviewersJob creates a new refresh job.
func NewRefreshReviewersJob(
	catalog CourseCatalog,
	handler *command.RefreshReviewersHandler,
	logger *slog.Logger,
	config RefreshReviewersConfig,
) *RefreshReviewersJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &RefreshReviewersJob{
		catalog: catalog,
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// Name returns the job name.
func (j *RefreshReviewersJob) Name() string {
	return "refresh_reviewers"
}

// Description returns a human-readable description.
func (j *RefreshReviewersJob) Description() string {
	return "Recomputes reviewer activity buckets for every course"
}

// Run executes one refresh pass.
func (j *RefreshReviewersJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RefreshStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	courses := j.catalog.CourseNames()
	stats.TotalCourses = len(courses)

	j.logger.Info("starting refresh_reviewers job", "courses", len(courses))

	for _, course := range courses {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := j.handler.Handle(ctx, command.RefreshReviewersCommand{
			Course: course,
		})
		if err != nil {
			stats.Failed++
			j.logger.Error("reviewer refresh failed",
				"course", course,
				"error", err,
			)
			continue
		}

		stats.Succeeded++
		stats.ReviewerCount += result.ReviewerCount
		stats.InactiveCount += len(result.Inactive)

		j.logger.Info("reviewers refreshed",
			"course", course,
			"reviewers", result.ReviewerCount,
			"inactive", len(result.Inactive),
		)
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("refresh_reviewers job completed",
		"duration", stats.Duration.String(),
		"total", stats.TotalCourses,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)

	if stats.TotalCourses > 0 && stats.Succeeded == 0 {
		return fmt.Errorf("all %d reviewer refreshes failed", stats.TotalCourses)
	}
	return nil
}

// LastRunStats returns statistics from the last pass.
func (j *RefreshReviewersJob) LastRunStats() *RefreshStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RefreshStats)
}
