package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/application/query"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ReportCache caches finished batch reports between reconciliation runs.
// Implements the read-side report cache and the write-side cache refresher.
type ReportCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewReportCache creates a new ReportCache with the default TTL.
func NewReportCache(cache *Cache) *ReportCache {
	return &ReportCache{
		cache: cache,
		ttl:   TTLBatchReport,
	}
}

// WithTTL overrides the report TTL.
func (rc *ReportCache) WithTTL(ttl time.Duration) *ReportCache {
	rc.ttl = ttl
	return rc
}

// GetBatchReport returns the cached report for a batch. A miss or a
// deserialization failure both surface as ErrNotFound so the read side
// falls through to the snapshot store.
func (rc *ReportCache) GetBatchReport(ctx context.Context, slug shared.BatchSlug) (*query.BatchReport, error) {
	key := BatchReportKey(slug.String())

	var report query.BatchReport
	if err := rc.cache.Get(ctx, key, &report); err != nil {
		if errors.Is(err, ErrCacheMiss) || errors.Is(err, ErrCacheSerialization) {
			return nil, shared.NewDomainError("redis", "GetBatchReport", shared.ErrNotFound,
				fmt.Sprintf("no cached report for batch %s", slug))
		}
		return nil, fmt.Errorf("failed to read cached report: %w", err)
	}
	return &report, nil
}

// SetBatchReport stores a freshly built report.
func (rc *ReportCache) SetBatchReport(ctx context.Context, slug shared.BatchSlug, report *query.BatchReport) error {
	if report == nil {
		return ErrCacheNilValue
	}

	key := BatchReportKey(slug.String())
	if err := rc.cache.Set(ctx, key, report, rc.ttl); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// InvalidateBatchReport drops a batch's cached report. Used when the
// catalog changes between runs and the cached report may be stale.
func (rc *ReportCache) InvalidateBatchReport(ctx context.Context, slug shared.BatchSlug) error {
	return rc.cache.Delete(ctx, BatchReportKey(slug.String()))
}

// ══════════════════════════════════════════════════════════════════════════════
// REVIEWER REPORT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// GetReviewerReport returns the cached reviewer report for a course.
func (rc *ReportCache) GetReviewerReport(ctx context.Context, course string) (*query.ReviewerReport, error) {
	key := ReviewerReportKey(course)

	var report query.ReviewerReport
	if err := rc.cache.Get(ctx, key, &report); err != nil {
		if errors.Is(err, ErrCacheMiss) || errors.Is(err, ErrCacheSerialization) {
			return nil, shared.NewDomainError("redis", "GetReviewerReport", shared.ErrNotFound,
				fmt.Sprintf("no cached reviewer report for course %s", course))
		}
		return nil, fmt.Errorf("failed to read cached reviewer report: %w", err)
	}
	return &report, nil
}

// SetReviewerReport stores a freshly built reviewer report.
func (rc *ReportCache) SetReviewerReport(ctx context.Context, course string, report *query.ReviewerReport) error {
	if report == nil {
		return ErrCacheNilValue
	}

	key := ReviewerReportKey(course)
	if err := rc.cache.Set(ctx, key, report, TTLReviewerReport); err != nil {
		return fmt.Errorf("failed to cache reviewer report: %w", err)
	}
	return nil
}
