// Package http implements the REST read side of the trainee tracker.
package http

import (
	"net/http"
	"time"

	"github.com/trainee-hub/trainee-tracker/config"
	"github.com/trainee-hub/trainee-tracker/internal/application/query"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Trainee Tracker API",
		"version":     "v1",
		"description": "Read-only API for cohort progress and reviewer activity reports",
		"endpoints": map[string]string{
			"health":       "/health",
			"batch_report": "/api/v1/batches/{slug}/report",
			"reviewers":    "/api/v1/courses/{course}/reviewers",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// BATCH REPORT HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetBatchReport handles GET /api/v1/batches/{slug}/report
func (s *Server) handleGetBatchReport(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Batch slug is required")
		return
	}

	if s.deps.GetBatchReportHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Batch report handler not configured")
		return
	}

	result, err := s.deps.GetBatchReportHandler.Handle(r.Context(), query.GetBatchReportQuery{
		BatchSlug: slug,
	})
	if err != nil {
		if shared.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "not_found", "No report for this batch yet")
			return
		}
		if shared.IsValidation(err) {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid batch slug")
			return
		}
		s.logger.Error("failed to get batch report", logger.Err(err), logger.String("batch", slug))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to get batch report")
		return
	}

	// The unmatched section can be switched off per batch without a
	// redeploy. The report pointer may be shared with the cache, so a
	// trimmed copy is served instead of mutating it.
	if s.deps.Features != nil &&
		!s.deps.Features.IsEnabled(config.FeatureReportUnmatchedSection, &config.FeatureContext{Batch: result.BatchSlug}) {
		trimmed := *result
		trimmed.Unmatched = nil
		result = &trimmed
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REVIEWER REPORT HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetReviewerReport handles GET /api/v1/courses/{course}/reviewers
//
// Without a valid staff token the report is still served, just with the
// staff-only details hidden. The query handler makes that call; this
// handler only passes the token through.
func (s *Server) handleGetReviewerReport(w http.ResponseWriter, r *http.Request) {
	course := r.PathValue("course")
	if course == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Course is required")
		return
	}

	if s.deps.GetReviewerReportHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Reviewer report handler not configured")
		return
	}

	q := query.GetReviewerReportQuery{
		Course:     course,
		StaffToken: r.Header.Get(s.config.StaffTokenHeader),
		Now:        time.Now().UTC(),
	}

	result, err := s.deps.GetReviewerReportHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to get reviewer report", logger.Err(err), logger.String("course", course))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to get reviewer report")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
