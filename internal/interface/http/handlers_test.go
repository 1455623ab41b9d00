package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/config"
	"github.com/trainee-hub/trainee-tracker/internal/application/query"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/internal/domain/submission"
)

type stubSnapshots struct {
	report *query.BatchReport
}

func (s *stubSnapshots) LatestBatchReport(_ context.Context, _ shared.BatchSlug) (*query.BatchReport, error) {
	return s.report, nil
}

func reportServer(flags *config.FeatureFlags) *Server {
	report := &query.BatchReport{
		BatchSlug: "2025-05",
		Trainees:  []query.TraineeReportDTO{{Login: "alice"}},
		Unmatched: []query.UnmatchedDTO{
			{Author: "stranger", Reason: submission.ReasonUnknownAuthor},
		},
	}
	return NewServer(DefaultConfig(), Dependencies{
		GetBatchReportHandler: query.NewGetBatchReportHandler(nil, &stubSnapshots{report: report}),
		Features:              flags,
	})
}

func getBatchReport(t *testing.T, s *Server) query.BatchReport {
	t.Helper()

	r := httptest.NewRequest("GET", "/api/v1/batches/2025-05/report", nil)
	r.SetPathValue("slug", "2025-05")
	rec := httptest.NewRecorder()

	s.handleGetBatchReport(rec, r)
	require.Equal(t, 200, rec.Code)

	var envelope struct {
		Success bool              `json:"success"`
		Data    query.BatchReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func TestHandleGetBatchReport_UnmatchedServedByDefault(t *testing.T) {
	report := getBatchReport(t, reportServer(config.LoadFeatureFlags()))

	require.Len(t, report.Unmatched, 1)
	assert.Equal(t, "stranger", report.Unmatched[0].Author)
}

func TestHandleGetBatchReport_UnmatchedSectionFeatureOff(t *testing.T) {
	flags := config.LoadFeatureFlags()
	require.NoError(t, flags.DisableFeature(config.FeatureReportUnmatchedSection))

	report := getBatchReport(t, reportServer(flags))

	// Only the unmatched section is hidden, the rest of the report stays.
	assert.Empty(t, report.Unmatched)
	require.Len(t, report.Trainees, 1)
	assert.Equal(t, "alice", report.Trainees[0].Login)
}
