package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/attendance"
	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/internal/domain/submission"
)

var (
	reportStart = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	// Вторник после старта батча.
	reportClassDay = time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)
	reportNow      = reportStart.Add(9 * 24 * time.Hour)
)

func reportCourse() *curriculum.Course {
	return &curriculum.Course{
		Name:      "itp",
		StartDate: reportStart,
		EndDate:   reportStart.AddDate(0, 6, 0),
		Modules: []curriculum.Module{
			{
				Name: "onboarding",
				Sprints: []curriculum.Sprint{
					{
						Number:    1,
						DueOffset: 7 * 24 * time.Hour,
						ClassDates: map[shared.Region]time.Time{
							shared.RegionLondon: reportClassDay,
						},
						Assignments: []curriculum.Assignment{
							{ID: "onboarding/1/alarm-clock", Heading: "Alarm Clock", Repo: "onboarding", Kind: curriculum.KindPullRequest},
							{ID: "onboarding/1/class", Kind: curriculum.KindAttendance},
						},
					},
				},
			},
		},
	}
}

func reportBatch() *roster.Batch {
	return &roster.Batch{
		Name:      "May 2025",
		Slug:      "2025-05",
		Course:    reportCourse(),
		StartDate: reportStart,
		Trainees: []roster.Trainee{
			{Login: "alice", Name: "Alice", Region: shared.RegionLondon},
			{Login: "bobsmith", Name: "Bob", Region: shared.RegionLondon},
		},
	}
}

func TestReportBuilder_Build(t *testing.T) {
	builder := NewDefaultReportBuilder()

	prEvents := []submission.PREvent{
		{
			Author:    "alice",
			RepoName:  "onboarding",
			Title:     "Alarm Clock",
			URL:       "https://github.com/org/onboarding/pull/1",
			Number:    1,
			IsMerged:  true,
			UpdatedAt: reportStart.Add(48 * time.Hour),
		},
		{
			Author:    "stranger",
			RepoName:  "onboarding",
			Title:     "Alarm Clock",
			URL:       "https://github.com/org/onboarding/pull/2",
			Number:    2,
			UpdatedAt: reportStart.Add(48 * time.Hour),
		},
	}
	checkIns := []attendance.CheckInEvent{
		// 09:00 UTC - это 10:00 по Лондону в мае.
		{Login: "alice", Timestamp: reportClassDay.Add(9 * time.Hour)},
	}

	report, err := builder.Build(reportBatch(), prEvents, checkIns, reportNow)
	require.NoError(t, err)

	assert.Equal(t, "itp", report.Course)
	assert.Equal(t, "2025-05", report.BatchSlug)
	assert.Equal(t, reportNow, report.GeneratedAt)

	// alice всё сдала и пришла вовремя, bobsmith - нет: сортировка по баллу.
	require.Len(t, report.Trainees, 2)
	assert.Equal(t, "alice", report.Trainees[0].Login)
	assert.Equal(t, int(shared.MaxScore), report.Trainees[0].Score)
	assert.Equal(t, "on-track", report.Trainees[0].Status)
	assert.Equal(t, "bobsmith", report.Trainees[1].Login)
	assert.Equal(t, "at-risk", report.Trainees[1].Status)

	assert.Equal(t, []string{"bobsmith"}, report.AtRisk())

	require.Len(t, report.Regions, 1)
	assert.Equal(t, 2, report.Regions[0].TraineeCount)

	require.Len(t, report.Unmatched, 1)
	assert.Equal(t, "stranger", report.Unmatched[0].Author)

	alice, ok := report.Trainee("ALICE")
	require.True(t, ok)
	assert.Equal(t, 1, alice.Attendance.Numerator)
	assert.Equal(t, 1, alice.Attendance.Denominator)
	require.Len(t, alice.Slots, 1)
	assert.Equal(t, "matched", alice.Slots[0].State)
	assert.Equal(t, "complete", alice.Slots[0].ReviewState)
	require.Len(t, alice.AttendanceDays, 1)
	assert.Equal(t, "2025-05-06", alice.AttendanceDays[0].Date)
}

func TestReportBuilder_StrayCheckInsSurfaceAsUnmatched(t *testing.T) {
	builder := NewDefaultReportBuilder()

	checkIns := []attendance.CheckInEvent{
		// Логин вне батча: расписания для него нет.
		{Login: "stranger", Timestamp: reportClassDay.Add(9 * time.Hour), RegisterURL: "https://register.example.com/row/1"},
		// Известный логин, но нулевой таймстемп.
		{Login: "alice", RegisterURL: "https://register.example.com/row/2"},
	}

	report, err := builder.Build(reportBatch(), nil, checkIns, reportNow)
	require.NoError(t, err)

	require.Len(t, report.Unmatched, 2)

	assert.Equal(t, "stranger", report.Unmatched[0].Author)
	assert.Equal(t, "https://register.example.com/row/1", report.Unmatched[0].URL)
	assert.Equal(t, submission.ReasonUnknownAuthor, report.Unmatched[0].Reason)

	assert.Equal(t, "alice", report.Unmatched[1].Author)
	assert.Equal(t, "https://register.example.com/row/2", report.Unmatched[1].URL)
	assert.Equal(t, submission.ReasonZeroTimestamp, report.Unmatched[1].Reason)

	// Невалидный чек-ин не заполнил ни одного слота.
	alice, ok := report.Trainee("alice")
	require.True(t, ok)
	assert.Equal(t, 0, alice.Attendance.Numerator)
}

func TestReportBuilder_BuildIsDeterministic(t *testing.T) {
	builder := NewDefaultReportBuilder()

	first, err := builder.Build(reportBatch(), nil, nil, reportNow)
	require.NoError(t, err)
	second, err := builder.Build(reportBatch(), nil, nil, reportNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReportBuilder_StructuralErrorFatal(t *testing.T) {
	builder := NewDefaultReportBuilder()

	batch := reportBatch()
	batch.Trainees = nil

	_, err := builder.Build(batch, nil, nil, reportNow)
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// GetBatchReportHandler
// ──────────────────────────────────────────────────────────────────────────────

type fakeReportCache struct {
	report *BatchReport
	err    error
}

func (f *fakeReportCache) GetBatchReport(_ context.Context, _ shared.BatchSlug) (*BatchReport, error) {
	return f.report, f.err
}

type fakeSnapshots struct {
	report *BatchReport
	err    error
	calls  int
}

func (f *fakeSnapshots) LatestBatchReport(_ context.Context, _ shared.BatchSlug) (*BatchReport, error) {
	f.calls++
	return f.report, f.err
}

func TestGetBatchReport_CacheHit(t *testing.T) {
	cached := &BatchReport{BatchSlug: "2025-05"}
	snapshots := &fakeSnapshots{}
	h := NewGetBatchReportHandler(&fakeReportCache{report: cached}, snapshots)

	report, err := h.Handle(context.Background(), GetBatchReportQuery{BatchSlug: "2025-05"})
	require.NoError(t, err)
	assert.Same(t, cached, report)
	assert.Equal(t, 0, snapshots.calls)
}

func TestGetBatchReport_CacheMissFallsBackToSnapshot(t *testing.T) {
	stored := &BatchReport{BatchSlug: "2025-05"}
	h := NewGetBatchReportHandler(
		&fakeReportCache{err: errors.New("cache down")},
		&fakeSnapshots{report: stored},
	)

	report, err := h.Handle(context.Background(), GetBatchReportQuery{BatchSlug: "2025-05"})
	require.NoError(t, err)
	assert.Same(t, stored, report)
}

func TestGetBatchReport_NoCacheConfigured(t *testing.T) {
	stored := &BatchReport{BatchSlug: "2025-05"}
	h := NewGetBatchReportHandler(nil, &fakeSnapshots{report: stored})

	report, err := h.Handle(context.Background(), GetBatchReportQuery{BatchSlug: "2025-05"})
	require.NoError(t, err)
	assert.Same(t, stored, report)
}

func TestGetBatchReport_NotFound(t *testing.T) {
	h := NewGetBatchReportHandler(nil, &fakeSnapshots{err: errors.New("no rows")})

	_, err := h.Handle(context.Background(), GetBatchReportQuery{BatchSlug: "2025-05"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetBatchReport_InvalidSlug(t *testing.T) {
	h := NewGetBatchReportHandler(nil, &fakeSnapshots{})

	_, err := h.Handle(context.Background(), GetBatchReportQuery{BatchSlug: "-bad"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
