package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/review"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

var reviewerNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeReviewEvents struct {
	events []review.Event
	err    error
}

func (f *fakeReviewEvents) ReviewEvents(_ context.Context, _ string) ([]review.Event, error) {
	return f.events, f.err
}

type fakeStaffDetails struct {
	records map[string]review.StaffDetails
}

func (f *fakeStaffDetails) StaffDetails(_ context.Context, login shared.GithubLogin) (review.StaffDetails, error) {
	if d, ok := f.records[login.Key()]; ok {
		return d, nil
	}
	return review.StaffDetails{}, shared.ErrNotFound
}

type fakeStaffAuth struct {
	valid string
}

func (f *fakeStaffAuth) Verify(_ context.Context, token string) bool {
	return token == f.valid
}

func reviewerEvents() []review.Event {
	return []review.Event{
		{
			Reviewer:   "carol",
			PR:         review.PrRef{RepoName: "onboarding", URL: "u1", Number: 1, Author: "alice"},
			ReviewedAt: reviewerNow.Add(-24 * time.Hour),
		},
	}
}

func TestGetReviewerReport_WithoutToken(t *testing.T) {
	staff := &fakeStaffDetails{records: map[string]review.StaffDetails{
		"carol": {Name: "Carol", Quality: "good"},
	}}
	h := NewGetReviewerReportHandler(&fakeReviewEvents{events: reviewerEvents()}, staff, &fakeStaffAuth{valid: "s3cret"})

	report, err := h.Handle(context.Background(), GetReviewerReportQuery{Course: "itp", Now: reviewerNow})
	require.NoError(t, err)

	assert.Equal(t, reviewerNow, report.GeneratedAt)
	require.Len(t, report.Reviewers, 1)
	assert.Equal(t, "carol", report.Reviewers[0].Login)
	assert.Equal(t, "active", report.Reviewers[0].Bucket)
	assert.Nil(t, report.Reviewers[0].StaffDetails)
	assert.Equal(t, "hidden", report.Reviewers[0].StaffDetailsState)
}

func TestGetReviewerReport_StaffTokenRevealsDetails(t *testing.T) {
	staff := &fakeStaffDetails{records: map[string]review.StaffDetails{
		"carol": {Name: "Carol", AttendedTraining: true, Checked: review.CheckedAndOk, Quality: "good"},
	}}
	h := NewGetReviewerReportHandler(&fakeReviewEvents{events: reviewerEvents()}, staff, &fakeStaffAuth{valid: "s3cret"})

	report, err := h.Handle(context.Background(), GetReviewerReportQuery{Course: "itp", StaffToken: "s3cret", Now: reviewerNow})
	require.NoError(t, err)

	require.Len(t, report.Reviewers, 1)
	require.NotNil(t, report.Reviewers[0].StaffDetails)
	assert.Equal(t, "Carol", report.Reviewers[0].StaffDetails.Name)
	assert.Equal(t, "checked-and-ok", report.Reviewers[0].StaffDetails.Checked)
	assert.Equal(t, "known", report.Reviewers[0].StaffDetailsState)
}

func TestGetReviewerReport_StaffTokenNoRecord(t *testing.T) {
	staff := &fakeStaffDetails{}
	h := NewGetReviewerReportHandler(&fakeReviewEvents{events: reviewerEvents()}, staff, &fakeStaffAuth{valid: "s3cret"})

	report, err := h.Handle(context.Background(), GetReviewerReportQuery{Course: "itp", StaffToken: "s3cret", Now: reviewerNow})
	require.NoError(t, err)

	require.Len(t, report.Reviewers, 1)
	assert.Nil(t, report.Reviewers[0].StaffDetails)
	assert.Equal(t, "unknown", report.Reviewers[0].StaffDetailsState)
}

func TestGetReviewerReport_WrongTokenStaysHidden(t *testing.T) {
	h := NewGetReviewerReportHandler(&fakeReviewEvents{events: reviewerEvents()}, &fakeStaffDetails{}, &fakeStaffAuth{valid: "s3cret"})

	report, err := h.Handle(context.Background(), GetReviewerReportQuery{Course: "itp", StaffToken: "wrong", Now: reviewerNow})
	require.NoError(t, err)
	assert.Equal(t, "hidden", report.Reviewers[0].StaffDetailsState)
}

func TestGetReviewerReport_ValidatesQuery(t *testing.T) {
	h := NewGetReviewerReportHandler(&fakeReviewEvents{}, nil, nil)

	_, err := h.Handle(context.Background(), GetReviewerReportQuery{Now: reviewerNow})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = h.Handle(context.Background(), GetReviewerReportQuery{Course: "itp"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetReviewerReport_SourceFailure(t *testing.T) {
	h := NewGetReviewerReportHandler(&fakeReviewEvents{err: errors.New("github 502")}, nil, nil)

	_, err := h.Handle(context.Background(), GetReviewerReportQuery{Course: "itp", Now: reviewerNow})
	assert.ErrorIs(t, err, shared.ErrExternalService)
}
