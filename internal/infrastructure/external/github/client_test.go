package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/pkg/retry"
)

func TestPullRequestDTO_Parsing(t *testing.T) {
	jsonData := `{
    "number": 42,
    "title": "sprint-03: market",
    "state": "closed",
    "html_url": "https://github.com/acme-training/market-alice/pull/42",
    "user": {"login": "alice-dev", "type": "User"},
    "labels": [{"name": "mandatory"}, {"name": "sprint-03"}],
    "created_at": "2026-03-01T09:15:00Z",
    "updated_at": "2026-03-04T17:40:00Z",
    "merged_at": "2026-03-04T17:40:00Z"
}`

	var pr PullRequestDTO
	err := json.Unmarshal([]byte(jsonData), &pr)
	assert.NoError(t, err)

	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "closed", pr.State)
	assert.Equal(t, "alice-dev", pr.User.Login)
	assert.Len(t, pr.Labels, 2)
	assert.NotNil(t, pr.MergedAt)
	assert.Equal(t, 2026, pr.CreatedAt.Year())
}

func TestReviewDTO_Parsing(t *testing.T) {
	jsonData := `[
    {"user": {"login": "erin"}, "state": "APPROVED", "submitted_at": "2026-03-03T12:00:00Z"},
    {"user": {"login": "frank"}, "state": "COMMENTED", "submitted_at": "2026-03-02T10:00:00Z"}
]`

	var reviews []ReviewDTO
	err := json.Unmarshal([]byte(jsonData), &reviews)
	assert.NoError(t, err)

	assert.Len(t, reviews, 2)
	assert.Equal(t, ReviewStateApproved, reviews[0].State)
	assert.Equal(t, "frank", reviews[1].User.Login)
}

func TestMapper_PREventFromDTO(t *testing.T) {
	merged := time.Date(2026, 3, 4, 17, 40, 0, 0, time.UTC)
	pr := PullRequestDTO{
		Number:    42,
		Title:     "sprint-03: market",
		State:     "closed",
		HTMLURL:   "https://github.com/acme-training/market-alice/pull/42",
		User:      &UserDTO{Login: "alice-dev"},
		Labels:    []LabelDTO{{Name: "mandatory"}},
		CreatedAt: merged.AddDate(0, 0, -3),
		UpdatedAt: merged,
		MergedAt:  &merged,
	}
	reviews := []ReviewDTO{
		{User: &UserDTO{Login: "erin"}, State: ReviewStateApproved, SubmittedAt: merged},
		{User: &UserDTO{Login: "frank"}, State: ReviewStateCommented, SubmittedAt: merged},
	}

	event := NewMapper().PREventFromDTO("market-alice", pr, reviews)

	assert.Equal(t, "alice-dev", event.Author.String())
	assert.Equal(t, "market-alice", event.RepoName)
	assert.True(t, event.IsMerged)
	assert.True(t, event.IsClosed)
	// COMMENTED is not a decision
	assert.Equal(t, []string{"approved"}, event.ReviewDecisions)
	assert.Equal(t, []string{"mandatory"}, event.Labels)
}

func TestMapper_PREventFromDTO_OpenPR(t *testing.T) {
	pr := PullRequestDTO{
		Number:    7,
		State:     "open",
		HTMLURL:   "https://github.com/acme-training/market-bob/pull/7",
		User:      &UserDTO{Login: "bob"},
		UpdatedAt: time.Now(),
	}

	event := NewMapper().PREventFromDTO("market-bob", pr, nil)

	assert.False(t, event.IsMerged)
	assert.False(t, event.IsClosed)
	assert.Empty(t, event.ReviewDecisions)
}

func TestMapper_ReviewEventsFromDTO(t *testing.T) {
	at := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	pr := PullRequestDTO{
		Number:  42,
		HTMLURL: "https://github.com/acme-training/market-alice/pull/42",
		User:    &UserDTO{Login: "alice-dev"},
	}
	reviews := []ReviewDTO{
		{User: &UserDTO{Login: "erin"}, State: ReviewStateApproved, SubmittedAt: at},
		{User: nil, State: ReviewStateApproved, SubmittedAt: at}, // ghost account
	}
	comments := []IssueCommentDTO{
		{User: &UserDTO{Login: "frank"}, CreatedAt: at.Add(time.Hour)},
	}

	events := NewMapper().ReviewEventsFromDTO("market-alice", pr, reviews, comments)

	require.Len(t, events, 2)
	assert.Equal(t, "erin", events[0].Reviewer.String())
	assert.Equal(t, "frank", events[1].Reviewer.String())
	for _, ev := range events {
		assert.Equal(t, "alice-dev", ev.PR.Author.String())
		assert.Equal(t, 42, ev.PR.Number)
	}
}

// testClient builds a client against a test server with fast settings so
// retry paths do not slow the suite down.
func testClient(serverURL string) *Client {
	config := DefaultClientConfig("test-token")
	config.BaseURL = serverURL
	config.PerPage = 2
	config.RateLimiterConfig = RateLimiterConfig{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		MinInterval:       time.Microsecond,
		WaitTimeout:       time.Second,
		RetryAfter:        time.Millisecond,
	}
	config.Retrier = retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(5*time.Millisecond),
	)
	return NewClient(config)
}

func TestClient_ListPullRequests_Pagination(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))

		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		switch page {
		case "1":
			fmt.Fprint(w, `[{"number": 1, "html_url": "u1"}, {"number": 2, "html_url": "u2"}]`)
		default:
			fmt.Fprint(w, `[{"number": 3, "html_url": "u3"}]`)
		}
	}))
	defer server.Close()

	client := testClient(server.URL)
	prs, err := client.ListPullRequests(context.Background(), "acme-training", "market-alice")

	require.NoError(t, err)
	assert.Len(t, prs, 3)
	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Equal(t, 3, prs[2].Number)
}

func TestClient_ListReviews_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.ListReviews(context.Background(), "acme-training", "gone", 1)

	require.Error(t, err)
	var apiErr *APIErrorDTO
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[{"number": 9, "html_url": "u9"}]`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	prs, err := client.ListPullRequests(context.Background(), "acme-training", "market-bob")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, prs, 1)
}

func TestClient_RetriesServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.ListIssueComments(context.Background(), "acme-training", "market-bob", 7)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRateLimitErrorFrom_ForbiddenWithExhaustedQuota(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusForbidden,
		Header: http.Header{
			"X-Ratelimit-Remaining": []string{"0"},
			"Retry-After":           []string{"30"},
		},
	}

	rlErr := rateLimitErrorFrom(resp)
	require.NotNil(t, rlErr)
	assert.Equal(t, 30*time.Second, rlErr.RetryAfter)
}

func TestRateLimitErrorFrom_PlainForbidden(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusForbidden, Header: http.Header{}}
	assert.Nil(t, rateLimitErrorFrom(resp))
}
