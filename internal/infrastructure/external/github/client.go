// Package github implements the GitHub REST API client.
// This package handles all communication with GitHub, including fetching
// pull requests, formal reviews and conversation comments for the course
// repositories.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/trainee-hub/trainee-tracker/pkg/circuitbreaker"
	"github.com/trainee-hub/trainee-tracker/pkg/logger"
	"github.com/trainee-hub/trainee-tracker/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// apiVersion pins the REST API version the client is written against.
const apiVersion = "2022-11-28"

// ClientConfig contains configuration for the GitHub API client.
type ClientConfig struct {
	// BaseURL is the API base URL. Override for GitHub Enterprise.
	BaseURL string

	// Token is the personal access token used as a Bearer credential.
	Token string

	// UserAgent identifies the client; GitHub rejects requests without one.
	UserAgent string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// PerPage is the page size for list endpoints (max 100).
	PerPage int

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Retrier handles transient failures. Nil means GithubAPIRetrier.
	Retrier *retry.Retrier

	// Breaker protects against a failing API. Nil means GithubAPIBreaker.
	Breaker *circuitbreaker.CircuitBreaker

	// Logger for structured logging
	Logger *logger.Logger

	// Debug enables per-request debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		BaseURL:           DefaultBaseURL,
		Token:             token,
		UserAgent:         "trainee-tracker",
		Timeout:           30 * time.Second,
		PerPage:           100,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the GitHub REST API client.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	log         *logger.Logger
	rateLimiter *RateLimiter
	retrier     *retry.Retrier
	breaker     *circuitbreaker.CircuitBreaker
	mapper      *Mapper
}

// NewClient creates a new GitHub API client.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = "trainee-tracker"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.PerPage <= 0 || config.PerPage > 100 {
		config.PerPage = 100
	}
	if config.RateLimiterConfig == (RateLimiterConfig{}) {
		config.RateLimiterConfig = DefaultRateLimiterConfig()
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}

	log := config.Logger.With(logger.Component("github_client"))

	if config.Retrier == nil {
		config.Retrier = retry.GithubAPIRetrier()
	}
	if config.Breaker == nil {
		config.Breaker = circuitbreaker.GithubAPIBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
	}

	return &Client{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		log:         log,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		retrier:     config.Retrier,
		breaker:     config.Breaker,
		mapper:      NewMapper(),
	}
}

// Mapper returns the DTO-to-domain mapper bound to this client.
func (c *Client) Mapper() *Mapper {
	return c.mapper
}

// ══════════════════════════════════════════════════════════════════════════════
// PULL REQUEST OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ListPullRequests fetches every pull request of a repository, open and
// closed, handling pagination.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string) ([]PullRequestDTO, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls?state=all&sort=created&direction=asc",
		url.PathEscape(owner), url.PathEscape(repo))

	prs, err := listPages[PullRequestDTO](ctx, c, path)
	if err != nil {
		return nil, fmt.Errorf("list pull requests %s/%s: %w", owner, repo, err)
	}
	return prs, nil
}

// ListReviews fetches all formal reviews left on a pull request.
func (c *Client) ListReviews(ctx context.Context, owner, repo string, number int) ([]ReviewDTO, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews?",
		url.PathEscape(owner), url.PathEscape(repo), number)

	reviews, err := listPages[ReviewDTO](ctx, c, path)
	if err != nil {
		return nil, fmt.Errorf("list reviews %s/%s#%d: %w", owner, repo, number, err)
	}
	return reviews, nil
}

// ListIssueComments fetches the conversation comments of a pull request.
// PR conversation comments live on the issues endpoint.
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]IssueCommentDTO, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments?",
		url.PathEscape(owner), url.PathEscape(repo), number)

	comments, err := listPages[IssueCommentDTO](ctx, c, path)
	if err != nil {
		return nil, fmt.Errorf("list issue comments %s/%s#%d: %w", owner, repo, number, err)
	}
	return comments, nil
}

// listPages walks the page parameter until a short page arrives.
// The base path must already carry a query string (possibly empty after "?").
func listPages[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	sep := "&"
	if path[len(path)-1] == '?' {
		sep = ""
	}

	for page := 1; ; page++ {
		pagedPath := fmt.Sprintf("%s%sper_page=%d&page=%d", path, sep, c.config.PerPage, page)

		var items []T
		if err := c.doRequest(ctx, pagedPath, &items); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		all = append(all, items...)
		if len(items) < c.config.PerPage {
			return all, nil
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a GET with rate limiting, circuit breaking and retries.
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				return retry.Retryable(fmt.Errorf("rate limiter: %w", err))
			}

			err := c.doSingleRequest(ctx, path, result)
			if err == nil {
				return nil
			}

			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
				return retry.Retryable(err)
			}

			var apiErr *APIErrorDTO
			if errors.As(err, &apiErr) {
				if apiErr.StatusCode >= 500 {
					return retry.Retryable(err)
				}
				// 4xx will not get better on retry
				return retry.Permanent(err)
			}

			// Network-level failures are worth another attempt.
			return retry.Retryable(err)
		})
	})
}

// doSingleRequest performs a single HTTP GET request.
func (c *Client) doSingleRequest(ctx context.Context, path string, result interface{}) error {
	fullURL := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	if c.config.Debug {
		c.log.Debug("github api request", logger.String("path", path))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.recordQuota(resp.Header)

	if rlErr := rateLimitErrorFrom(resp); rlErr != nil {
		return rlErr
	}

	if resp.StatusCode >= 400 {
		apiErr := APIErrorDTO{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// recordQuota feeds the quota headers into the rate limiter.
func (c *Client) recordQuota(header http.Header) {
	remaining, err := strconv.Atoi(header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	var reset time.Time
	if epoch, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		reset = time.Unix(epoch, 0)
	}
	c.rateLimiter.RecordQuota(remaining, reset)
}

// rateLimitErrorFrom converts a 429, or a 403 with an exhausted quota,
// into a RateLimitError. Other responses return nil.
func rateLimitErrorFrom(resp *http.Response) *RateLimitError {
	limited := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
	if !limited {
		return nil
	}

	retryAfter := 60 * time.Second
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil {
			retryAfter = time.Duration(seconds) * time.Second
		}
	} else if epoch, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if until := time.Until(time.Unix(epoch, 0)); until > 0 {
			retryAfter = until
		}
	}

	return &RateLimitError{
		RetryAfter: retryAfter,
		Message:    "github rate limit exceeded",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the GitHub API is reachable with the configured token.
// The rate_limit endpoint does not count against the quota.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var response struct {
		Resources map[string]json.RawMessage `json:"resources"`
	}
	err := c.doSingleRequest(ctx, "/rate_limit", &response)
	return err == nil
}

// ClientStatus is a snapshot of the client internals.
type ClientStatus struct {
	RateLimiter  RateLimiterStatus
	BreakerState circuitbreaker.State
	IsHealthy    bool
}

// Status returns the current status of the client.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		RateLimiter:  c.rateLimiter.Status(),
		BreakerState: c.breaker.State(),
		IsHealthy:    c.IsHealthy(ctx),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.breaker.Reset()
}
