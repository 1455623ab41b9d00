// Package register implements the attendance register feed client.
// The register is a small internal service that exports the check-in rows
// staff record during morning class, one JSON array per batch.
package register

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

// ClientConfig contains configuration for the register feed client.
type ClientConfig struct {
	// BaseURL is the register service base URL
	BaseURL string

	// APIKey authenticates the tracker against the feed
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Retrier handles transient failures. Nil means RegisterFeedRetrier.
	Retrier *retry.Retrier

	// Breaker protects against a failing feed. Nil means RegisterFeedBreaker.
	Breaker *circuitbreaker.CircuitBreaker

	// Logger for structured logging
	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL, apiKey string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: 15 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// CheckInDTO is one row of the register export.
type CheckInDTO struct {
	Login       string    `json:"login"`
	Timestamp   time.Time `json:"timestamp"`
	Code        string    `json:"code"`
	RegisterURL string    `json:"register_url"`
}

// feedResponse is the envelope the register wraps its rows in.
type feedResponse struct {
	Batch    string       `json:"batch"`
	CheckIns []CheckInDTO `json:"check_ins"`
	Total    int          `json:"total"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the register feed client.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	log        *logger.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new register feed client.
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}

	log := config.Logger.With(logger.Component("register_client"))

	if config.Retrier == nil {
		config.Retrier = retry.RegisterFeedRetrier()
	}
	if config.Breaker == nil {
		config.Breaker = circuitbreaker.RegisterFeedBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		log:        log,
		retrier:    config.Retrier,
		breaker:    config.Breaker,
	}
}

// ListCheckIns fetches every check-in recorded for a batch since the given
// instant. A zero since means the whole batch history.
func (c *Client) ListCheckIns(ctx context.Context, batchSlug string, since time.Time) ([]CheckInDTO, error) {
	params := url.Values{}
	params.Set("batch", batchSlug)
	if !since.IsZero() {
		params.Set("since", since.Format(time.RFC3339))
	}

	path := "/api/v1/check-ins?" + params.Encode()

	var response feedResponse
	if err := c.doRequest(ctx, path, &response); err != nil {
		return nil, fmt.Errorf("list check-ins for %s: %w", batchSlug, err)
	}

	return response.CheckIns, nil
}

// IsHealthy checks if the register feed is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	return c.doSingleRequest(ctx, "/healthz", nil) == nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a GET with circuit breaking and retries.
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			err := c.doSingleRequest(ctx, path, result)
			if err == nil {
				return nil
			}

			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				if statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests {
					return retry.Retryable(err)
				}
				return retry.Permanent(err)
			}

			return retry.Retryable(err)
		})
	})
}

// StatusError is a non-2xx response from the feed.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return "register feed: status " + strconv.Itoa(e.StatusCode)
}

// doSingleRequest performs a single HTTP GET request.
func (c *Client) doSingleRequest(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
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

	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
