// Package handlers contains the health check machinery behind the
// /health and /ready endpoints.
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// HealthChecker is what the server needs to answer health probes.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc probes a single dependency. A nil error means healthy.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the aggregated answer to a health probe.
type HealthStatus struct {
	// Healthy is the overall verdict.
	Healthy bool `json:"healthy"`

	// Ready reports whether the service should receive traffic.
	Ready bool `json:"ready"`

	// Message summarizes the verdict.
	Message string `json:"message,omitempty"`

	// Checks holds the per-dependency results.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Uptime is how long the service has been running.
	Uptime string `json:"uptime,omitempty"`

	// Timestamp is when the probe ran.
	Timestamp time.Time `json:"timestamp"`

	// Version is the service version.
	Version string `json:"version,omitempty"`
}

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Healthy     bool      `json:"healthy"`
	Message     string    `json:"message,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// CompositeHealthChecker probes every registered dependency in parallel
// and reports unhealthy if any of them fails.
type CompositeHealthChecker struct {
	mu      sync.RWMutex
	probes  map[string]HealthCheckFunc
	started time.Time
	version string
	timeout time.Duration
}

// NewCompositeHealthChecker creates a checker with no probes registered.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		probes:  make(map[string]HealthCheckFunc),
		started: time.Now(),
		version: version,
		timeout: 5 * time.Second,
	}
}

// SetTimeout overrides the per-probe timeout.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// AddCheck registers a named dependency probe.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = check
}

// Check runs every probe and aggregates the results.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	probes := make(map[string]HealthCheckFunc, len(c.probes))
	for name, probe := range c.probes {
		probes[name] = probe
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(probes)),
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}
	if len(probes) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make(map[string]CheckResult, len(probes))
	)
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe HealthCheckFunc) {
			defer wg.Done()
			result := c.runProbe(ctx, probe)
			resMu.Lock()
			results[name] = result
			resMu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	var failed []string
	for name, result := range results {
		status.Checks[name] = result
		if !result.Healthy {
			status.Healthy = false
			status.Ready = false
			failed = append(failed, name)
		}
	}

	if status.Healthy {
		status.Message = "All checks passed"
	} else {
		sort.Strings(failed)
		status.Message = "Some checks failed: " + strings.Join(failed, ", ")
	}
	return status
}

func (c *CompositeHealthChecker) runProbe(ctx context.Context, probe HealthCheckFunc) CheckResult {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := probe(probeCtx)

	result := CheckResult{
		Healthy:     err == nil,
		Message:     "OK",
		Duration:    time.Since(start).Round(time.Millisecond).String(),
		LastChecked: time.Now().UTC(),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCY PROBES
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is a dependency that answers a ping (the Postgres pool and the
// Redis cache both do).
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck probes the snapshot database.
func NewDatabaseCheck(db Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return db.Ping(ctx)
	}
}

// NewCacheCheck probes the report cache.
func NewCacheCheck(cache Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return cache.Ping(ctx)
	}
}

// ExternalAPIChecker is a client that reports its own health (the GitHub
// and register feed clients).
type ExternalAPIChecker interface {
	IsHealthy(ctx context.Context) bool
}

// NewExternalAPICheck probes an external API through its client.
func NewExternalAPICheck(name string, api ExternalAPIChecker) HealthCheckFunc {
	return func(ctx context.Context) error {
		if !api.IsHealthy(ctx) {
			return fmt.Errorf("%s is unreachable", name)
		}
		return nil
	}
}
