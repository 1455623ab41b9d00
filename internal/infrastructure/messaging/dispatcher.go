package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher sits between the event bus and the notification handlers.
// It retries failed handlers with exponential backoff and parks events
// whose handlers keep failing in a dead letter queue: a flaky staff
// webhook must not silently drop a trainee-at-risk event.
type Dispatcher struct {
	bus     shared.EventBus
	retries RetryConfig
	dlq     *DeadLetterQueue
	logger  *slog.Logger

	mu          sync.RWMutex
	routes      map[shared.EventType][]route
	middlewares []Middleware

	stopped chan struct{}
	once    sync.Once
}

type route struct {
	name       string
	handler    shared.EventHandler
	maxRetries int
	timeout    time.Duration
}

// RetryConfig controls how failed handlers are retried.
type RetryConfig struct {
	// MaxRetries is the default retry attempt count per handler.
	MaxRetries int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the wait on each attempt.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// EventBus is the bus the dispatcher listens on.
	EventBus shared.EventBus

	// RetryConfig configures retry behavior.
	RetryConfig RetryConfig

	// EnableDeadLetterQueue keeps exhausted events for inspection.
	EnableDeadLetterQueue bool

	// DeadLetterQueueSize caps the dead letter queue.
	DeadLetterQueueSize int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig(eventBus shared.EventBus) DispatcherConfig {
	return DispatcherConfig{
		EventBus:              eventBus,
		RetryConfig:           DefaultRetryConfig(),
		EnableDeadLetterQueue: true,
		DeadLetterQueueSize:   1000,
	}
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	d := &Dispatcher{
		bus:     config.EventBus,
		retries: config.RetryConfig,
		logger:  config.Logger,
		routes:  make(map[shared.EventType][]route),
		stopped: make(chan struct{}),
	}
	if config.EnableDeadLetterQueue {
		d.dlq = NewDeadLetterQueue(config.DeadLetterQueueSize)
	}
	return d
}

// Register binds a named handler to an event type.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}
	if name == "" {
		return errors.New("handler name cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.routes[eventType] = append(d.routes[eventType], route{
		name:       name,
		handler:    handler,
		maxRetries: d.retries.MaxRetries,
		timeout:    30 * time.Second,
	})
	d.logger.Debug("registered handler", "event_type", eventType, "handler_name", name)
	return nil
}

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// Use adds middleware to the dispatcher. Middleware wraps every handler
// in registration-reverse order.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// Start subscribes the dispatcher to the bus.
func (d *Dispatcher) Start() error {
	return d.bus.SubscribeAll(d.Dispatch)
}

// Stop halts retry waits in progress. Registered handlers stay in place
// so a restart can resume.
func (d *Dispatcher) Stop() error {
	d.once.Do(func() { close(d.stopped) })
	d.logger.Info("dispatcher stopped")
	return nil
}

// DeadLetterQueue returns the dead letter queue, nil when disabled.
func (d *Dispatcher) DeadLetterQueue() *DeadLetterQueue {
	return d.dlq
}

// ══════════════════════════════════════════════════════════════════════════════
// DELIVERY
// ══════════════════════════════════════════════════════════════════════════════

// Dispatch routes one event through every handler registered for its
// type. It returns the first delivery error after retries, the rest are
// still attempted.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	d.mu.RLock()
	targets := d.routes[event.EventType()]
	chain := d.middlewares
	d.mu.RUnlock()

	var firstErr error
	for _, r := range targets {
		if err := d.deliver(event, r, chain); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Dispatcher) deliver(event shared.Event, r route, chain []Middleware) error {
	handler := r.handler
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			wait := d.backoff(attempt)
			d.logger.Debug("retrying handler", "handler", r.name, "attempt", attempt, "backoff", wait)
			select {
			case <-d.stopped:
				return errors.New("dispatcher stopped")
			case <-time.After(wait):
			}
		}

		lastErr = d.withTimeout(handler, event, r.timeout)
		if lastErr == nil {
			return nil
		}
		d.logger.Warn("handler attempt failed", "handler", r.name, "attempt", attempt, "error", lastErr)
	}

	if d.dlq != nil {
		d.dlq.Add(DeadLetterEntry{
			Event:       event,
			HandlerName: r.name,
			Error:       lastErr,
			Attempts:    r.maxRetries + 1,
			FailedAt:    time.Now(),
		})
	}
	return fmt.Errorf("handler %s failed after %d attempts: %w", r.name, r.maxRetries+1, lastErr)
}

func (d *Dispatcher) withTimeout(handler shared.EventHandler, event shared.Event, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- handler(event) }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("handler timeout after %v", timeout)
	case <-d.stopped:
		return errors.New("dispatcher stopped")
	}
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	wait := float64(d.retries.InitialBackoff)
	for i := 1; i < attempt; i++ {
		wait *= d.retries.BackoffMultiplier
	}
	if limit := float64(d.retries.MaxBackoff); wait > limit {
		wait = limit
	}
	return time.Duration(wait)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE IMPLEMENTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryMiddleware turns handler panics into errors.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic recovered",
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs handler execution with duration.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			if err != nil {
				logger.Error("handler failed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", time.Since(start),
					"error", err,
				)
				return err
			}
			logger.Debug("handler completed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"duration", time.Since(start),
			)
			return nil
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry is one event a handler gave up on.
type DeadLetterEntry struct {
	Event       shared.Event
	HandlerName string
	Error       error
	Attempts    int
	FailedAt    time.Time
}

// DeadLetterQueue keeps the most recent failed deliveries. Oldest
// entries are dropped when the queue is full.
type DeadLetterQueue struct {
	mu      sync.RWMutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a dead letter queue with the given capacity.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &DeadLetterQueue{maxSize: maxSize}
}

// Add records a failed delivery.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries returns a copy of the queued entries, oldest first.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]DeadLetterEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Size returns the number of queued entries.
func (q *DeadLetterQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// Clear drops all queued entries.
func (q *DeadLetterQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}
