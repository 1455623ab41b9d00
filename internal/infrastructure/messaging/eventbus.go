// Package messaging carries domain events between the reconciliation
// worker and its out-of-band handlers. A run publishes what happened
// (run completed, trainee at risk, reviewer inactive) and subscribers
// react without blocking the run. Two buses are provided: an in-memory
// one for the single-process setup and a Redis Pub/Sub one for when the
// worker and the read side run separately.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	errNilEvent   = errors.New("event cannot be nil")
	errNilHandler = errors.New("handler cannot be nil")
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on the worker pool instead of inline.
	AsyncMode bool

	// WorkerPoolSize bounds concurrent handler executions in async mode.
	WorkerPoolSize int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
	}
}

// InMemoryEventBus delivers events to handlers within one process.
// The worker normally runs as a single instance, so this is the
// default bus.
type InMemoryEventBus struct {
	mu      sync.RWMutex
	subs    map[shared.EventType][]shared.EventHandler
	anySubs []shared.EventHandler
	closed  bool

	async  bool
	sem    chan struct{}
	done   chan struct{}
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}
	return &InMemoryEventBus{
		subs:   make(map[shared.EventType][]shared.EventHandler),
		async:  config.AsyncMode,
		sem:    make(chan struct{}, config.WorkerPoolSize),
		done:   make(chan struct{}),
		logger: config.Logger,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.subs[eventType] = append(b.subs[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// SubscribeAll registers a handler that receives every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.anySubs = append(b.anySubs, handler)
	return nil
}

// Publish delivers an event to every matching handler. In async mode
// the call returns before the handlers run. Handler errors are logged,
// never returned: one broken subscriber must not fail the run that
// published the event.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	targets := make([]shared.EventHandler, 0, len(b.subs[event.EventType()])+len(b.anySubs))
	targets = append(targets, b.subs[event.EventType()]...)
	targets = append(targets, b.anySubs...)
	b.mu.RUnlock()

	if len(targets) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	for _, h := range targets {
		if b.async {
			b.spawn(event, h)
		} else if err := h(event); err != nil {
			b.logger.Error("handler error", "event_type", event.EventType(), "error", err)
		}
	}
	return nil
}

func (b *InMemoryEventBus) spawn(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		select {
		case b.sem <- struct{}{}:
			defer func() { <-b.sem }()
		case <-b.done:
			return
		}

		start := time.Now()
		if err := handler(event); err != nil {
			b.logger.Error("async handler error",
				"event_type", event.EventType(),
				"duration", time.Since(start),
				"error", err,
			)
		}
	}()
}

// Close shuts the bus down after draining in-flight handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("event bus closed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisClient is the pub/sub surface the bus needs from Redis.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage is one message received from Redis Pub/Sub.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	// Client is the Redis pub/sub client.
	Client RedisClient

	// ChannelName is the Redis channel for events (default: "trainee-tracker:events").
	ChannelName string

	// InstanceID identifies this process so it can skip its own messages.
	InstanceID string

	// LocalBusConfig configures the in-memory bus behind this one.
	LocalBusConfig InMemoryEventBusConfig

	// Logger for structured logging.
	Logger *slog.Logger
}

// RedisEventBus fans events out over Redis Pub/Sub in addition to the
// local in-memory bus, so a separately deployed read side sees run
// events too (for instance to drop its report cache on run.completed).
type RedisEventBus struct {
	client  RedisClient
	local   *InMemoryEventBus
	channel string
	selfID  string
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRedisEventBus creates a Redis-backed event bus and starts its
// subscription loop.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = "trainee-tracker:events"
	}
	if config.InstanceID == "" {
		config.InstanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:  config.Client,
		local:   NewInMemoryEventBus(config.LocalBusConfig),
		channel: config.ChannelName,
		selfID:  config.InstanceID,
		logger:  config.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	messages, err := bus.client.Subscribe(ctx, bus.channel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start subscriber: %w", err)
	}

	bus.wg.Add(1)
	go bus.receive(messages)

	return bus, nil
}

// Subscribe registers a handler for a specific event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler that receives every event.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// wireEvent is the serialized form an event travels over Redis in.
type wireEvent struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// Publish sends the event over Redis and to local handlers. A Redis
// failure degrades to local-only delivery rather than losing the event.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := json.Marshal(wireEvent{
		InstanceID:  b.selfID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.client.Publish(b.ctx, b.channel, string(data)); err != nil {
		b.logger.Error("failed to publish to redis", "error", err)
	}

	return b.local.Publish(event)
}

func (b *RedisEventBus) receive(messages <-chan RedisMessage) {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.logger.Error("redis subscription error", "error", msg.Err)
				continue
			}

			var wire wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
				b.logger.Error("failed to unmarshal event", "error", err)
				continue
			}
			if wire.InstanceID == b.selfID {
				// Свои события уже прошли через локальную шину.
				continue
			}

			remote := remoteEvent{wire: wire}
			if err := b.local.Publish(remote); err != nil {
				b.logger.Error("failed to process remote event", "error", err)
			}
		}
	}
}

// Close stops the subscription loop and drains the local bus.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	if err := b.local.Close(); err != nil {
		b.logger.Error("failed to close local bus", "error", err)
	}
	b.logger.Info("redis event bus closed")
	return nil
}

// remoteEvent re-implements shared.Event for messages that arrived over
// Redis. The typed payload is gone after serialization, handlers that
// need it read the payload map.
type remoteEvent struct {
	wire wireEvent
}

func (e remoteEvent) EventType() shared.EventType     { return e.wire.EventType }
func (e remoteEvent) AggregateID() string             { return e.wire.AggregateID }
func (e remoteEvent) OccurredAt() time.Time           { return e.wire.OccurredAt }
func (e remoteEvent) Payload() map[string]interface{} { return e.wire.Payload }
