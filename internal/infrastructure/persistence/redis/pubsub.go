package redis

import (
	"context"

	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUB/SUB ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// PubSubAdapter adapts the Redis client to the messaging.RedisClient
// interface used by the Redis event bus.
type PubSubAdapter struct {
	cache *Cache
}

// NewPubSubAdapter creates a new PubSubAdapter.
func NewPubSubAdapter(cache *Cache) *PubSubAdapter {
	return &PubSubAdapter{cache: cache}
}

// Publish sends a message to a Redis channel.
func (a *PubSubAdapter) Publish(ctx context.Context, channel string, message interface{}) error {
	return a.cache.Client().Publish(ctx, channel, message).Err()
}

// Subscribe subscribes to Redis channels and streams messages until the
// context is cancelled.
func (a *PubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	sub := a.cache.Client().Subscribe(ctx, channels...)

	// Wait for the subscription to be confirmed before streaming.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- messaging.RedisMessage{
					Channel: msg.Channel,
					Payload: msg.Payload,
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the underlying client is owned by the Cache.
func (a *PubSubAdapter) Close() error {
	return nil
}
