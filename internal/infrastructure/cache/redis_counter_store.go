package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crmsync/backend/internal/domain/guard"
)

// RedisCounterStore implements guard.CounterStore on Redis. Counter
// keys expire with their window; expiry resets the count.
type RedisCounterStore struct {
	client    *redis.Client
	keyPrefix string
}

// incrementScript bumps the counter and sets the window TTL only on
// first increment, so the window never slides.
var incrementScript = redis.NewScript(`
local value = redis.call("INCR", KEYS[1])
if value == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return value
`)

// NewRedisCounterStoreWithClient creates a store with an existing Redis client
func NewRedisCounterStoreWithClient(client *redis.Client, keyPrefix string) *RedisCounterStore {
	if keyPrefix == "" {
		keyPrefix = "sync:counter:"
	}
	return &RedisCounterStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Increment bumps the counter, starting the window on first increment
func (s *RedisCounterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	value, err := incrementScript.Run(ctx, s.client,
		[]string{s.keyPrefix + key}, window.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return value, nil
}

// Get returns the current count, zero when absent or expired
func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return value, nil
}

// Ensure RedisCounterStore implements guard.CounterStore
var _ guard.CounterStore = (*RedisCounterStore)(nil)
