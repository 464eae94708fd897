package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crmsync/backend/internal/domain/guard"
)

// RedisLockStore implements guard.LockStore on Redis. Suitable for
// deployments where several instances must share update-lock state.
// Expiry is native: the key TTL is the lock TTL.
type RedisLockStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// acquireScript takes or refreshes the lock atomically: absent or
// same-holder keys are (re)set with the TTL, a different holder wins.
var acquireScript = redis.NewScript(`
local holder = redis.call("GET", KEYS[1])
if holder == false or holder == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return 0
`)

// NewRedisLockStore creates a Redis-backed lock store
func NewRedisLockStore(cfg RedisConfig) (*RedisLockStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisLockStore{
		client:    client,
		keyPrefix: "sync:lock:",
	}, nil
}

// NewRedisLockStoreWithClient creates a store with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisLockStoreWithClient(client *redis.Client, keyPrefix string) *RedisLockStore {
	if keyPrefix == "" {
		keyPrefix = "sync:lock:"
	}
	return &RedisLockStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisLockStore) key(entityType, entityID string) string {
	return s.keyPrefix + entityType + ":" + entityID
}

// Get returns the live lock, nil when absent or expired
func (s *RedisLockStore) Get(ctx context.Context, entityType, entityID string) (*guard.Lock, error) {
	key := s.key(entityType, entityID)

	holder, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read lock ttl: %w", err)
	}
	if ttl <= 0 {
		// expired between GET and PTTL
		return nil, nil
	}

	return &guard.Lock{
		EntityType: entityType,
		EntityID:   entityID,
		Source:     guard.Source(holder),
		AcquiredAt: time.Now(), // Redis owns expiry, the timestamp is informational
		TTL:        ttl,
	}, nil
}

// Acquire takes or refreshes the lock atomically
func (s *RedisLockStore) Acquire(ctx context.Context, entityType, entityID string, source guard.Source, ttl time.Duration) (bool, error) {
	result, err := acquireScript.Run(ctx, s.client,
		[]string{s.key(entityType, entityID)},
		source.String(), ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return result == 1, nil
}

// Release drops the lock regardless of holder
func (s *RedisLockStore) Release(ctx context.Context, entityType, entityID string) error {
	if err := s.client.Del(ctx, s.key(entityType, entityID)).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection
func (s *RedisLockStore) Close() error {
	return s.client.Close()
}

// Ensure RedisLockStore implements guard.LockStore
var _ guard.LockStore = (*RedisLockStore)(nil)
