package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/crmsync/backend/internal/domain/guard"
	"github.com/crmsync/backend/internal/infrastructure/config"
)

// GuardStoreFactory creates the update-lock and frequency-counter
// stores based on configuration
type GuardStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// GuardStoreFactoryOption is a functional option for configuring the factory
type GuardStoreFactoryOption func(*GuardStoreFactory)

// WithFactoryLogger sets the logger for the factory
func WithFactoryLogger(logger *zap.Logger) GuardStoreFactoryOption {
	return func(f *GuardStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) GuardStoreFactoryOption {
	return func(f *GuardStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewGuardStoreFactory creates a new factory
func NewGuardStoreFactory(cfg config.RedisConfig, opts ...GuardStoreFactoryOption) *GuardStoreFactory {
	f := &GuardStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStores creates Redis-backed lock and counter stores
// sharing one client
func (f *GuardStoreFactory) CreateRedisStores() (guard.LockStore, guard.CounterStore, error) {
	lockStore, err := NewRedisLockStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Redis lock store: %w", err)
	}

	counterStore := NewRedisCounterStoreWithClient(lockStore.client, "")
	return lockStore, counterStore, nil
}

// CreateInMemoryStores creates in-memory lock and counter stores.
// WARNING: in-memory stores do not share state across process
// instances, which weakens loop prevention in distributed deployments.
func (f *GuardStoreFactory) CreateInMemoryStores() (guard.LockStore, guard.CounterStore) {
	return NewInMemoryLockStore(), NewInMemoryCounterStore()
}

// CreateStores tries Redis first and falls back to in-memory stores
// when Redis is unavailable and the fallback is allowed
func (f *GuardStoreFactory) CreateStores() (guard.LockStore, guard.CounterStore, error) {
	lockStore, counterStore, err := f.CreateRedisStores()
	if err == nil {
		f.logger.Info("using Redis guard stores")
		return lockStore, counterStore, nil
	}

	if !f.allowInMemoryFallback {
		return nil, nil, fmt.Errorf("Redis required for guard stores but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory guard stores. "+
		"Loop prevention will not be shared across instances.",
		zap.Error(err),
	)
	lockStore2, counterStore2 := f.CreateInMemoryStores()
	return lockStore2, counterStore2, nil
}
