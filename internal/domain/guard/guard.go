package guard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Default ceilings and lock lifetimes
const (
	DefaultMaxPerMinute  = 20
	DefaultMaxPerHour    = 100
	DefaultLocalLockTTL  = 30 * time.Second
	DefaultRemoteLockTTL = 300 * time.Second
	DefaultReleaseDelay  = 5 * time.Second
	counterWindowMinute  = time.Minute
	counterWindowHour    = time.Hour
)

// Guard vetoes writes that would ping-pong between the store and the
// CRM. It combines per-entity frequency ceilings with a short-lived
// per-entity lock. Decisions fail open: an internal fault never blocks
// a sync.
type Guard struct {
	locks         LockStore
	counters      CounterStore
	maxPerMinute  int64
	maxPerHour    int64
	localLockTTL  time.Duration
	remoteLockTTL time.Duration
	releaseDelay  time.Duration
	logger        *zap.Logger
}

// Option configures the guard
type Option func(*Guard)

// WithCeilings overrides the per-minute and per-hour update ceilings
func WithCeilings(perMinute, perHour int64) Option {
	return func(g *Guard) {
		g.maxPerMinute = perMinute
		g.maxPerHour = perHour
	}
}

// WithLockTTLs overrides the per-source lock lifetimes
func WithLockTTLs(local, remote time.Duration) Option {
	return func(g *Guard) {
		g.localLockTTL = local
		g.remoteLockTTL = remote
	}
}

// WithReleaseDelay overrides the delay before a scheduled lock release
func WithReleaseDelay(delay time.Duration) Option {
	return func(g *Guard) { g.releaseDelay = delay }
}

// WithLogger installs a logger, zap.NewNop by default
func WithLogger(logger *zap.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// New creates a guard over the given stores
func New(locks LockStore, counters CounterStore, opts ...Option) *Guard {
	g := &Guard{
		locks:         locks,
		counters:      counters,
		maxPerMinute:  DefaultMaxPerMinute,
		maxPerHour:    DefaultMaxPerHour,
		localLockTTL:  DefaultLocalLockTTL,
		remoteLockTTL: DefaultRemoteLockTTL,
		releaseDelay:  DefaultReleaseDelay,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BeforeSync decides whether an incoming write may proceed. The
// decision fails open: any store fault yields allow.
func (g *Guard) BeforeSync(ctx context.Context, entityType, entityID string, incoming Source) bool {
	minuteKey := counterKey(entityType, entityID, "minute")
	hourKey := counterKey(entityType, entityID, "hour")

	minuteCount, err := g.counters.Get(ctx, minuteKey)
	if err != nil {
		g.logger.Warn("frequency counter unavailable, allowing sync",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
		return true
	}
	hourCount, err := g.counters.Get(ctx, hourKey)
	if err != nil {
		g.logger.Warn("frequency counter unavailable, allowing sync",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
		return true
	}

	if minuteCount >= g.maxPerMinute || hourCount >= g.maxPerHour {
		g.logger.Info("update frequency ceiling reached, denying sync",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Int64("minute_count", minuteCount),
			zap.Int64("hour_count", hourCount))
		return false
	}

	if _, err := g.counters.Increment(ctx, minuteKey, counterWindowMinute); err != nil {
		g.logger.Warn("frequency counter increment failed", zap.Error(err))
	}
	if _, err := g.counters.Increment(ctx, hourKey, counterWindowHour); err != nil {
		g.logger.Warn("frequency counter increment failed", zap.Error(err))
	}

	lock, err := g.locks.Get(ctx, entityType, entityID)
	if err != nil {
		g.logger.Warn("lock store unavailable, allowing sync",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
		return true
	}
	if lock == nil {
		return true
	}
	if lock.Source == incoming {
		// self-write is never a loop
		return true
	}

	g.logger.Info("update lock held by other source, denying sync",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("holder", lock.Source.String()),
		zap.String("incoming", incoming.String()))
	return false
}

// AfterSync records the outcome of a completed sync. Locks are released
// separately on a timer, never here.
func (g *Guard) AfterSync(ctx context.Context, entityType, entityID string, source Source, success bool, recorder SyncStateRecorder) {
	if !success || recorder == nil {
		return
	}
	if err := recorder.RecordSync(ctx, entityType, entityID, source); err != nil {
		g.logger.Warn("recording sync state failed",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// AcquireLock takes or refreshes the entity lock for the source. It
// returns false when a different source currently holds the lock.
func (g *Guard) AcquireLock(ctx context.Context, entityType, entityID string, source Source) (bool, error) {
	ttl := g.localLockTTL
	if source == SourceRemote {
		ttl = g.remoteLockTTL
	}
	return g.locks.Acquire(ctx, entityType, entityID, source, ttl)
}

// ReleaseLockAfter schedules a lock release once the configured delay
// has elapsed. The delay absorbs echo notifications that local change
// hooks fire synchronously after a save.
func (g *Guard) ReleaseLockAfter(entityType, entityID string) {
	time.AfterFunc(g.releaseDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.locks.Release(ctx, entityType, entityID); err != nil {
			g.logger.Warn("scheduled lock release failed",
				zap.String("entity_type", entityType),
				zap.String("entity_id", entityID),
				zap.Error(err))
		}
	})
}

func counterKey(entityType, entityID, window string) string {
	return fmt.Sprintf("%s:%s:%s", entityType, entityID, window)
}
