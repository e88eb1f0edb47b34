package memory

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/invoicer/internal/domain/lock"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
	goCache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often lapsed leases are evicted
const DefaultCleanupInterval = time.Minute

// Locker grants leases within a single process. Lapsed leases are treated as free.
type Locker struct {
	mu     sync.Mutex
	cache  *goCache.Cache
	logger *logger.Logger
}

// NewLocker creates an in-process locker
func NewLocker(logger *logger.Logger) *Locker {
	return &Locker{
		cache:  goCache.New(goCache.NoExpiration, DefaultCleanupInterval),
		logger: logger,
	}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*lock.Lease, error) {
	return lock.Poll(ctx, key, func(context.Context) (*lock.Lease, error) {
		l.mu.Lock()
		defer l.mu.Unlock()

		token := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEASE)
		// Add fails while an unexpired lease is stored under key
		if err := l.cache.Add(key, token, ttl); err != nil {
			return nil, nil
		}

		l.logger.Debugw("lease acquired", "key", key, "token", token)
		return &lock.Lease{
			Key:       key,
			Token:     token,
			ExpiresAt: time.Now().UTC().Add(ttl),
		}, nil
	})
}

func (l *Locker) Release(_ context.Context, lease *lock.Lease) error {
	if lease == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, found := l.cache.Get(lease.Key)
	if !found || current != lease.Token {
		l.logger.Debugw("lease already gone", "key", lease.Key, "token", lease.Token)
		return nil
	}
	l.cache.Delete(lease.Key)
	l.logger.Debugw("lease released", "key", lease.Key, "token", lease.Token)
	return nil
}
