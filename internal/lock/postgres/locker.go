package postgres

import (
	"context"
	"database/sql/driver"
	"hash/fnv"
	"sync"
	"time"

	"github.com/flexprice/invoicer/internal/domain/lock"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/jmoiron/sqlx"
)

// Locker grants leases as postgres session advisory locks, so every process sharing
// the database is serialized. A lease lives as long as the connection holding it,
// which is returned to the pool on release. The ttl is informational.
type Locker struct {
	db     *postgres.DB
	logger *logger.Logger

	mu   sync.Mutex
	held map[string]*sqlx.Conn
}

// NewLocker creates a postgres advisory locker
func NewLocker(db *postgres.DB, logger *logger.Logger) *Locker {
	return &Locker{
		db:     db,
		logger: logger,
		held:   make(map[string]*sqlx.Conn),
	}
}

// advisoryKey maps a lock key onto the bigint keyspace of advisory locks
func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*lock.Lease, error) {
	return lock.Poll(ctx, key, func(ctx context.Context) (*lock.Lease, error) {
		conn, err := l.db.Connx(ctx)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Could not reach the lock database").
				Mark(ierr.ErrDatabase)
		}

		var ok bool
		if err := conn.QueryRowxContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryKey(key)).Scan(&ok); err != nil {
			_ = conn.Close()
			return nil, ierr.WithError(err).
				WithHint("Could not take the advisory lock").
				WithReportableDetails(map[string]any{"key": key}).
				Mark(ierr.ErrDatabase)
		}
		if !ok {
			_ = conn.Close()
			return nil, nil
		}

		lease := &lock.Lease{
			Key:       key,
			Token:     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEASE),
			ExpiresAt: time.Now().UTC().Add(ttl),
		}

		l.mu.Lock()
		l.held[lease.Token] = conn
		l.mu.Unlock()

		l.logger.Debugw("advisory lock acquired", "key", key, "token", lease.Token)
		return lease, nil
	})
}

func (l *Locker) Release(ctx context.Context, lease *lock.Lease) error {
	if lease == nil {
		return nil
	}

	l.mu.Lock()
	conn, ok := l.held[lease.Token]
	delete(l.held, lease.Token)
	l.mu.Unlock()

	if !ok {
		return nil
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryKey(lease.Key)); err != nil {
		l.logger.Warnw("failed to unlock advisory lock, discarding connection",
			"key", lease.Key,
			"error", err,
		)
		// a discarded session drops its advisory locks
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	}
	l.logger.Debugw("advisory lock released", "key", lease.Key, "token", lease.Token)
	return nil
}
