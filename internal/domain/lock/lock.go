package lock

import (
	"context"
	"fmt"
	"time"
)

// Lease is a held lock. Token identifies the holder so that only it can release the lease.
type Lease struct {
	Key       string    `json:"key"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lease lapsed at now
func (l *Lease) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !now.Before(l.ExpiresAt)
}

// Locker grants mutually exclusive leases on keys
type Locker interface {
	// Acquire blocks until the lease is granted or ctx is done.
	// A lease that is not released lapses after ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)

	// Release gives the lease up. Releasing a lapsed or foreign lease is a no-op.
	Release(ctx context.Context, lease *Lease) error
}

// AccountInvoicingKey is the lock serializing invoicing runs of one account
func AccountInvoicingKey(accountID string) string {
	return fmt.Sprintf("invoicing:account:%s", accountID)
}
