package lock

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	ierr "github.com/flexprice/invoicer/internal/errors"
)

var errHeld = errors.New("lease held by another holder")

// TryFunc makes a single attempt at a lease. It returns nil, nil when the key is held elsewhere.
type TryFunc func(ctx context.Context) (*Lease, error)

// Poll retries try with exponential backoff until a lease is granted or ctx is done.
// Running out of time is reported as ierr.ErrConcurrentInvoicing, backend failures are returned as is.
func Poll(ctx context.Context, key string, try TryFunc) (*Lease, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0

	var lease *Lease
	attempts := 0
	op := func() error {
		attempts++
		l, err := try(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return backoff.Permanent(err)
		}
		if l == nil {
			return errHeld
		}
		lease = l
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if err == nil {
		return lease, nil
	}
	if ctx.Err() != nil || errors.Is(err, errHeld) {
		return nil, ierr.NewError("lock not acquired").
			WithHint("Another invoicing run holds this account, try again later").
			WithReportableDetails(map[string]any{
				"key":      key,
				"attempts": attempts,
			}).
			Mark(ierr.ErrConcurrentInvoicing)
	}
	return nil, err
}
