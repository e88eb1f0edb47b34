package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/invoicer/internal/domain/outbox"
	"github.com/flexprice/invoicer/internal/notification"
	"github.com/flexprice/invoicer/internal/types"
)

const maxRetryDelay = time.Hour

// OutboxRelay delivers committed invoice notifications at least once
type OutboxRelay interface {
	// Run delivers pending messages every poll interval until ctx is done
	Run(ctx context.Context) error

	// DeliverPending claims one batch of due messages and delivers them.
	// It returns how many were delivered.
	DeliverPending(ctx context.Context) (int, error)

	// Deliver sends one message and records the outcome
	Deliver(ctx context.Context, msg *outbox.Message) error
}

type outboxRelay struct {
	ServiceParams
	now func() time.Time
}

func NewOutboxRelay(params ServiceParams) OutboxRelay {
	return &outboxRelay{
		ServiceParams: params,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (r *outboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Config.Outbox.PollInterval)
	defer ticker.Stop()

	r.Logger.Infow("outbox relay started",
		"poll_interval", r.Config.Outbox.PollInterval.String(),
		"batch_size", r.Config.Outbox.BatchSize,
	)
	for {
		select {
		case <-ctx.Done():
			r.Logger.Infow("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.DeliverPending(ctx); err != nil {
				r.Logger.Errorw("outbox relay pass failed", "error", err)
			}
		}
	}
}

// DeliverPending holds the claimed rows locked for the whole pass so that
// concurrent relays skip them instead of sending duplicates
func (r *outboxRelay) DeliverPending(ctx context.Context) (int, error) {
	delivered := 0
	err := r.DB.WithTx(ctx, func(txCtx context.Context) error {
		msgs, err := r.OutboxRepo.ClaimPending(txCtx, r.now(), r.Config.Outbox.BatchSize)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := r.Deliver(txCtx, msg); err == nil {
				delivered++
			}
		}
		return nil
	})
	if err != nil {
		return delivered, err
	}

	if delivered > 0 {
		r.Logger.Debugw("outbox relay pass", "delivered", delivered)
	}
	return delivered, nil
}

func (r *outboxRelay) Deliver(ctx context.Context, msg *outbox.Message) error {
	n := &notification.Notification{
		ID:         msg.DedupeKey,
		EventType:  types.NotificationEventType(msg.EventType),
		AccountID:  msg.AccountID,
		InvoiceID:  msg.InvoiceID,
		Payload:    msg.Payload,
		OccurredAt: msg.CreatedAt,
	}

	notifyErr := r.Notifier.Notify(ctx, n)
	if notifyErr == nil {
		msg.Status = types.OutboxStatusDelivered
		msg.Attempts++
		at := r.now()
		msg.DeliveredAt = &at
		return r.OutboxRepo.MarkDelivered(ctx, msg.ID, at)
	}

	attempts := msg.Attempts + 1
	status := types.OutboxStatusPending
	if attempts >= r.Config.Outbox.MaxAttempts {
		status = types.OutboxStatusFailed
	}
	next := r.now().Add(r.retryDelay(attempts))

	log := r.Logger.With(
		"outbox_id", msg.ID,
		"invoice_id", msg.InvoiceID,
		"account_id", msg.AccountID,
		"attempts", attempts,
	)
	if status == types.OutboxStatusFailed {
		log.Errorw("giving up on invoice notification", "error", notifyErr)
		r.Sentry.CaptureException(notifyErr)
	} else {
		log.Warnw("invoice notification failed", "error", notifyErr, "next_attempt_at", next)
	}

	if err := r.OutboxRepo.MarkFailed(ctx, msg.ID, status, notifyErr.Error(), next); err != nil {
		return err
	}
	msg.Status = status
	msg.Attempts = attempts
	msg.NextAttemptAt = next
	return notifyErr
}

// retryDelay grows exponentially from the poll interval with the attempt count
func (r *outboxRelay) retryDelay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.Config.Outbox.PollInterval
	b.RandomizationFactor = 0
	b.MaxInterval = maxRetryDelay
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
