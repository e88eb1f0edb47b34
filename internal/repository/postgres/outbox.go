package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/invoicer/internal/domain/outbox"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/types"
)

type outboxRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewOutboxRepository(db *postgres.DB, logger *logger.Logger) outbox.Repository {
	return &outboxRepository{db: db, logger: logger}
}

const outboxColumns = `
	id, invoice_id, account_id, event_type, payload, dedupe_key, status,
	attempts, last_error, next_attempt_at, created_at, delivered_at`

func (r *outboxRepository) Create(ctx context.Context, msg *outbox.Message) error {
	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		INSERT INTO invoice_notification_outbox (`+outboxColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (dedupe_key) DO NOTHING`,
		msg.ID, msg.InvoiceID, msg.AccountID, msg.EventType, string(msg.Payload), msg.DedupeKey, msg.Status,
		msg.Attempts, msg.LastError, msg.NextAttemptAt, msg.CreatedAt, msg.DeliveredAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record notification").
			WithReportableDetails(map[string]any{"invoice_id": msg.InvoiceID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// ClaimPending must run inside a transaction for the row locks to mean anything
func (r *outboxRepository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]*outbox.Message, error) {
	var msgs []*outbox.Message
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &msgs, `
		SELECT `+outboxColumns+`
		FROM invoice_notification_outbox
		WHERE status = $1 AND next_attempt_at <= $2
		ORDER BY next_attempt_at, id
		FOR UPDATE SKIP LOCKED
		LIMIT $3`,
		types.OutboxStatusPending, now, limit,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to claim pending notifications").
			Mark(ierr.ErrDatabase)
	}
	return msgs, nil
}

func (r *outboxRepository) Get(ctx context.Context, id string) (*outbox.Message, error) {
	var msg outbox.Message
	err := r.db.GetQuerier(ctx).GetContext(ctx, &msg,
		`SELECT `+outboxColumns+` FROM invoice_notification_outbox WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Notification %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get notification").
			Mark(ierr.ErrDatabase)
	}
	return &msg, nil
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		UPDATE invoice_notification_outbox
		SET status = $2, attempts = attempts + 1, delivered_at = $3, last_error = NULL
		WHERE id = $1`,
		id, types.OutboxStatusDelivered, at,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark notification delivered").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, status types.OutboxStatus, lastError string, next time.Time) error {
	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		UPDATE invoice_notification_outbox
		SET status = $2, attempts = attempts + 1, last_error = $3, next_attempt_at = $4
		WHERE id = $1`,
		id, status, lastError, next,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record notification failure").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
