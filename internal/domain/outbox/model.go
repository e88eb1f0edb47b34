package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flexprice/invoicer/internal/types"
)

// Message is a notification recorded in the same transaction as the invoice it announces
// and delivered at least once afterwards. DedupeKey lets receivers drop redeliveries.
type Message struct {
	ID            string             `json:"id" db:"id"`
	InvoiceID     string             `json:"invoice_id" db:"invoice_id"`
	AccountID     string             `json:"account_id" db:"account_id"`
	EventType     string             `json:"event_type" db:"event_type"`
	Payload       json.RawMessage    `json:"payload" db:"payload"`
	DedupeKey     string             `json:"dedupe_key" db:"dedupe_key"`
	Status        types.OutboxStatus `json:"status" db:"status"`
	Attempts      int                `json:"attempts" db:"attempts"`
	LastError     *string            `json:"last_error,omitempty" db:"last_error"`
	NextAttemptAt time.Time          `json:"next_attempt_at" db:"next_attempt_at"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	DeliveredAt   *time.Time         `json:"delivered_at,omitempty" db:"delivered_at"`
}

// Repository stores outbox messages
type Repository interface {
	// Create stores the message, within the caller's transaction when one is in ctx.
	// A message whose dedupe key already exists is ignored.
	Create(ctx context.Context, msg *Message) error

	// ClaimPending returns up to limit pending messages due at now, locking them
	// against concurrent relays until the surrounding transaction ends.
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]*Message, error)

	// Get returns one message by id
	Get(ctx context.Context, id string) (*Message, error)

	// MarkDelivered records a successful delivery
	MarkDelivered(ctx context.Context, id string, at time.Time) error

	// MarkFailed records a failed attempt. The message stays pending until next
	// unless status says it was given up.
	MarkFailed(ctx context.Context, id string, status types.OutboxStatus, lastError string, next time.Time) error
}
