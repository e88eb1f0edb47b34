package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Notification is one message to an external system. ID is stable across redeliveries
// so receivers can drop duplicates.
type Notification struct {
	ID         string
	EventType  types.NotificationEventType
	AccountID  string
	InvoiceID  string
	Payload    json.RawMessage
	OccurredAt time.Time
}

// Notifier delivers notifications to their sink
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// InvoicePayload is the body of an invoice.created notification
type InvoicePayload struct {
	InvoiceID     string          `json:"invoice_id"`
	AccountID     string          `json:"account_id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"`
	TargetDate    string          `json:"target_date"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	CreditAmount  decimal.Decimal `json:"credit_amount"`
	ItemCount     int             `json:"item_count"`
}

// NewInvoicePayload summarizes an invoice for its notification
func NewInvoicePayload(inv *invoice.Invoice) *InvoicePayload {
	return &InvoicePayload{
		InvoiceID:     inv.ID,
		AccountID:     inv.AccountID,
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   inv.InvoiceDate.Format(time.DateOnly),
		TargetDate:    inv.TargetDate.Format(time.DateOnly),
		Currency:      inv.Currency,
		Amount:        inv.ChargedAmount(),
		Balance:       inv.Balance(),
		CreditAmount:  inv.CBAAmount(),
		ItemCount:     len(inv.Items),
	}
}

// EncodePayload marshals a notification payload
func EncodePayload(v any) (json.RawMessage, error) {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode notification payload").
			Mark(ierr.ErrSystem)
	}
	return b, nil
}

// DecodeInvoicePayload parses the body of an invoice.created notification
func DecodeInvoicePayload(raw []byte) (*InvoicePayload, error) {
	var p InvoicePayload
	if err := jsonAPI.Unmarshal(raw, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid invoice notification payload").
			Mark(ierr.ErrValidation)
	}
	return &p, nil
}

// envelope is the wire format shared by every sink
type envelope struct {
	ID         string                      `json:"id"`
	EventType  types.NotificationEventType `json:"event_type"`
	AccountID  string                      `json:"account_id"`
	InvoiceID  string                      `json:"invoice_id"`
	OccurredAt time.Time                   `json:"occurred_at"`
	Data       json.RawMessage             `json:"data"`
}

func (n *Notification) marshal() ([]byte, error) {
	return jsonAPI.Marshal(envelope{
		ID:         n.ID,
		EventType:  n.EventType,
		AccountID:  n.AccountID,
		InvoiceID:  n.InvoiceID,
		OccurredAt: n.OccurredAt,
		Data:       n.Payload,
	})
}
