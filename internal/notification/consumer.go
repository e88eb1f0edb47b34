package notification

import (
	"github.com/ThreeDotsLabs/watermill/message"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
)

// Decode parses a notification written by a pubsub or webhook notifier
func Decode(raw []byte) (*Notification, error) {
	var env envelope
	if err := jsonAPI.Unmarshal(raw, &env); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid notification").
			Mark(ierr.ErrValidation)
	}
	if env.ID == "" || env.EventType == "" {
		return nil, ierr.NewError("notification has no id or event type").
			WithHint("Invalid notification").
			Mark(ierr.ErrValidation)
	}
	return &Notification{
		ID:         env.ID,
		EventType:  env.EventType,
		AccountID:  env.AccountID,
		InvoiceID:  env.InvoiceID,
		Payload:    env.Data,
		OccurredAt: env.OccurredAt,
	}, nil
}

// NewLogHandler consumes invoice notifications by logging them.
// Local mode runs it so that published notifications are visible without an external consumer.
func NewLogHandler(logger *logger.Logger) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		n, err := Decode(msg.Payload)
		if err != nil {
			return err
		}

		if n.EventType != types.NotificationEventInvoiceCreated {
			logger.Debugw("ignoring notification", "notification_id", n.ID, "event_type", n.EventType)
			return nil
		}

		p, err := DecodeInvoicePayload(n.Payload)
		if err != nil {
			return err
		}
		logger.Infow("invoice created",
			"notification_id", n.ID,
			"account_id", p.AccountID,
			"invoice_id", p.InvoiceID,
			"invoice_number", p.InvoiceNumber,
			"target_date", p.TargetDate,
			"amount", p.Amount.String(),
			"balance", p.Balance.String(),
			"items", p.ItemCount,
		)
		return nil
	}
}
