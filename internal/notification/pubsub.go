package notification

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/kafka"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/pubsub"
)

type pubSubNotifier struct {
	pubSub pubsub.PubSub
	topic  string
	logger *logger.Logger
}

// NewPubSubNotifier publishes notifications to topic. The watermill message id is the notification id.
func NewPubSubNotifier(pubSub pubsub.PubSub, topic string, logger *logger.Logger) Notifier {
	return &pubSubNotifier{
		pubSub: pubSub,
		topic:  topic,
		logger: logger,
	}
}

func (p *pubSubNotifier) Notify(ctx context.Context, n *Notification) error {
	body, err := n.marshal()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode notification").
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(n.ID, body)
	msg.Metadata.Set("event_type", string(n.EventType))
	msg.Metadata.Set("account_id", n.AccountID)
	msg.Metadata.Set("invoice_id", n.InvoiceID)
	msg.Metadata.Set(kafka.PartitionKeyMetadata, n.AccountID)

	if err := p.pubSub.Publish(ctx, p.topic, msg); err != nil {
		p.logger.Errorw("failed to publish notification",
			"error", err,
			"notification_id", n.ID,
			"invoice_id", n.InvoiceID,
			"topic", p.topic,
		)
		return ierr.WithError(err).
			WithHint("Failed to publish notification").
			Mark(ierr.ErrSystem)
	}

	p.logger.Debugw("published notification",
		"notification_id", n.ID,
		"event_type", n.EventType,
		"invoice_id", n.InvoiceID,
		"topic", p.topic,
	)
	return nil
}
