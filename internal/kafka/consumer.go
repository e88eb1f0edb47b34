package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/invoicer/internal/config"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
)

// Consumer reads notification topics as part of the configured consumer group
type Consumer struct {
	subscriber message.Subscriber
	group      string
}

func NewConsumer(cfg *config.Configuration, logger *logger.Logger) (*Consumer, error) {
	if cfg.Kafka.ConsumerGroup == "" {
		return nil, ierr.NewError("kafka consumer group is required").
			WithHint("Set kafka.consumer_group to subscribe to notification topics").
			Mark(ierr.ErrValidation)
	}

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Kafka.Brokers,
			ConsumerGroup:         cfg.Kafka.ConsumerGroup,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: GetSaramaConfig(cfg),
		},
		newWatermillLogger(logger),
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create kafka subscriber").
			WithReportableDetails(map[string]any{
				"consumer_group": cfg.Kafka.ConsumerGroup,
			}).
			Mark(ierr.ErrSystem)
	}

	return &Consumer{subscriber: subscriber, group: cfg.Kafka.ConsumerGroup}, nil
}

func (c *Consumer) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return c.subscriber.Subscribe(ctx, topic)
}

// Group returns the consumer group offsets are committed under
func (c *Consumer) Group() string {
	return c.group
}

func (c *Consumer) Close() error {
	return c.subscriber.Close()
}
