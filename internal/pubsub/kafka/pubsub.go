package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/kafka"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/pubsub"
)

type PubSub struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
	logger   *logger.Logger
}

// NewPubSub creates a new kafka-based pubsub
func NewPubSub(cfg *config.Configuration, logger *logger.Logger) (pubsub.PubSub, error) {
	producer, err := kafka.NewProducer(cfg, logger)
	if err != nil {
		return nil, err
	}

	consumer, err := kafka.NewConsumer(cfg, logger)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}

	logger.Infow("connected to kafka",
		"brokers", cfg.Kafka.Brokers,
		"consumer_group", consumer.Group(),
	)

	return &PubSub{
		producer: producer,
		consumer: consumer,
		logger:   logger,
	}, nil
}

func (p *PubSub) Publish(_ context.Context, topic string, msg *message.Message) error {
	return p.producer.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.consumer.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	if err := p.producer.Close(); err != nil {
		p.logger.Errorw("failed to close kafka producer", "error", err)
	}
	return p.consumer.Close()
}
