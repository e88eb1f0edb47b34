package notification

import (
	"context"

	"github.com/flexprice/invoicer/internal/config"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/httpclient"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/pubsub"
	kafkaPubSub "github.com/flexprice/invoicer/internal/pubsub/kafka"
	"github.com/flexprice/invoicer/internal/pubsub/memory"
	"github.com/flexprice/invoicer/internal/types"
	"go.uber.org/fx"
)

// Module provides the pubsub transport and the configured notifier
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		provideHTTPClient,
		NewNotifier,
	),
)

func providePubSub(lc fx.Lifecycle, cfg *config.Configuration, logger *logger.Logger) (pubsub.PubSub, error) {
	var (
		ps  pubsub.PubSub
		err error
	)

	switch cfg.Notification.PubSub {
	case types.MemoryPubSub, "":
		ps = memory.NewPubSub(logger)
	case types.KafkaPubSub:
		ps, err = kafkaPubSub.NewPubSub(cfg, logger)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to connect to kafka").
				Mark(ierr.ErrSystem)
		}
	default:
		return nil, ierr.NewErrorf("unsupported pubsub type %q", cfg.Notification.PubSub).
			Mark(ierr.ErrValidation)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return ps.Close()
		},
	})
	return ps, nil
}

func provideHTTPClient(cfg *config.Configuration, logger *logger.Logger) httpclient.Client {
	return httpclient.NewDefaultClient(httpclient.ClientConfig{
		Timeout:  cfg.Notification.WebhookTimeout,
		RetryMax: cfg.Notification.WebhookRetries,
	}, logger)
}

// NewNotifier returns the notifier of the configured sink
func NewNotifier(cfg *config.Configuration, ps pubsub.PubSub, client httpclient.Client, logger *logger.Logger) (Notifier, error) {
	switch cfg.Notification.Sink {
	case types.NotificationSinkPubSub:
		return NewPubSubNotifier(ps, cfg.Notification.Topic, logger), nil
	case types.NotificationSinkWebhook:
		return NewWebhookNotifier(client, cfg.Notification.WebhookURL, cfg.Notification.WebhookHeaders, logger), nil
	default:
		return nil, ierr.NewErrorf("unsupported notification sink %q", cfg.Notification.Sink).
			Mark(ierr.ErrValidation)
	}
}
