package notification

import (
	"context"
	"net/http"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/httpclient"
	"github.com/flexprice/invoicer/internal/logger"
)

type webhookNotifier struct {
	client  httpclient.Client
	url     string
	headers map[string]string
	logger  *logger.Logger
}

// NewWebhookNotifier posts notifications to url. The Idempotency-Key header carries the notification id.
func NewWebhookNotifier(client httpclient.Client, url string, headers map[string]string, logger *logger.Logger) Notifier {
	return &webhookNotifier{
		client:  client,
		url:     url,
		headers: headers,
		logger:  logger,
	}
}

func (w *webhookNotifier) Notify(ctx context.Context, n *Notification) error {
	body, err := n.marshal()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode notification").
			Mark(ierr.ErrSystem)
	}

	headers := make(map[string]string, len(w.headers)+2)
	for k, v := range w.headers {
		headers[k] = v
	}
	headers["Idempotency-Key"] = n.ID
	headers["X-Event-Type"] = string(n.EventType)

	resp, err := w.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     w.url,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		w.logger.Errorw("webhook delivery failed",
			"error", err,
			"notification_id", n.ID,
			"invoice_id", n.InvoiceID,
		)
		return err
	}

	w.logger.Debugw("webhook delivered",
		"notification_id", n.ID,
		"invoice_id", n.InvoiceID,
		"status_code", resp.StatusCode,
	)
	return nil
}
