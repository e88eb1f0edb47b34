package service

import (
	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/domain/billingevent"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/lock"
	"github.com/flexprice/invoicer/internal/domain/outbox"
	"github.com/flexprice/invoicer/internal/domain/proration"
	"github.com/flexprice/invoicer/internal/domain/reconciliation"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/notification"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Sentry *sentry.Service

	// Repositories
	BillingEventRepo billingevent.Repository
	InvoiceRepo      invoice.Repository
	OutboxRepo       outbox.Repository

	Locker   lock.Locker
	Notifier notification.Notifier
	Engine   *reconciliation.Engine
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	billingEventRepo billingevent.Repository,
	invoiceRepo invoice.Repository,
	outboxRepo outbox.Repository,
	locker lock.Locker,
	notifier notification.Notifier,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		Sentry:           sentry,
		BillingEventRepo: billingEventRepo,
		InvoiceRepo:      invoiceRepo,
		OutboxRepo:       outboxRepo,
		Locker:           locker,
		Notifier:         notifier,
		Engine:           reconciliation.NewEngine(proration.NewCalculator(), logger),
	}
}
