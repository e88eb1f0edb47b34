package repository

import (
	"github.com/flexprice/invoicer/internal/domain/billingevent"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/outbox"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	postgresRepo "github.com/flexprice/invoicer/internal/repository/postgres"
)

func NewBillingEventRepository(db *postgres.DB, logger *logger.Logger) billingevent.Repository {
	return postgresRepo.NewBillingEventRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewOutboxRepository(db *postgres.DB, logger *logger.Logger) outbox.Repository {
	return postgresRepo.NewOutboxRepository(db, logger)
}
