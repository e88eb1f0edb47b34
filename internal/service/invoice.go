package service

import (
	"context"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
)

// InvoiceService reads committed invoices. Invoices are only created by the dispatcher.
type InvoiceService interface {
	GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error)
	ListAccountInvoices(ctx context.Context, accountID string) ([]*invoice.Invoice, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
	}
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	if id == "" {
		return nil, ierr.NewError("invoice id is required").
			WithHint("Please provide an invoice id").
			Mark(ierr.ErrValidation)
	}
	return s.InvoiceRepo.Get(ctx, id)
}

func (s *invoiceService) ListAccountInvoices(ctx context.Context, accountID string) ([]*invoice.Invoice, error) {
	if accountID == "" {
		return nil, ierr.NewError("account id is required").
			WithHint("Please provide an account id").
			Mark(ierr.ErrValidation)
	}
	return s.InvoiceRepo.ListByAccount(ctx, accountID)
}
