package dto

import (
	"time"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// parseDate reads a YYYY-MM-DD calendar date, an empty value means today in UTC
func parseDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHintf("Invalid date %q, expected YYYY-MM-DD", value).
			Mark(ierr.ErrValidation)
	}
	return t, nil
}

// CreateAccountInvoiceRequest triggers an invoicing run for one account
type CreateAccountInvoiceRequest struct {
	// target_date bounds the charges that are due, defaults to today
	TargetDate string `json:"target_date,omitempty"`
	// dry_run computes the invoice without persisting it
	DryRun bool `json:"dry_run"`
	// allow_empty persists an invoice even when nothing is owed
	AllowEmpty bool `json:"allow_empty"`
}

func (r *CreateAccountInvoiceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// GetTargetDate returns the requested target date, today when none was given
func (r *CreateAccountInvoiceRequest) GetTargetDate(now time.Time) (time.Time, error) {
	return parseDate(r.TargetDate, now)
}

// InvoiceResponse is an invoice with its computed totals
type InvoiceResponse struct {
	*invoice.Invoice
	Amount       decimal.Decimal `json:"amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Balance      decimal.Decimal `json:"balance"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	if inv == nil {
		return nil
	}
	return &InvoiceResponse{
		Invoice:      inv,
		Amount:       inv.ChargedAmount(),
		CreditAmount: inv.CBAAmount(),
		Balance:      inv.Balance(),
	}
}

// CreateAccountInvoiceResponse reports the outcome of a run. Invoice is absent when nothing was owed.
type CreateAccountInvoiceResponse struct {
	Invoice *InvoiceResponse `json:"invoice"`
	DryRun  bool             `json:"dry_run"`
}

type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}

func NewListInvoicesResponse(invoices []*invoice.Invoice) *ListInvoicesResponse {
	return &ListInvoicesResponse{
		Items: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *InvoiceResponse {
			return NewInvoiceResponse(inv)
		}),
		Total: len(invoices),
	}
}

// RunInvoicingRequest invoices the listed accounts, or every account when the list is empty
type RunInvoicingRequest struct {
	AccountIDs []string `json:"account_ids,omitempty" validate:"omitempty,dive,required"`
	TargetDate string   `json:"target_date,omitempty"`
	DryRun     bool     `json:"dry_run"`
}

func (r *RunInvoicingRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// GetTargetDate returns the requested target date, today when none was given
func (r *RunInvoicingRequest) GetTargetDate(now time.Time) (time.Time, error) {
	return parseDate(r.TargetDate, now)
}
