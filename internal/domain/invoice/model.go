package invoice

import (
	"time"

	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Invoice is a closed set of items produced by one invoicing run.
// Once persisted it is never mutated; later corrections arrive as repair items on new invoices.
type Invoice struct {
	ID             string            `json:"id" db:"id"`
	AccountID      string            `json:"account_id" db:"account_id"`
	InvoiceNumber  string            `json:"invoice_number" db:"invoice_number"`
	InvoiceDate    time.Time         `json:"invoice_date" db:"invoice_date"`
	TargetDate     time.Time         `json:"target_date" db:"target_date"`
	Currency       string            `json:"currency" db:"currency"`
	IdempotencyKey string            `json:"idempotency_key" db:"idempotency_key"`
	Items          []*InvoiceItem    `json:"items" db:"-"`
	Payments       []*InvoicePayment `json:"payments,omitempty" db:"-"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

// InvoicePayment is a payment, refund or chargeback recorded against an invoice.
// Refunds and chargebacks carry negative amounts.
type InvoicePayment struct {
	ID          string                   `json:"id" db:"id"`
	InvoiceID   string                   `json:"invoice_id" db:"invoice_id"`
	PaymentID   *string                  `json:"payment_id,omitempty" db:"payment_id"`
	Type        types.InvoicePaymentType `json:"type" db:"type"`
	Amount      decimal.Decimal          `json:"amount" db:"amount"`
	Currency    string                   `json:"currency" db:"currency"`
	Success     bool                     `json:"success" db:"success"`
	PaymentDate time.Time                `json:"payment_date" db:"payment_date"`
	CreatedAt   time.Time                `json:"created_at" db:"created_at"`
}

// Balance is the sum of item amounts minus the payments actually applied
func (inv *Invoice) Balance() decimal.Decimal {
	return inv.ItemsAmount().Sub(inv.PaidAmount())
}

// ItemsAmount sums every item, including account credit moves
func (inv *Invoice) ItemsAmount() decimal.Decimal {
	return lo.Reduce(inv.Items, func(sum decimal.Decimal, item *InvoiceItem, _ int) decimal.Decimal {
		return sum.Add(item.Amount)
	}, decimal.Zero)
}

// ChargedAmount sums every item except account credit moves
func (inv *Invoice) ChargedAmount() decimal.Decimal {
	return lo.Reduce(inv.Items, func(sum decimal.Decimal, item *InvoiceItem, _ int) decimal.Decimal {
		if item.Type.IsCBA() {
			return sum
		}
		return sum.Add(item.Amount)
	}, decimal.Zero)
}

// CBAAmount is the net account credit this invoice banked (positive) or consumed (negative)
func (inv *Invoice) CBAAmount() decimal.Decimal {
	return lo.Reduce(inv.Items, func(sum decimal.Decimal, item *InvoiceItem, _ int) decimal.Decimal {
		if !item.Type.IsCBA() {
			return sum
		}
		return sum.Add(item.Amount)
	}, decimal.Zero)
}

// PaidAmount sums successful payments
func (inv *Invoice) PaidAmount() decimal.Decimal {
	return lo.Reduce(inv.Payments, func(sum decimal.Decimal, p *InvoicePayment, _ int) decimal.Decimal {
		if !p.Success {
			return sum
		}
		return sum.Add(p.Amount)
	}, decimal.Zero)
}

// Validate checks the invoice and every item it carries
func (inv *Invoice) Validate() error {
	if inv.AccountID == "" {
		return invalidInvoice("invoice has no account", inv)
	}
	if inv.Currency == "" {
		return invalidInvoice("invoice has no currency", inv)
	}
	for _, item := range inv.Items {
		if item.InvoiceID != inv.ID || item.AccountID != inv.AccountID {
			return invalidInvoice("invoice item belongs to another invoice", inv)
		}
		if item.Currency != inv.Currency {
			return invalidInvoice("invoice item currency differs from invoice currency", inv)
		}
		if err := item.Validate(); err != nil {
			return err
		}
	}
	for _, p := range inv.Payments {
		if err := p.Type.Validate(); err != nil {
			return err
		}
		if p.InvoiceID != inv.ID {
			return invalidInvoice("payment belongs to another invoice", inv)
		}
	}
	return nil
}
