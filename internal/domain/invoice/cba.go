package invoice

import (
	"slices"
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/shopspring/decimal"
)

// CBABalance is the account credit left across an invoice history:
// banked credits minus the credit already consumed.
func CBABalance(invoices []*Invoice) decimal.Decimal {
	balance := decimal.Zero
	for _, inv := range invoices {
		balance = balance.Add(inv.CBAAmount())
	}
	return balance
}

// AvailableCredit is a banked account credit together with the part of it not yet consumed
type AvailableCredit struct {
	Item        *InvoiceItem
	InvoiceDate time.Time
	Remaining   decimal.Decimal
}

// AvailableCredits returns every banked credit with a remaining balance, oldest first.
// Credit use items name the credit they consume, so each credit is tracked on its own.
func AvailableCredits(invoices []*Invoice) ([]*AvailableCredit, error) {
	credits := make(map[string]*AvailableCredit)
	var uses []*InvoiceItem

	for _, inv := range invoices {
		for _, item := range inv.Items {
			switch item.Type {
			case types.InvoiceItemTypeCBACredit:
				credits[item.ID] = &AvailableCredit{
					Item:        item,
					InvoiceDate: inv.InvoiceDate,
					Remaining:   item.Amount,
				}
			case types.InvoiceItemTypeCBAUse:
				uses = append(uses, item)
			}
		}
	}

	for _, use := range uses {
		if use.LinkedItemID == nil {
			return nil, ierr.NewError("account credit use without a consumed credit").
				WithHint("Account credit history is inconsistent").
				WithReportableDetails(map[string]any{"item_id": use.ID}).
				Mark(ierr.ErrSystem)
		}
		credit, ok := credits[*use.LinkedItemID]
		if !ok {
			return nil, ierr.NewError("account credit use references an unknown credit").
				WithHint("Account credit history is inconsistent").
				WithReportableDetails(map[string]any{
					"item_id":        use.ID,
					"linked_item_id": *use.LinkedItemID,
				}).
				Mark(ierr.ErrSystem)
		}
		credit.Remaining = credit.Remaining.Add(use.Amount)
		if credit.Remaining.IsNegative() {
			return nil, ierr.NewError("account credit consumed beyond its amount").
				WithHint("Account credit history is inconsistent").
				WithReportableDetails(map[string]any{"credit_item_id": credit.Item.ID}).
				Mark(ierr.ErrSystem)
		}
	}

	out := make([]*AvailableCredit, 0, len(credits))
	for _, c := range credits {
		if c.Remaining.IsPositive() {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *AvailableCredit) int {
		if c := a.InvoiceDate.Compare(b.InvoiceDate); c != 0 {
			return c
		}
		if c := a.Item.CreatedAt.Compare(b.Item.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.Item.ID < b.Item.ID:
			return -1
		case a.Item.ID > b.Item.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func invalidInvoice(msg string, inv *Invoice) error {
	return ierr.NewError(msg).
		WithHint("Invoice is invalid").
		WithReportableDetails(map[string]any{
			"invoice_id": inv.ID,
			"account_id": inv.AccountID,
		}).
		Mark(ierr.ErrValidation)
}
