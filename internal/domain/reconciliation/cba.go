package reconciliation

import (
	"time"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// applyAccountCredit banks the excess of a net negative run as account credit,
// or consumes banked credit, oldest first, against a net positive one.
// Credit is never consumed beyond what is left, so the balance cannot go negative.
func applyAccountCredit(accountID string, items []*invoice.InvoiceItem, history []*invoice.Invoice, invoiceDate time.Time) ([]*invoice.InvoiceItem, error) {
	net := lo.Reduce(items, func(sum decimal.Decimal, item *invoice.InvoiceItem, _ int) decimal.Decimal {
		return sum.Add(item.Amount)
	}, decimal.Zero)

	if net.IsNegative() {
		return []*invoice.InvoiceItem{{
			AccountID: accountID,
			Type:      types.InvoiceItemTypeCBACredit,
			StartDate: invoiceDate,
			Amount:    net.Neg(),
		}}, nil
	}
	if !net.IsPositive() {
		return nil, nil
	}

	credits, err := invoice.AvailableCredits(history)
	if err != nil {
		return nil, err
	}

	var out []*invoice.InvoiceItem
	owed := net
	for _, credit := range credits {
		if !owed.IsPositive() {
			break
		}
		use := decimal.Min(credit.Remaining, owed)
		out = append(out, &invoice.InvoiceItem{
			AccountID:    accountID,
			Type:         types.InvoiceItemTypeCBAUse,
			StartDate:    invoiceDate,
			Amount:       use.Neg(),
			LinkedItemID: lo.ToPtr(credit.Item.ID),
		})
		owed = owed.Sub(use)
	}
	return out, nil
}
