package reconciliation

import (
	"slices"
	"time"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/shopspring/decimal"
)

// existingItem is a previously invoiced charge as it stands after the repairs made against it
type existingItem struct {
	key  itemKey
	item *invoice.InvoiceItem
	// start and end bound the window still billed; partial repairs shorten end
	start time.Time
	end   time.Time
	// billed is the amount net of repairs
	billed decimal.Decimal
	// reversible is billed net of manual item adjustments, the most a repair may take back
	reversible decimal.Decimal
}

func (e *existingItem) kind() types.InvoiceItemType { return e.item.Type }

// coveredByAdjustments reports whether an owed amount below the gross billed amount is already
// reached by the manual adjustments made against the charge
func (e *existingItem) coveredByAdjustments(owed decimal.Decimal) bool {
	return owed.LessThan(e.billed) && owed.GreaterThanOrEqual(e.reversible)
}

func (e *existingItem) overlaps(start, end time.Time) bool {
	return start.Before(e.end) && end.After(e.start)
}

// existingView indexes the live charges of prior invoices per subscription
type existingView struct {
	bySubscription map[string][]*existingItem
	// latest is the furthest date any charge of the subscription was invoiced for
	latest map[string]time.Time
}

func buildExisting(invoices []*invoice.Invoice) (*existingView, error) {
	var charges []*invoice.InvoiceItem
	repairs := make(map[string][]*invoice.InvoiceItem)
	adjustments := make(map[string][]*invoice.InvoiceItem)

	for _, inv := range invoices {
		for _, item := range inv.Items {
			switch item.Type {
			case types.InvoiceItemTypeFixed, types.InvoiceItemTypeRecurring:
				if item.SubscriptionID == nil {
					return nil, corruptHistory("charge without subscription", item)
				}
				charges = append(charges, item)
			case types.InvoiceItemTypeRepairAdj:
				if item.LinkedItemID == nil {
					return nil, corruptHistory("repair without linked item", item)
				}
				repairs[*item.LinkedItemID] = append(repairs[*item.LinkedItemID], item)
			case types.InvoiceItemTypeItemAdj:
				if item.LinkedItemID != nil {
					adjustments[*item.LinkedItemID] = append(adjustments[*item.LinkedItemID], item)
				}
			case types.InvoiceItemTypeCreditAdj, types.InvoiceItemTypeCBACredit,
				types.InvoiceItemTypeCBAUse, types.InvoiceItemTypeTax:
				// account level items are not derived from billing events
			default:
				return nil, corruptHistory("unknown invoice item kind", item)
			}
		}
	}

	view := &existingView{
		bySubscription: make(map[string][]*existingItem),
		latest:         make(map[string]time.Time),
	}

	for _, item := range charges {
		subscriptionID := *item.SubscriptionID
		start := toDate(item.StartDate)
		end := start
		if item.EndDate != nil {
			end = toDate(*item.EndDate)
		}
		if end.After(view.latest[subscriptionID]) {
			view.latest[subscriptionID] = end
		}

		billed := item.Amount
		effectiveEnd := end
		linked := repairs[item.ID]
		for _, r := range linked {
			billed = billed.Add(r.Amount)
			if rs := toDate(r.StartDate); rs.Before(effectiveEnd) {
				effectiveEnd = rs
			}
		}
		reversible := billed
		for _, a := range adjustments[item.ID] {
			reversible = reversible.Add(a.Amount)
		}

		var key itemKey
		switch item.Type {
		case types.InvoiceItemTypeFixed:
			// fixed charges are never partially repaired
			if len(linked) > 0 {
				continue
			}
			key = fixedKey(subscriptionID, item.GetPhaseName(), start)
		case types.InvoiceItemTypeRecurring:
			if !effectiveEnd.After(start) {
				continue
			}
			key = recurringKey(subscriptionID, start, effectiveEnd)
		}

		view.bySubscription[subscriptionID] = append(view.bySubscription[subscriptionID], &existingItem{
			key:        key,
			item:       item,
			start:      start,
			end:        effectiveEnd,
			billed:     billed,
			reversible: reversible,
		})
	}

	for _, items := range view.bySubscription {
		slices.SortFunc(items, func(a, b *existingItem) int {
			if c := a.start.Compare(b.start); c != 0 {
				return c
			}
			if c := a.end.Compare(b.end); c != 0 {
				return c
			}
			switch {
			case a.item.ID < b.item.ID:
				return -1
			case a.item.ID > b.item.ID:
				return 1
			}
			return 0
		})
	}

	return view, nil
}

// subscriptionIDs returns every subscription that was ever charged
func (v *existingView) subscriptionIDs() []string {
	ids := make([]string, 0, len(v.latest))
	for id := range v.latest {
		ids = append(ids, id)
	}
	return ids
}

func corruptHistory(msg string, item *invoice.InvoiceItem) error {
	return ierr.NewError(msg).
		WithHint("Invoice history of the account is inconsistent").
		WithReportableDetails(map[string]any{
			"item_id":    item.ID,
			"invoice_id": item.InvoiceID,
			"type":       item.Type,
		}).
		Mark(ierr.ErrSystem)
}
