package reconciliation

import (
	"context"
	"time"

	"github.com/flexprice/invoicer/internal/domain/billingevent"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/proration"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// idealItem is a charge the event timeline says is owed
type idealItem struct {
	key         itemKey
	proto       *invoice.InvoiceItem
	billingDate time.Time
}

func (i *idealItem) start() time.Time { return i.proto.StartDate }

func (i *idealItem) end() time.Time {
	if i.proto.EndDate == nil {
		return i.proto.StartDate
	}
	return *i.proto.EndDate
}

func (i *idealItem) amount() decimal.Decimal { return i.proto.Amount }

// dueBy reports whether the charge is billable on the target date
func (i *idealItem) dueBy(target time.Time) bool {
	return !i.billingDate.After(target)
}

// buildIdeal walks one subscription's events and derives every charge billable up to horizon.
// Each event opens a window that the next event closes.
func (e *Engine) buildIdeal(ctx context.Context, accountID string, events []*billingevent.BillingEvent, horizon time.Time) ([]*idealItem, error) {
	if len(events) == 0 {
		return nil, nil
	}

	alignment := events[0].EffectiveLocalDate()
	var out []*idealItem

	for idx, ev := range events {
		if !ev.IsBilling() {
			continue
		}

		start := ev.EffectiveLocalDate()
		var end *time.Time
		if idx+1 < len(events) {
			next := events[idx+1].EffectiveLocalDate()
			end = &next
		}
		// superseded on the day it took effect
		if end != nil && !end.After(start) {
			continue
		}

		if ev.HasFixedPrice() && !start.After(horizon) {
			proto := newItemFromEvent(accountID, ev, types.InvoiceItemTypeFixed)
			proto.StartDate = start
			proto.Amount = e.calculator.FixedAmount(*ev.FixedPrice, ev.Currency)
			proto.Description = ev.Description

			out = append(out, &idealItem{
				key:         fixedKey(ev.SubscriptionID, ev.PhaseName, start),
				proto:       proto,
				billingDate: start,
			})
		}

		if !ev.HasRecurringPrice() {
			continue
		}

		result, err := e.calculator.CalculateRecurring(ctx, proration.RecurringParams{
			BillingPeriod: ev.BillingPeriod,
			BillCycleDay:  ev.BillCycleDay,
			BillingMode:   ev.BillingMode,
			Rate:          *ev.RecurringPrice,
			Currency:      ev.Currency,
			AlignmentDate: alignment,
			WindowStart:   start,
			WindowEnd:     end,
			Cutoff:        horizon,
		})
		if err != nil {
			return nil, err
		}

		for _, chunk := range result.Items {
			proto := newItemFromEvent(accountID, ev, types.InvoiceItemTypeRecurring)
			proto.StartDate = chunk.StartDate
			proto.EndDate = lo.ToPtr(chunk.EndDate)
			proto.Amount = chunk.Amount
			proto.Rate = lo.ToPtr(*ev.RecurringPrice)

			out = append(out, &idealItem{
				key:         recurringKey(ev.SubscriptionID, chunk.StartDate, chunk.EndDate),
				proto:       proto,
				billingDate: chunk.BillingDate,
			})
		}
	}

	return out, nil
}

func newItemFromEvent(accountID string, ev *billingevent.BillingEvent, kind types.InvoiceItemType) *invoice.InvoiceItem {
	return &invoice.InvoiceItem{
		AccountID:         accountID,
		BundleID:          ev.BundleID,
		SubscriptionID:    lo.ToPtr(ev.SubscriptionID),
		Type:              kind,
		ProductName:       lo.EmptyableToPtr(ev.ProductName),
		PlanName:          lo.EmptyableToPtr(ev.PlanName),
		PhaseName:         lo.ToPtr(ev.PhaseName),
		PrettyProductName: ev.PrettyProductName,
		PrettyPlanName:    ev.PrettyPlanName,
		PrettyPhaseName:   ev.PrettyPhaseName,
		Currency:          ev.Currency,
	}
}
