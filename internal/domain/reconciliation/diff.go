package reconciliation

import (
	"time"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// reconcileSubscription diffs the charges owed by one subscription against what was invoiced.
//
// Existing charges whose key and amount match an owed charge are settled first, so a charge
// invoiced again after an earlier change wins its key over the one it replaced. A matching key
// with a different amount is fully reversed and re-invoiced, unless the owed amount lies between
// what is still billed net and gross of manual item adjustments: those adjustments already
// cover the difference. A charge shortened by a later event is repaired for its tail when
// exactly one owed charge can be read as its head; every other unmatched existing charge is
// fully reversed. Repairs are capped at what adjustments left reversible and a repair with
// nothing to take back is not emitted. Owed charges left over are invoiced when due.
func reconcileSubscription(ideal []*idealItem, existing []*existingItem, target time.Time) []*invoice.InvoiceItem {
	var out []*invoice.InvoiceItem

	byKey := lo.KeyBy(ideal, func(i *idealItem) itemKey { return i.key })
	consumed := make(map[*idealItem]bool, len(ideal))
	matched := make(map[*existingItem]bool, len(existing))

	for _, ex := range existing {
		c, ok := byKey[ex.key]
		if !ok || consumed[c] || !c.amount().Equal(ex.billed) {
			continue
		}
		consumed[c] = true
		matched[ex] = true
	}

	for _, ex := range existing {
		if matched[ex] {
			continue
		}
		c, ok := byKey[ex.key]
		if !ok || consumed[c] {
			continue
		}
		consumed[c] = true
		matched[ex] = true

		if ex.coveredByAdjustments(c.amount()) {
			continue
		}
		out = appendRepair(out, fullReversal(ex))
		if c.dueBy(target) {
			out = append(out, newCharge(c))
		}
	}

	for _, ex := range existing {
		if matched[ex] {
			continue
		}
		if c := repairCandidate(ex, ideal, consumed); c != nil {
			consumed[c] = true
			out = appendRepair(out, partialRepair(ex, c))
			continue
		}
		out = appendRepair(out, fullReversal(ex))
	}

	for _, c := range ideal {
		if consumed[c] || !c.dueBy(target) {
			continue
		}
		out = append(out, newCharge(c))
	}

	return out
}

// repairCandidate returns the owed charge that covers the head of a shortened recurring charge.
// It is nil unless exactly one unconsumed owed charge overlaps the existing window and that
// charge starts with it, ends before it, bills the same rate and phase and owes no more.
func repairCandidate(ex *existingItem, ideal []*idealItem, consumed map[*idealItem]bool) *idealItem {
	if ex.kind() != types.InvoiceItemTypeRecurring {
		return nil
	}

	overlapping := lo.Filter(ideal, func(c *idealItem, _ int) bool {
		return !consumed[c] &&
			c.key.kind == types.InvoiceItemTypeRecurring &&
			ex.overlaps(c.start(), c.end())
	})
	if len(overlapping) != 1 {
		return nil
	}

	c := overlapping[0]
	if !c.start().Equal(ex.start) || !c.end().Before(ex.end) {
		return nil
	}
	if c.proto.GetPhaseName() != ex.item.GetPhaseName() {
		return nil
	}
	if ex.item.Rate == nil || c.proto.Rate == nil || !ex.item.Rate.Equal(*c.proto.Rate) {
		return nil
	}
	if c.amount().GreaterThan(ex.billed) {
		return nil
	}
	return c
}

// fullReversal takes back everything still billed for an existing charge.
// It is nil when adjustments left nothing to take back.
func fullReversal(ex *existingItem) *invoice.InvoiceItem {
	end := ex.end
	if ex.kind() == types.InvoiceItemTypeFixed {
		end = ex.start
	}
	return newRepair(ex, ex.start, end, ex.reversible)
}

// partialRepair takes back the tail of an existing charge no longer owed
func partialRepair(ex *existingItem, c *idealItem) *invoice.InvoiceItem {
	return newRepair(ex, c.end(), ex.end, decimal.Min(ex.billed.Sub(c.amount()), ex.reversible))
}

func appendRepair(out []*invoice.InvoiceItem, repair *invoice.InvoiceItem) []*invoice.InvoiceItem {
	if repair == nil {
		return out
	}
	return append(out, repair)
}

// newRepair builds a repair taking back amount from the existing charge, nil unless amount is positive
func newRepair(ex *existingItem, start, end time.Time, amount decimal.Decimal) *invoice.InvoiceItem {
	if !amount.IsPositive() {
		return nil
	}
	src := ex.item
	return &invoice.InvoiceItem{
		AccountID:         src.AccountID,
		BundleID:          src.BundleID,
		SubscriptionID:    src.SubscriptionID,
		Type:              types.InvoiceItemTypeRepairAdj,
		ProductName:       src.ProductName,
		PlanName:          src.PlanName,
		PhaseName:         src.PhaseName,
		PrettyProductName: src.PrettyProductName,
		PrettyPlanName:    src.PrettyPlanName,
		PrettyPhaseName:   src.PrettyPhaseName,
		StartDate:         start,
		EndDate:           lo.ToPtr(end),
		Amount:            amount.Neg(),
		Rate:              src.Rate,
		Currency:          src.Currency,
		LinkedItemID:      lo.ToPtr(src.ID),
	}
}

// newCharge copies the owed charge so the engine never hands out its working state
func newCharge(c *idealItem) *invoice.InvoiceItem {
	item := *c.proto
	return &item
}
