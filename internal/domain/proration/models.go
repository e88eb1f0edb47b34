package proration

import (
	"context"
	"time"

	"github.com/flexprice/invoicer/internal/types"
	"github.com/shopspring/decimal"
)

// Calculator derives recurring charges for a charge window
type Calculator interface {
	// CalculateRecurring splits a window into billing period aligned chunks and prices each one
	CalculateRecurring(ctx context.Context, params RecurringParams) (*RecurringResult, error)

	// FixedAmount is the amount owed for a fixed price. Fixed prices are never prorated.
	FixedAmount(price decimal.Decimal, currency string) decimal.Decimal
}

// RecurringParams holds the input of a recurring charge calculation.
// All dates are calendar dates as produced by types.LocalDate.
type RecurringParams struct {
	BillingPeriod types.BillingPeriod
	BillCycleDay  int
	BillingMode   types.BillingMode
	Rate          decimal.Decimal
	Currency      string

	// AlignmentDate anchors the period schedule, usually the subscription start.
	// Month based periods step from its month on the bill cycle day,
	// day based periods step from the date itself.
	AlignmentDate time.Time

	// WindowStart is the effective date of the event the window belongs to
	WindowStart time.Time
	// WindowEnd is the effective date of the next event, nil while the window is open
	WindowEnd *time.Time

	// Cutoff drops chunks whose billing date falls after it
	Cutoff time.Time
}

// RecurringItem is one priced chunk of a charge window, at most one billing period long
type RecurringItem struct {
	StartDate   time.Time
	EndDate     time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	// BillingDate is the start of the chunk in advance and its end in arrears
	BillingDate time.Time
	Amount      decimal.Decimal
	Prorated    bool
}

// RecurringResult is the ordered list of chunks and the period boundaries they reach
type RecurringResult struct {
	Items      []RecurringItem
	Boundaries []time.Time
}

// Total sums the amount of every chunk
func (r *RecurringResult) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Amount)
	}
	return total
}
