package billingevent

import (
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// BillingEvent is a dated fact about the plan, phase and price state of a subscription.
// Events are produced by subscription lifecycle operations and never mutated.
type BillingEvent struct {
	ID                string               `json:"id" db:"id"`
	AccountID         string               `json:"account_id" db:"account_id"`
	BundleID          *string              `json:"bundle_id,omitempty" db:"bundle_id"`
	SubscriptionID    string               `json:"subscription_id" db:"subscription_id"`
	EffectiveDate     time.Time            `json:"effective_date" db:"effective_date"`
	TimeZone          string               `json:"time_zone" db:"time_zone"`
	ProductName       string               `json:"product_name" db:"product_name"`
	PlanName          string               `json:"plan_name" db:"plan_name"`
	PhaseName         string               `json:"phase_name" db:"phase_name"`
	PrettyProductName *string              `json:"pretty_product_name,omitempty" db:"pretty_product_name"`
	PrettyPlanName    *string              `json:"pretty_plan_name,omitempty" db:"pretty_plan_name"`
	PrettyPhaseName   *string              `json:"pretty_phase_name,omitempty" db:"pretty_phase_name"`
	BillingPeriod     types.BillingPeriod  `json:"billing_period" db:"billing_period"`
	FixedPrice        *decimal.Decimal     `json:"fixed_price,omitempty" db:"fixed_price"`
	RecurringPrice    *decimal.Decimal     `json:"recurring_price,omitempty" db:"recurring_price"`
	Currency          string               `json:"currency" db:"currency"`
	BillCycleDay      int                  `json:"bill_cycle_day" db:"bill_cycle_day"`
	BillingMode       types.BillingMode    `json:"billing_mode" db:"billing_mode"`
	TotalOrdering     int64                `json:"total_ordering" db:"total_ordering"`
	TransitionType    types.TransitionType `json:"transition_type" db:"transition_type"`
	// Description overrides the generated description of the fixed price item
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Location returns the time zone used to turn the effective instant into a calendar date
func (e *BillingEvent) Location() (*time.Location, error) {
	if e.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(e.TimeZone)
}

// EffectiveLocalDate is the calendar date the event takes effect on
func (e *BillingEvent) EffectiveLocalDate() time.Time {
	loc, err := e.Location()
	if err != nil {
		loc = time.UTC
	}
	return types.LocalDate(e.EffectiveDate, loc)
}

// IsBilling reports whether the subscription is charged after this event
func (e *BillingEvent) IsBilling() bool {
	return e.TransitionType.IsBilling()
}

// HasFixedPrice reports whether the event carries a fixed price charge
func (e *BillingEvent) HasFixedPrice() bool {
	return e.FixedPrice != nil
}

// HasRecurringPrice reports whether the event carries a recurring rate
func (e *BillingEvent) HasRecurringPrice() bool {
	return e.RecurringPrice != nil
}

// Validate checks a single event. Failures are data integrity faults of the timeline.
func (e *BillingEvent) Validate() error {
	details := map[string]any{
		"subscription_id": e.SubscriptionID,
		"total_ordering":  e.TotalOrdering,
	}

	if e.SubscriptionID == "" {
		return ierr.NewError("billing event has no subscription").
			WithHint("Every billing event must reference a subscription").
			WithReportableDetails(details).
			Mark(ierr.ErrInvalidEventOrdering)
	}
	if e.EffectiveDate.IsZero() {
		return ierr.NewError("billing event has no effective date").
			WithHint("Every billing event must carry an effective date").
			WithReportableDetails(details).
			Mark(ierr.ErrInvalidEventOrdering)
	}
	if _, err := e.Location(); err != nil {
		return ierr.WithError(err).
			WithHintf("Unknown time zone %q", e.TimeZone).
			WithReportableDetails(details).
			Mark(ierr.ErrInvalidEventOrdering)
	}

	for _, check := range []func() error{
		e.TransitionType.Validate,
		e.BillingMode.Validate,
		e.BillingPeriod.Validate,
	} {
		if err := check(); err != nil {
			return ierr.WithError(err).
				WithHint("Billing event is malformed").
				WithReportableDetails(details).
				Mark(ierr.ErrInvalidEventOrdering)
		}
	}

	if e.Currency == "" {
		return ierr.NewError("billing event has no currency").
			WithHint("Every billing event must carry a currency").
			WithReportableDetails(details).
			Mark(ierr.ErrInvalidEventOrdering)
	}

	negative := func(p *decimal.Decimal) bool { return p != nil && p.IsNegative() }
	if negative(e.FixedPrice) || negative(e.RecurringPrice) {
		return ierr.NewError("billing event carries a negative price").
			WithHint("Prices on billing events cannot be negative").
			WithReportableDetails(lo.Assign(details, map[string]any{
				"fixed_price":     e.FixedPrice,
				"recurring_price": e.RecurringPrice,
			})).
			Mark(ierr.ErrInvalidEventOrdering)
	}

	return nil
}

// Compare orders events by subscription, then effective instant, then total ordering
func Compare(a, b *BillingEvent) int {
	switch {
	case a.SubscriptionID < b.SubscriptionID:
		return -1
	case a.SubscriptionID > b.SubscriptionID:
		return 1
	}
	if c := a.EffectiveDate.Compare(b.EffectiveDate); c != 0 {
		return c
	}
	switch {
	case a.TotalOrdering < b.TotalOrdering:
		return -1
	case a.TotalOrdering > b.TotalOrdering:
		return 1
	}
	return 0
}
