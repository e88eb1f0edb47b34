package testutil

import (
	"time"

	"github.com/flexprice/invoicer/internal/domain/billingevent"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// MonthlyEvent builds an in advance monthly billing event with a recurring rate
func MonthlyEvent(accountID, subscriptionID string, on time.Time, seq int64, transition types.TransitionType, rate string) *billingevent.BillingEvent {
	return &billingevent.BillingEvent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_EVENT),
		AccountID:      accountID,
		SubscriptionID: subscriptionID,
		EffectiveDate:  on.Add(9 * time.Hour),
		TimeZone:       "UTC",
		ProductName:    "Gold",
		PlanName:       "gold-monthly",
		PhaseName:      "gold-monthly-evergreen",
		BillingPeriod:  types.BILLING_PERIOD_MONTHLY,
		RecurringPrice: lo.ToPtr(decimal.RequireFromString(rate)),
		Currency:       "usd",
		BillCycleDay:   1,
		BillingMode:    types.BillingModeInAdvance,
		TotalOrdering:  seq,
		TransitionType: transition,
		CreatedAt:      on,
	}
}

// CancelEvent builds the cancellation of a monthly subscription
func CancelEvent(accountID, subscriptionID string, on time.Time, seq int64) *billingevent.BillingEvent {
	e := MonthlyEvent(accountID, subscriptionID, on, seq, types.TransitionTypeCancel, "0")
	e.RecurringPrice = nil
	return e
}
