package types

import (
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/samber/lo"
)

// BillingPeriod is the length of one recurring charge period ex MONTHLY, ANNUAL
type BillingPeriod string

const (
	BILLING_PERIOD_DAILY     BillingPeriod = "DAILY"
	BILLING_PERIOD_WEEKLY    BillingPeriod = "WEEKLY"
	BILLING_PERIOD_BIWEEKLY  BillingPeriod = "BIWEEKLY"
	BILLING_PERIOD_MONTHLY   BillingPeriod = "MONTHLY"
	BILLING_PERIOD_QUARTERLY BillingPeriod = "QUARTERLY"
	BILLING_PERIOD_BIANNUAL  BillingPeriod = "BIANNUAL"
	BILLING_PERIOD_ANNUAL    BillingPeriod = "ANNUAL"
	// BILLING_PERIOD_NONE is used by phases that only carry a fixed price
	BILLING_PERIOD_NONE BillingPeriod = "NO_BILLING_PERIOD"
)

func (p BillingPeriod) String() string {
	return string(p)
}

func (p BillingPeriod) Validate() error {
	allowed := []BillingPeriod{
		BILLING_PERIOD_DAILY,
		BILLING_PERIOD_WEEKLY,
		BILLING_PERIOD_BIWEEKLY,
		BILLING_PERIOD_MONTHLY,
		BILLING_PERIOD_QUARTERLY,
		BILLING_PERIOD_BIANNUAL,
		BILLING_PERIOD_ANNUAL,
		BILLING_PERIOD_NONE,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid billing period").
			WithHint("Please provide a valid billing period").
			WithReportableDetails(map[string]any{
				"billing_period": p,
				"allowed":        allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Months returns the number of calendar months in a month-based period, 0 otherwise
func (p BillingPeriod) Months() int {
	switch p {
	case BILLING_PERIOD_MONTHLY:
		return 1
	case BILLING_PERIOD_QUARTERLY:
		return 3
	case BILLING_PERIOD_BIANNUAL:
		return 6
	case BILLING_PERIOD_ANNUAL:
		return 12
	}
	return 0
}

// Days returns the number of days in a day-based period, 0 otherwise
func (p BillingPeriod) Days() int {
	switch p {
	case BILLING_PERIOD_DAILY:
		return 1
	case BILLING_PERIOD_WEEKLY:
		return 7
	case BILLING_PERIOD_BIWEEKLY:
		return 14
	}
	return 0
}

// BillingMode represents when a recurring period is billed.
type BillingMode string

const (
	BillingModeInAdvance BillingMode = "in_advance"
	BillingModeInArrears BillingMode = "in_arrears"
)

func (m BillingMode) Validate() error {
	allowed := []BillingMode{BillingModeInAdvance, BillingModeInArrears}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid billing mode").
			WithHint("Please provide a valid billing mode").
			WithReportableDetails(map[string]any{
				"billing_mode": m,
				"allowed":      allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TransitionType is the subscription lifecycle transition that produced a billing event
type TransitionType string

const (
	TransitionTypeCreate               TransitionType = "CREATE"
	TransitionTypeTransfer             TransitionType = "TRANSFER"
	TransitionTypeChange               TransitionType = "CHANGE"
	TransitionTypePhase                TransitionType = "PHASE"
	TransitionTypeBCDChange            TransitionType = "BCD_CHANGE"
	TransitionTypeCancel               TransitionType = "CANCEL"
	TransitionTypeStartBillingDisabled TransitionType = "START_BILLING_DISABLED"
	TransitionTypeEndBillingDisabled   TransitionType = "END_BILLING_DISABLED"
)

func (t TransitionType) String() string {
	return string(t)
}

func (t TransitionType) Validate() error {
	allowed := []TransitionType{
		TransitionTypeCreate,
		TransitionTypeTransfer,
		TransitionTypeChange,
		TransitionTypePhase,
		TransitionTypeBCDChange,
		TransitionTypeCancel,
		TransitionTypeStartBillingDisabled,
		TransitionTypeEndBillingDisabled,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid transition type").
			WithHint("Please provide a valid transition type").
			WithReportableDetails(map[string]any{
				"transition_type": t,
				"allowed":         allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsBilling reports whether the subscription is billed after this transition.
// Cancellation and billing suspension close the running window without opening a new one.
func (t TransitionType) IsBilling() bool {
	return t != TransitionTypeCancel && t != TransitionTypeStartBillingDisabled
}
