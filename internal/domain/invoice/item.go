package invoice

import (
	"fmt"
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/shopspring/decimal"
)

const (
	defaultFixedPriceDescription = "Fixed price charge"
	defaultRecurringDescription  = "Recurring charge"
)

// InvoiceItem is a single priced and dated line of an invoice.
// Every kind shares this shape; which optional fields are required depends on Type.
type InvoiceItem struct {
	ID                string                `json:"id" db:"id"`
	InvoiceID         string                `json:"invoice_id" db:"invoice_id"`
	AccountID         string                `json:"account_id" db:"account_id"`
	BundleID          *string               `json:"bundle_id,omitempty" db:"bundle_id"`
	SubscriptionID    *string               `json:"subscription_id,omitempty" db:"subscription_id"`
	Type              types.InvoiceItemType `json:"type" db:"type"`
	ProductName       *string               `json:"product_name,omitempty" db:"product_name"`
	PlanName          *string               `json:"plan_name,omitempty" db:"plan_name"`
	PhaseName         *string               `json:"phase_name,omitempty" db:"phase_name"`
	PrettyProductName *string               `json:"pretty_product_name,omitempty" db:"pretty_product_name"`
	PrettyPlanName    *string               `json:"pretty_plan_name,omitempty" db:"pretty_plan_name"`
	PrettyPhaseName   *string               `json:"pretty_phase_name,omitempty" db:"pretty_phase_name"`
	Description       *string               `json:"description,omitempty" db:"description"`
	StartDate         time.Time             `json:"start_date" db:"start_date"`
	EndDate           *time.Time            `json:"end_date,omitempty" db:"end_date"`
	Amount            decimal.Decimal       `json:"amount" db:"amount"`
	Rate              *decimal.Decimal      `json:"rate,omitempty" db:"rate"`
	Currency          string                `json:"currency" db:"currency"`
	LinkedItemID      *string               `json:"linked_item_id,omitempty" db:"linked_item_id"`
	CreatedAt         time.Time             `json:"created_at" db:"created_at"`
}

// GetSubscriptionID returns the subscription id or an empty string for account level items
func (i *InvoiceItem) GetSubscriptionID() string {
	if i.SubscriptionID == nil {
		return ""
	}
	return *i.SubscriptionID
}

// GetPhaseName returns the raw phase name or an empty string
func (i *InvoiceItem) GetPhaseName() string {
	if i.PhaseName == nil {
		return ""
	}
	return *i.PhaseName
}

// resolvedPhaseName prefers the pretty phase name over the raw one
func (i *InvoiceItem) resolvedPhaseName() string {
	if i.PrettyPhaseName != nil && *i.PrettyPhaseName != "" {
		return *i.PrettyPhaseName
	}
	return i.GetPhaseName()
}

// GetDescription returns the explicit description or the one derived from the item kind
func (i *InvoiceItem) GetDescription() string {
	if i.Description != nil && *i.Description != "" {
		return *i.Description
	}

	switch i.Type {
	case types.InvoiceItemTypeFixed:
		phase := i.resolvedPhaseName()
		if phase == "" {
			return defaultFixedPriceDescription
		}
		if i.Amount.IsZero() {
			return phase
		}
		return fmt.Sprintf("%s (fixed price)", phase)
	case types.InvoiceItemTypeRecurring:
		if phase := i.resolvedPhaseName(); phase != "" {
			return phase
		}
		return defaultRecurringDescription
	case types.InvoiceItemTypeRepairAdj:
		return "Adjustment (subscription change)"
	case types.InvoiceItemTypeItemAdj:
		return "Invoice item adjustment"
	case types.InvoiceItemTypeCreditAdj:
		return "Invoice adjustment"
	case types.InvoiceItemTypeCBACredit:
		return "Adjustment (account credit)"
	case types.InvoiceItemTypeCBAUse:
		return "Adjustment (credit applied)"
	case types.InvoiceItemTypeTax:
		return "Tax"
	}
	return string(i.Type)
}

// IsRepair reports whether the item reverses another item
func (i *InvoiceItem) IsRepair() bool {
	return i.Type == types.InvoiceItemTypeRepairAdj
}

// Validate checks the fields every kind shares and the ones its kind requires
func (i *InvoiceItem) Validate() error {
	if err := i.Type.Validate(); err != nil {
		return err
	}

	details := map[string]any{
		"item_id": i.ID,
		"type":    i.Type,
		"amount":  i.Amount.String(),
	}

	if i.Currency == "" {
		return i.invalid("invoice item has no currency", details)
	}
	if !types.HasCurrencyScale(i.Amount, i.Currency) {
		details["precision"] = types.GetCurrencyPrecision(i.Currency)
		return i.invalid("invoice item amount exceeds currency precision", details)
	}
	if i.StartDate.IsZero() {
		return i.invalid("invoice item has no start date", details)
	}
	if i.EndDate != nil && !i.EndDate.After(i.StartDate) && !i.IsRepair() {
		return i.invalid("invoice item ends before it starts", details)
	}

	switch i.Type {
	case types.InvoiceItemTypeFixed:
		if i.SubscriptionID == nil || i.PhaseName == nil {
			return i.invalid("fixed price item requires a subscription and a phase", details)
		}
		if i.EndDate != nil {
			return i.invalid("fixed price item cannot carry an end date", details)
		}
		if i.Amount.IsNegative() {
			return i.invalid("fixed price item cannot be negative", details)
		}
	case types.InvoiceItemTypeRecurring:
		if i.SubscriptionID == nil || i.EndDate == nil || i.Rate == nil {
			return i.invalid("recurring item requires a subscription, an end date and a rate", details)
		}
		if i.Amount.IsNegative() {
			return i.invalid("recurring item cannot be negative", details)
		}
	case types.InvoiceItemTypeRepairAdj:
		if i.LinkedItemID == nil || i.EndDate == nil {
			return i.invalid("repair item must reference the item it reverses and its window", details)
		}
		if i.EndDate.Before(i.StartDate) {
			return i.invalid("repair item ends before it starts", details)
		}
		if !i.Amount.IsNegative() {
			return i.invalid("repair item must be negative", details)
		}
	case types.InvoiceItemTypeItemAdj:
		if i.LinkedItemID == nil {
			return i.invalid("item adjustment must reference the adjusted item", details)
		}
		if !i.Amount.IsNegative() {
			return i.invalid("item adjustment must be negative", details)
		}
	case types.InvoiceItemTypeCreditAdj:
		if !i.Amount.IsNegative() {
			return i.invalid("credit adjustment must be negative", details)
		}
	case types.InvoiceItemTypeCBACredit:
		if !i.Amount.IsPositive() {
			return i.invalid("account credit must be positive", details)
		}
	case types.InvoiceItemTypeCBAUse:
		if i.LinkedItemID == nil {
			return i.invalid("account credit use must reference the consumed credit", details)
		}
		if !i.Amount.IsNegative() {
			return i.invalid("account credit use must be negative", details)
		}
	case types.InvoiceItemTypeTax:
		if i.Amount.IsNegative() {
			return i.invalid("tax item cannot be negative", details)
		}
	}

	return nil
}

func (i *InvoiceItem) invalid(msg string, details map[string]any) error {
	return ierr.NewError(msg).
		WithHint("Invoice item is invalid").
		WithReportableDetails(details).
		Mark(ierr.ErrValidation)
}
