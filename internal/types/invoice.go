package types

import (
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/samber/lo"
)

// InvoiceItemType is the kind of an invoice item
type InvoiceItemType string

const (
	// InvoiceItemTypeFixed is a one-off charge carried by a billing event
	InvoiceItemTypeFixed InvoiceItemType = "FIXED"
	// InvoiceItemTypeRecurring is a (possibly prorated) charge for a billing period
	InvoiceItemTypeRecurring InvoiceItemType = "RECURRING"
	// InvoiceItemTypeRepairAdj reverses all or the tail of a previously invoiced item
	InvoiceItemTypeRepairAdj InvoiceItemType = "REPAIR_ADJ"
	// InvoiceItemTypeItemAdj is a manual adjustment against a single item
	InvoiceItemTypeItemAdj InvoiceItemType = "ITEM_ADJ"
	// InvoiceItemTypeCreditAdj is a manual invoice level credit
	InvoiceItemTypeCreditAdj InvoiceItemType = "CREDIT_ADJ"
	// InvoiceItemTypeCBACredit banks credit into the account credit balance
	InvoiceItemTypeCBACredit InvoiceItemType = "CBA_CREDIT"
	// InvoiceItemTypeCBAUse consumes banked account credit
	InvoiceItemTypeCBAUse InvoiceItemType = "CBA_USE"
	// InvoiceItemTypeTax is computed outside of invoicing and only carried
	InvoiceItemTypeTax InvoiceItemType = "TAX"
)

func (t InvoiceItemType) String() string {
	return string(t)
}

func (t InvoiceItemType) Validate() error {
	allowed := []InvoiceItemType{
		InvoiceItemTypeFixed,
		InvoiceItemTypeRecurring,
		InvoiceItemTypeRepairAdj,
		InvoiceItemTypeItemAdj,
		InvoiceItemTypeCreditAdj,
		InvoiceItemTypeCBACredit,
		InvoiceItemTypeCBAUse,
		InvoiceItemTypeTax,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid invoice item type").
			WithHint("Please provide a valid invoice item type").
			WithReportableDetails(map[string]any{
				"type":    t,
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsCBA reports whether the item moves account credit
func (t InvoiceItemType) IsCBA() bool {
	return t == InvoiceItemTypeCBACredit || t == InvoiceItemTypeCBAUse
}

// InvoicePaymentType is the kind of a payment recorded against an invoice
type InvoicePaymentType string

const (
	InvoicePaymentTypeAttempt     InvoicePaymentType = "ATTEMPT"
	InvoicePaymentTypeRefund      InvoicePaymentType = "REFUND"
	InvoicePaymentTypeChargedBack InvoicePaymentType = "CHARGED_BACK"
)

func (t InvoicePaymentType) Validate() error {
	allowed := []InvoicePaymentType{
		InvoicePaymentTypeAttempt,
		InvoicePaymentTypeRefund,
		InvoicePaymentTypeChargedBack,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid invoice payment type").
			WithHint("Please provide a valid invoice payment type").
			WithReportableDetails(map[string]any{
				"type":    t,
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
