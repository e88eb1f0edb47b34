package reconciliation

import (
	"context"
	"slices"
	"time"

	"github.com/flexprice/invoicer/internal/domain/billingevent"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/proration"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
)

// Engine turns an account's billing event timeline and invoice history into the next invoice
type Engine struct {
	calculator proration.Calculator
	logger     *logger.Logger
}

// NewEngine creates a reconciliation engine pricing recurring charges with calculator
func NewEngine(calculator proration.Calculator, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.L
	}
	return &Engine{
		calculator: calculator,
		logger:     log,
	}
}

// GenerateParams is the input of one invoice generation
type GenerateParams struct {
	AccountID string
	Timeline  *billingevent.Timeline
	// ExistingInvoices is every invoice previously persisted for the account
	ExistingInvoices []*invoice.Invoice
	// TargetDate bounds the charges that are due
	TargetDate time.Time
	// InvoiceDate defaults to the target date
	InvoiceDate time.Time
	// Currency is used when neither the timeline nor the history carries one
	Currency          string
	AllowEmptyInvoice bool
}

// Generate computes the invoice owed on the target date.
// It returns nil when nothing is owed and empty invoices are not allowed.
// Generate never mutates its input, so a run with unchanged input after the
// returned invoice was persisted yields nil.
func (e *Engine) Generate(ctx context.Context, params *GenerateParams) (*invoice.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.validateParams(params); err != nil {
		return nil, err
	}

	currency, err := resolveCurrency(params)
	if err != nil {
		return nil, err
	}

	view, err := buildExisting(params.ExistingInvoices)
	if err != nil {
		return nil, err
	}

	target := toDate(params.TargetDate)
	invoiceDate := target
	if !params.InvoiceDate.IsZero() {
		invoiceDate = toDate(params.InvoiceDate)
	}

	subscriptionIDs := lo.Uniq(append(params.Timeline.SubscriptionIDs(), view.subscriptionIDs()...))
	slices.Sort(subscriptionIDs)

	var items []*invoice.InvoiceItem
	for _, subscriptionID := range subscriptionIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		horizon := types.MaxTime(target, view.latest[subscriptionID])
		ideal, err := e.buildIdeal(ctx, params.AccountID, params.Timeline.Events(subscriptionID), horizon)
		if err != nil {
			return nil, err
		}

		subItems := reconcileSubscription(ideal, view.bySubscription[subscriptionID], target)
		e.logger.Debugw("reconciled subscription",
			"account_id", params.AccountID,
			"subscription_id", subscriptionID,
			"ideal_items", len(ideal),
			"existing_items", len(view.bySubscription[subscriptionID]),
			"new_items", len(subItems),
		)
		items = append(items, subItems...)
	}

	cbaItems, err := applyAccountCredit(params.AccountID, items, params.ExistingInvoices, invoiceDate)
	if err != nil {
		return nil, err
	}
	items = append(items, cbaItems...)

	if len(items) == 0 && !params.AllowEmptyInvoice {
		e.logger.Debugw("nothing to invoice",
			"account_id", params.AccountID,
			"target_date", target.Format(time.DateOnly),
		)
		return nil, nil
	}

	inv := newInvoice(params.AccountID, currency, target, invoiceDate, items)
	if err := inv.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Generated invoice is inconsistent").
			WithReportableDetails(map[string]any{
				"account_id":  params.AccountID,
				"target_date": target.Format(time.DateOnly),
			}).
			Mark(ierr.ErrSystem)
	}

	e.logger.Infow("generated invoice",
		"account_id", inv.AccountID,
		"invoice_id", inv.ID,
		"target_date", target.Format(time.DateOnly),
		"items", len(inv.Items),
		"amount", inv.ItemsAmount().String(),
	)
	return inv, nil
}

func (e *Engine) validateParams(params *GenerateParams) error {
	if params == nil || params.Timeline == nil {
		return ierr.NewError("missing billing event timeline").
			WithHint("A billing event timeline is required").
			Mark(ierr.ErrValidation)
	}
	if params.AccountID == "" {
		return ierr.NewError("missing account id").
			WithHint("Account ID is required").
			Mark(ierr.ErrValidation)
	}
	if params.TargetDate.IsZero() {
		return ierr.NewError("missing target date").
			WithHint("Target date is required").
			Mark(ierr.ErrValidation)
	}
	if e.calculator == nil {
		return ierr.NewError("engine has no proration calculator").
			Mark(ierr.ErrSystem)
	}
	return nil
}

// resolveCurrency picks the single currency the account is billed in
func resolveCurrency(params *GenerateParams) (string, error) {
	currencies := params.Timeline.Currencies()
	for _, inv := range params.ExistingInvoices {
		if inv.Currency != "" && !lo.Contains(currencies, inv.Currency) {
			currencies = append(currencies, inv.Currency)
		}
	}

	switch len(currencies) {
	case 0:
		if params.Currency == "" {
			return "", ierr.NewError("cannot determine invoice currency").
				WithHint("Account has no billing events and no default currency").
				Mark(ierr.ErrValidation)
		}
		return params.Currency, nil
	case 1:
		return currencies[0], nil
	default:
		return "", ierr.NewError("account billed in more than one currency").
			WithHint("All billing events of an account must share one currency").
			WithReportableDetails(map[string]any{
				"account_id": params.AccountID,
				"currencies": currencies,
			}).
			Mark(ierr.ErrInvalidEventOrdering)
	}
}

func newInvoice(accountID, currency string, target, invoiceDate time.Time, items []*invoice.InvoiceItem) *invoice.Invoice {
	now := time.Now().UTC()
	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		AccountID:     accountID,
		InvoiceNumber: types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE),
		InvoiceDate:   invoiceDate,
		TargetDate:    target,
		Currency:      currency,
		Items:         []*invoice.InvoiceItem{},
		CreatedAt:     now,
	}

	sortItems(items)
	for _, item := range items {
		if item.ID == "" {
			item.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_ITEM)
		}
		item.InvoiceID = inv.ID
		item.AccountID = accountID
		item.Currency = currency
		item.CreatedAt = now
		item.Description = lo.ToPtr(item.GetDescription())
		inv.Items = append(inv.Items, item)
	}
	return inv
}

var kindRank = map[types.InvoiceItemType]int{
	types.InvoiceItemTypeFixed:     0,
	types.InvoiceItemTypeRecurring: 1,
	types.InvoiceItemTypeRepairAdj: 2,
	types.InvoiceItemTypeItemAdj:   3,
	types.InvoiceItemTypeCreditAdj: 4,
	types.InvoiceItemTypeTax:       5,
	types.InvoiceItemTypeCBACredit: 6,
	types.InvoiceItemTypeCBAUse:    7,
}

// sortItems orders items by subscription, start date and kind with account credit moves last
func sortItems(items []*invoice.InvoiceItem) {
	slices.SortStableFunc(items, func(a, b *invoice.InvoiceItem) int {
		if ac, bc := a.Type.IsCBA(), b.Type.IsCBA(); ac != bc {
			if ac {
				return 1
			}
			return -1
		}
		if c := compareStrings(a.GetSubscriptionID(), b.GetSubscriptionID()); c != 0 {
			return c
		}
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		if c := kindRank[a.Type] - kindRank[b.Type]; c != 0 {
			return c
		}
		return lo.FromPtr(a.EndDate).Compare(lo.FromPtr(b.EndDate))
	})
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
