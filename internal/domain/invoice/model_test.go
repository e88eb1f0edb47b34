package invoice

import (
	"testing"
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, kind types.InvoiceItemType, amount string, linked *string) *InvoiceItem {
	return &InvoiceItem{
		ID:           id,
		InvoiceID:    "inv_1",
		AccountID:    "acct_1",
		Type:         kind,
		StartDate:    types.NewDate(2024, time.January, 1),
		Amount:       decimal.RequireFromString(amount),
		Currency:     "usd",
		LinkedItemID: linked,
	}
}

func TestInvoiceBalance(t *testing.T) {
	inv := &Invoice{
		ID:        "inv_1",
		AccountID: "acct_1",
		Currency:  "usd",
		Items: []*InvoiceItem{
			item("a", types.InvoiceItemTypeRecurring, "30.00", nil),
			item("b", types.InvoiceItemTypeFixed, "25.00", nil),
			item("c", types.InvoiceItemTypeCBAUse, "-5.00", lo.ToPtr("credit")),
		},
		Payments: []*InvoicePayment{
			{ID: "p1", InvoiceID: "inv_1", Type: types.InvoicePaymentTypeAttempt, Amount: decimal.RequireFromString("20"), Success: true},
			{ID: "p2", InvoiceID: "inv_1", Type: types.InvoicePaymentTypeAttempt, Amount: decimal.RequireFromString("50"), Success: false},
			{ID: "p3", InvoiceID: "inv_1", Type: types.InvoicePaymentTypeRefund, Amount: decimal.RequireFromString("-5"), Success: true},
		},
	}

	assert.True(t, decimal.RequireFromString("50").Equal(inv.ItemsAmount()))
	assert.True(t, decimal.RequireFromString("55").Equal(inv.ChargedAmount()))
	assert.True(t, decimal.RequireFromString("-5").Equal(inv.CBAAmount()))
	assert.True(t, decimal.RequireFromString("15").Equal(inv.PaidAmount()))
	assert.True(t, decimal.RequireFromString("35").Equal(inv.Balance()))
}

func TestAvailableCreditsOldestFirst(t *testing.T) {
	older := &Invoice{
		ID:          "inv_old",
		InvoiceDate: types.NewDate(2024, time.January, 1),
		Items:       []*InvoiceItem{item("credit_old", types.InvoiceItemTypeCBACredit, "10.00", nil)},
	}
	newer := &Invoice{
		ID:          "inv_new",
		InvoiceDate: types.NewDate(2024, time.February, 1),
		Items: []*InvoiceItem{
			item("credit_new", types.InvoiceItemTypeCBACredit, "7.00", nil),
			item("use_old", types.InvoiceItemTypeCBAUse, "-4.00", lo.ToPtr("credit_old")),
		},
	}

	credits, err := AvailableCredits([]*Invoice{newer, older})
	require.NoError(t, err)
	require.Len(t, credits, 2)
	assert.Equal(t, "credit_old", credits[0].Item.ID)
	assert.True(t, decimal.RequireFromString("6").Equal(credits[0].Remaining))
	assert.Equal(t, "credit_new", credits[1].Item.ID)
	assert.True(t, decimal.RequireFromString("13").Equal(CBABalance([]*Invoice{older, newer})))
}

func TestAvailableCreditsRejectsOverConsumption(t *testing.T) {
	inv := &Invoice{
		ID: "inv_1",
		Items: []*InvoiceItem{
			item("credit", types.InvoiceItemTypeCBACredit, "5.00", nil),
			item("use", types.InvoiceItemTypeCBAUse, "-6.00", lo.ToPtr("credit")),
		},
	}

	_, err := AvailableCredits([]*Invoice{inv})
	require.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrSystem))
}

func TestInvoiceValidateRejectsForeignItems(t *testing.T) {
	inv := &Invoice{
		ID:        "inv_1",
		AccountID: "acct_1",
		Currency:  "usd",
		Items:     []*InvoiceItem{item("a", types.InvoiceItemTypeCreditAdj, "-5.00", nil)},
	}
	require.NoError(t, inv.Validate())

	inv.Items[0].InvoiceID = "inv_2"
	assert.Error(t, inv.Validate())
}
