package proration

import (
	"context"
	"testing"
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expectedItem struct {
	start  time.Time
	end    time.Time
	amount string
}

func date(y int, m time.Month, d int) time.Time {
	return types.NewDate(y, m, d)
}

func monthly(rate string, alignment time.Time) RecurringParams {
	return RecurringParams{
		BillingPeriod: types.BILLING_PERIOD_MONTHLY,
		BillCycleDay:  1,
		BillingMode:   types.BillingModeInAdvance,
		Rate:          decimal.RequireFromString(rate),
		Currency:      "usd",
		AlignmentDate: alignment,
		WindowStart:   alignment,
		Cutoff:        alignment,
	}
}

func TestCalculateRecurring(t *testing.T) {
	tests := []struct {
		name       string
		params     func() RecurringParams
		expected   []expectedItem
		boundaries []time.Time
	}{
		{
			name: "started ten days before period end",
			params: func() RecurringParams {
				return monthly("30", date(2024, time.April, 21))
			},
			expected:   []expectedItem{{date(2024, time.April, 21), date(2024, time.May, 1), "10.00"}},
			boundaries: []time.Time{date(2024, time.May, 1)},
		},
		{
			name: "in advance bills the period starting on the cutoff",
			params: func() RecurringParams {
				p := monthly("30", date(2024, time.January, 1))
				p.Cutoff = date(2024, time.March, 15)
				return p
			},
			expected: []expectedItem{
				{date(2024, time.January, 1), date(2024, time.February, 1), "30"},
				{date(2024, time.February, 1), date(2024, time.March, 1), "30"},
				{date(2024, time.March, 1), date(2024, time.April, 1), "30"},
			},
		},
		{
			name: "in arrears bills only elapsed periods",
			params: func() RecurringParams {
				p := monthly("30", date(2024, time.January, 1))
				p.BillingMode = types.BillingModeInArrears
				p.Cutoff = date(2024, time.March, 15)
				return p
			},
			expected: []expectedItem{
				{date(2024, time.January, 1), date(2024, time.February, 1), "30"},
				{date(2024, time.February, 1), date(2024, time.March, 1), "30"},
			},
		},
		{
			name: "window closed mid period by a later event",
			params: func() RecurringParams {
				p := monthly("30", date(2024, time.January, 1))
				p.WindowEnd = lo.ToPtr(date(2024, time.January, 15))
				return p
			},
			expected: []expectedItem{{date(2024, time.January, 1), date(2024, time.January, 15), "13.55"}},
		},
		{
			name: "bill cycle day 31 clamps in short months",
			params: func() RecurringParams {
				p := monthly("30", date(2023, time.January, 31))
				p.BillCycleDay = 31
				p.Cutoff = date(2023, time.April, 1)
				return p
			},
			expected: []expectedItem{
				{date(2023, time.January, 31), date(2023, time.February, 28), "30"},
				{date(2023, time.February, 28), date(2023, time.March, 31), "30"},
				{date(2023, time.March, 31), date(2023, time.April, 30), "30"},
			},
			boundaries: []time.Time{date(2023, time.February, 28), date(2023, time.March, 31), date(2023, time.April, 30)},
		},
		{
			name: "quarterly leading partial period",
			params: func() RecurringParams {
				p := monthly("91", date(2024, time.January, 10))
				p.BillingPeriod = types.BILLING_PERIOD_QUARTERLY
				return p
			},
			expected: []expectedItem{{date(2024, time.January, 10), date(2024, time.April, 1), "82.00"}},
		},
		{
			name: "weekly in arrears ignores bill cycle day",
			params: func() RecurringParams {
				p := monthly("7", date(2024, time.January, 1))
				p.BillingPeriod = types.BILLING_PERIOD_WEEKLY
				p.BillCycleDay = 0
				p.BillingMode = types.BillingModeInArrears
				p.Cutoff = date(2024, time.January, 20)
				return p
			},
			expected: []expectedItem{
				{date(2024, time.January, 1), date(2024, time.January, 8), "7"},
				{date(2024, time.January, 8), date(2024, time.January, 15), "7"},
			},
		},
		{
			name: "half cent rounds up",
			params: func() RecurringParams {
				p := monthly("0.07", date(2024, time.January, 1))
				p.BillingPeriod = types.BILLING_PERIOD_BIWEEKLY
				p.WindowEnd = lo.ToPtr(date(2024, time.January, 2))
				return p
			},
			expected: []expectedItem{{date(2024, time.January, 1), date(2024, time.January, 2), "0.01"}},
		},
		{
			name: "zero decimal currency",
			params: func() RecurringParams {
				p := monthly("1000", date(2024, time.January, 1))
				p.Currency = "jpy"
				p.WindowEnd = lo.ToPtr(date(2024, time.January, 11))
				return p
			},
			expected: []expectedItem{{date(2024, time.January, 1), date(2024, time.January, 11), "323"}},
		},
		{
			name: "zero length window owes nothing",
			params: func() RecurringParams {
				p := monthly("30", date(2024, time.January, 1))
				p.WindowEnd = lo.ToPtr(date(2024, time.January, 1))
				return p
			},
			expected: []expectedItem{},
		},
		{
			name: "negative window owes nothing",
			params: func() RecurringParams {
				p := monthly("30", date(2024, time.January, 10))
				p.WindowEnd = lo.ToPtr(date(2024, time.January, 5))
				return p
			},
			expected: []expectedItem{},
		},
		{
			name: "window starting after cutoff",
			params: func() RecurringParams {
				p := monthly("30", date(2024, time.January, 10))
				p.Cutoff = date(2024, time.January, 9)
				return p
			},
			expected: []expectedItem{},
		},
	}

	calc := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := calc.CalculateRecurring(context.Background(), tt.params())
			require.NoError(t, err)
			require.Len(t, result.Items, len(tt.expected))

			for i, want := range tt.expected {
				got := result.Items[i]
				assert.Equal(t, want.start, got.StartDate, "start of item %d", i)
				assert.Equal(t, want.end, got.EndDate, "end of item %d", i)
				assert.True(t, decimal.RequireFromString(want.amount).Equal(got.Amount),
					"amount of item %d: want %s got %s", i, want.amount, got.Amount)
			}
			if tt.boundaries != nil {
				assert.Equal(t, tt.boundaries, result.Boundaries)
			}
		})
	}
}

func TestCalculateRecurringTotalsMatchFullPeriods(t *testing.T) {
	// a window covering whole periods owes exactly rate per period
	p := monthly("30", date(2024, time.January, 1))
	p.WindowEnd = lo.ToPtr(date(2024, time.July, 1))
	p.Cutoff = date(2024, time.December, 31)

	result, err := NewCalculator().CalculateRecurring(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, result.Items, 6)
	assert.True(t, decimal.NewFromInt(180).Equal(result.Total()))
	for _, item := range result.Items {
		assert.False(t, item.Prorated)
	}
}

func TestCalculateRecurringErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *RecurringParams)
	}{
		{name: "bill cycle day zero", mutate: func(p *RecurringParams) { p.BillCycleDay = 0 }},
		{name: "bill cycle day above 31", mutate: func(p *RecurringParams) { p.BillCycleDay = 32 }},
		{name: "no billing period", mutate: func(p *RecurringParams) { p.BillingPeriod = types.BILLING_PERIOD_NONE }},
		{name: "unknown billing period", mutate: func(p *RecurringParams) { p.BillingPeriod = "FORTNIGHTLY" }},
		{name: "negative rate", mutate: func(p *RecurringParams) { p.Rate = decimal.NewFromInt(-1) }},
		{name: "unknown billing mode", mutate: func(p *RecurringParams) { p.BillingMode = "" }},
		{name: "window before alignment", mutate: func(p *RecurringParams) { p.WindowStart = date(2023, time.December, 1) }},
	}

	calc := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := monthly("30", date(2024, time.January, 1))
			tt.mutate(&p)

			_, err := calc.CalculateRecurring(context.Background(), p)
			require.Error(t, err)
			assert.True(t, ierr.IsProration(err))
		})
	}
}

func TestFixedAmountIsNeverProrated(t *testing.T) {
	calc := NewCalculator()
	assert.True(t, decimal.RequireFromString("25.00").Equal(calc.FixedAmount(decimal.RequireFromString("25"), "usd")))
	assert.True(t, decimal.RequireFromString("25.01").Equal(calc.FixedAmount(decimal.RequireFromString("25.005"), "usd")))
}
