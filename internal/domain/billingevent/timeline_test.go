package billingevent

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

func newEvent(subscriptionID string, effective time.Time, ordering int64, transition types.TransitionType) *BillingEvent {
	return &BillingEvent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_EVENT),
		AccountID:      "acct_1",
		SubscriptionID: subscriptionID,
		EffectiveDate:  effective,
		PlanName:       "gold-monthly",
		PhaseName:      "gold-monthly-evergreen",
		BillingPeriod:  types.BILLING_PERIOD_MONTHLY,
		RecurringPrice: lo.ToPtr(decimal.NewFromInt(30)),
		Currency:       "usd",
		BillCycleDay:   1,
		BillingMode:    types.BillingModeInAdvance,
		TotalOrdering:  ordering,
		TransitionType: transition,
	}
}

func TestNewTimelineOrdersEvents(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)
	jan15 := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

	events := []*BillingEvent{
		newEvent("sub_b", jan15, 1, types.TransitionTypeCancel),
		newEvent("sub_a", jan15, 2, types.TransitionTypeChange),
		newEvent("sub_b", jan1, 3, types.TransitionTypeCreate),
		newEvent("sub_a", jan15, 1, types.TransitionTypeChange),
		newEvent("sub_a", jan1, 9, types.TransitionTypeCreate),
	}

	timeline, err := NewTimeline(events)
	require.NoError(t, err)

	assert.Equal(t, []string{"sub_a", "sub_b"}, timeline.SubscriptionIDs())
	assert.Equal(t, 5, timeline.Len())

	subA := timeline.Events("sub_a")
	require.Len(t, subA, 3)
	assert.Equal(t, int64(9), subA[0].TotalOrdering)
	assert.Equal(t, int64(1), subA[1].TotalOrdering)
	assert.Equal(t, int64(2), subA[2].TotalOrdering)

	all := timeline.All()
	require.Len(t, all, 5)
	assert.Equal(t, "sub_a", all[0].SubscriptionID)
	assert.Equal(t, "sub_b", all[4].SubscriptionID)
	assert.Equal(t, types.TransitionTypeCancel, all[4].TransitionType)
	assert.Equal(t, []string{"usd"}, timeline.Currencies())
}

func TestNewTimelineIsDeterministic(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	events := []*BillingEvent{
		newEvent("sub_a", jan1.AddDate(0, 2, 0), 3, types.TransitionTypeChange),
		newEvent("sub_a", jan1, 1, types.TransitionTypeCreate),
		newEvent("sub_a", jan1.AddDate(0, 1, 0), 2, types.TransitionTypePhase),
	}
	reversed := lo.Reverse(append([]*BillingEvent{}, events...))

	first, err := NewTimeline(events)
	require.NoError(t, err)
	second, err := NewTimeline(reversed)
	require.NoError(t, err)

	assert.Equal(t, first.All(), second.All())
}

func TestNewTimelineRejectsAmbiguousOrdering(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	events := []*BillingEvent{
		newEvent("sub_a", jan1, 1, types.TransitionTypeCreate),
		newEvent("sub_a", jan1, 1, types.TransitionTypeChange),
	}

	_, err := NewTimeline(events)
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidEventOrdering(err))
}

func TestNewTimelineAllowsSameSequenceAcrossSubscriptions(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	events := []*BillingEvent{
		newEvent("sub_a", jan1, 1, types.TransitionTypeCreate),
		newEvent("sub_b", jan1, 1, types.TransitionTypeCreate),
	}

	_, err := NewTimeline(events)
	assert.NoError(t, err)
}

func TestNewTimelineRejectsMalformedEvents(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(e *BillingEvent)
	}{
		{name: "missing subscription", mutate: func(e *BillingEvent) { e.SubscriptionID = "" }},
		{name: "zero effective date", mutate: func(e *BillingEvent) { e.EffectiveDate = time.Time{} }},
		{name: "unknown transition", mutate: func(e *BillingEvent) { e.TransitionType = "PAUSE" }},
		{name: "unknown billing mode", mutate: func(e *BillingEvent) { e.BillingMode = "sometimes" }},
		{name: "unknown time zone", mutate: func(e *BillingEvent) { e.TimeZone = "Mars/Olympus" }},
		{name: "negative recurring price", mutate: func(e *BillingEvent) { e.RecurringPrice = lo.ToPtr(decimal.NewFromInt(-1)) }},
		{name: "missing currency", mutate: func(e *BillingEvent) { e.Currency = "" }},
		{name: "starts with cancel", mutate: func(e *BillingEvent) { e.TransitionType = types.TransitionTypeCancel }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEvent("sub_a", jan1, 1, types.TransitionTypeCreate)
			tt.mutate(e)

			_, err := NewTimeline([]*BillingEvent{e})
			require.Error(t, err)
			assert.True(t, ierr.IsInvalidEventOrdering(err))
		})
	}
}

func TestEffectiveLocalDateUsesEventTimeZone(t *testing.T) {
	e := newEvent("sub_a", time.Date(2024, time.January, 31, 23, 30, 0, 0, time.UTC), 1, types.TransitionTypeCreate)
	assert.Equal(t, types.NewDate(2024, time.January, 31), e.EffectiveLocalDate())

	e.TimeZone = "Asia/Tokyo"
	assert.Equal(t, types.NewDate(2024, time.February, 1), e.EffectiveLocalDate())
}
