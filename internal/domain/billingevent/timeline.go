package billingevent

import (
	"slices"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/samber/lo"
)

// Timeline is a point in time snapshot of an account's billing events,
// grouped per subscription and totally ordered.
type Timeline struct {
	subscriptionIDs []string
	events          map[string][]*BillingEvent
}

// NewTimeline validates and orders events. Two events of one subscription that share
// an effective instant and a total ordering are ambiguous and rejected.
func NewTimeline(events []*BillingEvent) (*Timeline, error) {
	for _, e := range events {
		if e == nil {
			return nil, ierr.NewError("nil billing event").
				WithHint("Billing event timeline contains an empty event").
				Mark(ierr.ErrInvalidEventOrdering)
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, Compare)

	grouped := lo.GroupBy(sorted, func(e *BillingEvent) string {
		return e.SubscriptionID
	})

	for subscriptionID, subEvents := range grouped {
		for i := 1; i < len(subEvents); i++ {
			if Compare(subEvents[i-1], subEvents[i]) == 0 {
				return nil, ierr.NewError("ambiguous billing event ordering").
					WithHint("Two billing events of a subscription share an effective date and sequence number").
					WithReportableDetails(map[string]any{
						"subscription_id": subscriptionID,
						"effective_date":  subEvents[i].EffectiveDate,
						"total_ordering":  subEvents[i].TotalOrdering,
					}).
					Mark(ierr.ErrInvalidEventOrdering)
			}
		}
		if !subEvents[0].IsBilling() {
			return nil, ierr.NewError("subscription timeline starts with a non billing transition").
				WithHint("The first billing event of a subscription must start billing").
				WithReportableDetails(map[string]any{
					"subscription_id": subscriptionID,
					"transition_type": subEvents[0].TransitionType,
				}).
				Mark(ierr.ErrInvalidEventOrdering)
		}
	}

	ids := lo.Keys(grouped)
	slices.Sort(ids)

	return &Timeline{
		subscriptionIDs: ids,
		events:          grouped,
	}, nil
}

// SubscriptionIDs returns the subscriptions present in the timeline in ascending order
func (t *Timeline) SubscriptionIDs() []string {
	return slices.Clone(t.subscriptionIDs)
}

// Events returns the ordered events of one subscription
func (t *Timeline) Events(subscriptionID string) []*BillingEvent {
	return slices.Clone(t.events[subscriptionID])
}

// All returns every event in timeline order
func (t *Timeline) All() []*BillingEvent {
	out := make([]*BillingEvent, 0, t.Len())
	for _, id := range t.subscriptionIDs {
		out = append(out, t.events[id]...)
	}
	return out
}

// Len returns the number of events in the timeline
func (t *Timeline) Len() int {
	n := 0
	for _, events := range t.events {
		n += len(events)
	}
	return n
}

// Currencies returns the distinct currencies used by the timeline
func (t *Timeline) Currencies() []string {
	return lo.Uniq(lo.Map(t.All(), func(e *BillingEvent, _ int) string {
		return e.Currency
	}))
}
