package testutil

import (
	"context"
	"slices"

	"github.com/flexprice/invoicer/internal/domain/billingevent"
	"github.com/samber/lo"
)

// InMemoryBillingEventStore implements billingevent.Repository
type InMemoryBillingEventStore struct {
	*InMemoryStore[*billingevent.BillingEvent]
}

func NewInMemoryBillingEventStore() *InMemoryBillingEventStore {
	return &InMemoryBillingEventStore{
		InMemoryStore: NewInMemoryStore[*billingevent.BillingEvent](),
	}
}

func (s *InMemoryBillingEventStore) Create(ctx context.Context, event *billingevent.BillingEvent) error {
	c := *event
	return s.InMemoryStore.Create(ctx, event.ID, &c)
}

func (s *InMemoryBillingEventStore) GetBillingEvents(ctx context.Context, accountID string) ([]*billingevent.BillingEvent, error) {
	events := s.List(ctx, func(_ context.Context, e *billingevent.BillingEvent) bool {
		return e.AccountID == accountID
	}, nil)
	slices.SortFunc(events, billingevent.Compare)
	return events, nil
}

func (s *InMemoryBillingEventStore) ListAccountIDs(ctx context.Context) ([]string, error) {
	events := s.List(ctx, nil, nil)
	ids := lo.Uniq(lo.Map(events, func(e *billingevent.BillingEvent, _ int) string {
		return e.AccountID
	}))
	slices.Sort(ids)
	return ids, nil
}
