package testutil

import (
	"context"
	"time"

	"github.com/flexprice/invoicer/internal/domain/outbox"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
)

// InMemoryOutboxStore implements outbox.Repository. ClaimPending takes no locks.
type InMemoryOutboxStore struct {
	*InMemoryStore[*outbox.Message]
}

func NewInMemoryOutboxStore() *InMemoryOutboxStore {
	return &InMemoryOutboxStore{
		InMemoryStore: NewInMemoryStore[*outbox.Message](),
	}
}

func (s *InMemoryOutboxStore) Create(ctx context.Context, msg *outbox.Message) error {
	dup := s.List(ctx, func(_ context.Context, m *outbox.Message) bool {
		return m.DedupeKey == msg.DedupeKey
	}, nil)
	if len(dup) > 0 {
		return nil
	}
	c := *msg
	return s.InMemoryStore.Create(ctx, msg.ID, &c)
}

func (s *InMemoryOutboxStore) ClaimPending(ctx context.Context, now time.Time, limit int) ([]*outbox.Message, error) {
	msgs := s.List(ctx,
		func(_ context.Context, m *outbox.Message) bool {
			return m.Status == types.OutboxStatusPending && !m.NextAttemptAt.After(now)
		},
		func(a, b *outbox.Message) bool {
			if !a.NextAttemptAt.Equal(b.NextAttemptAt) {
				return a.NextAttemptAt.Before(b.NextAttemptAt)
			}
			return a.ID < b.ID
		},
	)
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return lo.Map(msgs, func(m *outbox.Message, _ int) *outbox.Message {
		c := *m
		return &c
	}), nil
}

func (s *InMemoryOutboxStore) Get(ctx context.Context, id string) (*outbox.Message, error) {
	msg, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := *msg
	return &c, nil
}

func (s *InMemoryOutboxStore) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, func(m *outbox.Message) {
		m.Status = types.OutboxStatusDelivered
		m.Attempts++
		m.DeliveredAt = &at
		m.LastError = nil
	})
}

func (s *InMemoryOutboxStore) MarkFailed(ctx context.Context, id string, status types.OutboxStatus, lastError string, next time.Time) error {
	return s.update(ctx, id, func(m *outbox.Message) {
		m.Status = status
		m.Attempts++
		m.LastError = &lastError
		m.NextAttemptAt = next
	})
}

func (s *InMemoryOutboxStore) update(ctx context.Context, id string, fn func(m *outbox.Message)) error {
	msg, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	c := *msg
	fn(&c)
	return s.InMemoryStore.Update(ctx, id, &c)
}

// Messages returns every stored message
func (s *InMemoryOutboxStore) Messages() []*outbox.Message {
	return s.List(context.Background(), nil, func(a, b *outbox.Message) bool {
		return a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID < b.ID)
	})
}
