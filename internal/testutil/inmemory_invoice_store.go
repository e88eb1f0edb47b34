package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	mu       sync.Mutex
	keys     map[string]string
	createFn func(ctx context.Context, inv *invoice.Invoice) error
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		keys:          make(map[string]string),
	}
}

// OnCreate installs a hook that runs before every Create. A non-nil error aborts the write.
func (s *InMemoryInvoiceStore) OnCreate(fn func(ctx context.Context, inv *invoice.Invoice) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createFn = fn
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}

	out := *inv
	out.Items = lo.Map(inv.Items, func(item *invoice.InvoiceItem, _ int) *invoice.InvoiceItem {
		c := *item
		return &c
	})
	out.Payments = lo.Map(inv.Payments, func(p *invoice.InvoicePayment, _ int) *invoice.InvoicePayment {
		c := *p
		return &c
	})
	return &out
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createFn != nil {
		if err := s.createFn(ctx, inv); err != nil {
			return err
		}
	}

	if inv.IdempotencyKey != "" {
		if existing, ok := s.keys[inv.IdempotencyKey]; ok {
			return ierr.NewError("invoice already exists").
				WithHint("An invoice for this run already exists").
				WithReportableDetails(map[string]any{"invoice_id": existing}).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	if err := s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv)); err != nil {
		return err
	}
	if inv.IdempotencyKey != "" {
		s.keys[inv.IdempotencyKey] = inv.ID
	}
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) ListByAccount(ctx context.Context, accountID string) ([]*invoice.Invoice, error) {
	invoices := s.List(ctx,
		func(_ context.Context, inv *invoice.Invoice) bool {
			return inv.AccountID == accountID
		},
		func(a, b *invoice.Invoice) bool {
			if !a.InvoiceDate.Equal(b.InvoiceDate) {
				return a.InvoiceDate.Before(b.InvoiceDate)
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		},
	)
	return lo.Map(invoices, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

func (s *InMemoryInvoiceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InMemoryStore.Clear()
	s.keys = make(map[string]string)
	s.createFn = nil
}
