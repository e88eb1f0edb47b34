package invoice

import (
	"context"
)

// Repository is the invoice store. It has no update: persisted invoices are immutable.
type Repository interface {
	// Create stores the invoice with its items and payments atomically
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice with its items and payments
	Get(ctx context.Context, id string) (*Invoice, error)

	// ListByAccount returns every invoice of an account, oldest first, with items and payments
	ListByAccount(ctx context.Context, accountID string) ([]*Invoice, error)
}
