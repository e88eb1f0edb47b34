package billingevent

import "context"

// Repository is the event source of invoicing runs
type Repository interface {
	// GetBillingEvents returns every billing event of an account as of now
	GetBillingEvents(ctx context.Context, accountID string) ([]*BillingEvent, error)

	// ListAccountIDs returns the accounts that have at least one billing event
	ListAccountIDs(ctx context.Context) ([]string, error)

	// Create stores a billing event produced by a subscription lifecycle operation
	Create(ctx context.Context, event *BillingEvent) error
}
