package testutil

import (
	"context"
	"sync/atomic"

	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// MockPostgresClient runs transactional functions without a database.
// The in-memory stores do not roll back, so tests must not rely on atomicity.
type MockPostgresClient struct {
	logger *logger.Logger
	txs    atomic.Int64
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

type mockTxKey struct{}

// WithTx executes the given function, reusing the transaction marker when nested
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(mockTxKey{}) != nil {
		return fn(ctx)
	}

	c.txs.Add(1)
	txCtx := context.WithValue(ctx, mockTxKey{}, types.GenerateUUID())
	return fn(txCtx)
}

// Transactions returns how many outermost transactions were started
func (c *MockPostgresClient) Transactions() int {
	return int(c.txs.Load())
}

// InTx reports whether ctx carries a transaction started by WithTx
func InTx(ctx context.Context) bool {
	return ctx.Value(mockTxKey{}) != nil
}
