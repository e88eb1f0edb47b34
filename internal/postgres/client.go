package postgres

import (
	"context"

	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/logger"
	"go.uber.org/fx"
)

// IClient is the transaction boundary handed to services.
// Repositories pick the transaction up from the context through DB.GetQuerier.
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// Module provides the sqlx DB and the sentry instrumented client
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDBWithLifecycle,
			NewSentryClient,
		),
	)
}

// NewDBWithLifecycle opens the pool and closes it when the app stops
func NewDBWithLifecycle(lc fx.Lifecycle, cfg *config.Configuration, logger *logger.Logger) (*DB, error) {
	db, err := NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing postgres connection pool")
			db.Close()
			return nil
		},
	})
	return db, nil
}
