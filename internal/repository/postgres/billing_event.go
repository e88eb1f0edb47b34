package postgres

import (
	"context"

	"github.com/flexprice/invoicer/internal/domain/billingevent"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
)

type billingEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewBillingEventRepository(db *postgres.DB, logger *logger.Logger) billingevent.Repository {
	return &billingEventRepository{db: db, logger: logger}
}

const billingEventColumns = `
	id, account_id, bundle_id, subscription_id, effective_date, time_zone,
	product_name, plan_name, phase_name, pretty_product_name, pretty_plan_name, pretty_phase_name,
	billing_period, fixed_price, recurring_price, currency, bill_cycle_day, billing_mode,
	total_ordering, transition_type, description, created_at`

func (r *billingEventRepository) Create(ctx context.Context, event *billingevent.BillingEvent) error {
	query := `
		INSERT INTO billing_events (` + billingEventColumns + `
		) VALUES (
			:id, :account_id, :bundle_id, :subscription_id, :effective_date, :time_zone,
			:product_name, :plan_name, :phase_name, :pretty_product_name, :pretty_plan_name, :pretty_phase_name,
			:billing_period, :fixed_price, :recurring_price, :currency, :bill_cycle_day, :billing_mode,
			:total_ordering, :transition_type, :description, :created_at
		)`

	r.logger.Debugw("creating billing event",
		"event_id", event.ID,
		"account_id", event.AccountID,
		"subscription_id", event.SubscriptionID,
	)

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, event); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("Billing event %s already exists", event.ID).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create billing event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *billingEventRepository) GetBillingEvents(ctx context.Context, accountID string) ([]*billingevent.BillingEvent, error) {
	query := `
		SELECT ` + billingEventColumns + `
		FROM billing_events
		WHERE account_id = $1
		ORDER BY subscription_id, effective_date, total_ordering`

	var events []*billingevent.BillingEvent
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &events, query, accountID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load billing events").
			WithReportableDetails(map[string]any{"account_id": accountID}).
			Mark(ierr.ErrDatabase)
	}
	return events, nil
}

func (r *billingEventRepository) ListAccountIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &ids,
		`SELECT DISTINCT account_id FROM billing_events ORDER BY account_id`)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list accounts").
			Mark(ierr.ErrDatabase)
	}
	return ids, nil
}
