package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

const (
	invoiceColumns = `id, account_id, invoice_number, invoice_date, target_date, currency, idempotency_key, created_at`

	invoiceItemColumns = `
	id, invoice_id, account_id, bundle_id, subscription_id, type,
	product_name, plan_name, phase_name, pretty_product_name, pretty_plan_name, pretty_phase_name,
	description, start_date, end_date, amount, rate, currency, linked_item_id, created_at`

	invoicePaymentColumns = `id, invoice_id, payment_id, type, amount, currency, success, payment_date, created_at`
)

// Create writes the invoice, its items and payments in one transaction.
// A second invoice with the same idempotency key is rejected as ierr.ErrAlreadyExists.
func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"account_id", inv.AccountID,
		"items", len(inv.Items),
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)

		_, err := q.NamedExecContext(ctx, `
			INSERT INTO invoices (`+invoiceColumns+`)
			VALUES (:id, :account_id, :invoice_number, :invoice_date, :target_date, :currency, :idempotency_key, :created_at)`,
			inv)
		if err != nil {
			if isUniqueViolation(err) {
				return ierr.WithError(err).
					WithHint("An invoice for this run already exists").
					WithReportableDetails(map[string]any{
						"account_id":      inv.AccountID,
						"idempotency_key": inv.IdempotencyKey,
					}).
					Mark(ierr.ErrAlreadyExists)
			}
			return ierr.WithError(err).
				WithHint("Failed to create invoice").
				Mark(ierr.ErrDatabase)
		}

		for _, item := range inv.Items {
			_, err := q.NamedExecContext(ctx, `
				INSERT INTO invoice_items (`+invoiceItemColumns+`)
				VALUES (
					:id, :invoice_id, :account_id, :bundle_id, :subscription_id, :type,
					:product_name, :plan_name, :phase_name, :pretty_product_name, :pretty_plan_name, :pretty_phase_name,
					:description, :start_date, :end_date, :amount, :rate, :currency, :linked_item_id, :created_at
				)`, item)
			if err != nil {
				return ierr.WithError(err).
					WithHint("Failed to create invoice item").
					WithReportableDetails(map[string]any{"item_id": item.ID}).
					Mark(ierr.ErrDatabase)
			}
		}

		for _, p := range inv.Payments {
			_, err := q.NamedExecContext(ctx, `
				INSERT INTO invoice_payments (`+invoicePaymentColumns+`)
				VALUES (:id, :invoice_id, :payment_id, :type, :amount, :currency, :success, :payment_date, :created_at)`,
				p)
			if err != nil {
				return ierr.WithError(err).
					WithHint("Failed to create invoice payment").
					Mark(ierr.ErrDatabase)
			}
		}
		return nil
	})
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.db.GetQuerier(ctx).GetContext(ctx, &inv,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	if err := r.loadChildren(ctx, []*invoice.Invoice{&inv}); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) ListByAccount(ctx context.Context, accountID string) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices,
		`SELECT `+invoiceColumns+` FROM invoices WHERE account_id = $1 ORDER BY invoice_date, created_at, id`,
		accountID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			WithReportableDetails(map[string]any{"account_id": accountID}).
			Mark(ierr.ErrDatabase)
	}

	if err := r.loadChildren(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// loadChildren attaches items and payments with one query each
func (r *invoiceRepository) loadChildren(ctx context.Context, invoices []*invoice.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	ids := lo.Map(invoices, func(inv *invoice.Invoice, _ int) string { return inv.ID })
	q := r.db.GetQuerier(ctx)

	var items []*invoice.InvoiceItem
	err := q.SelectContext(ctx, &items,
		`SELECT `+invoiceItemColumns+` FROM invoice_items WHERE invoice_id = ANY($1) ORDER BY created_at, id`,
		pq.Array(ids))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load invoice items").
			Mark(ierr.ErrDatabase)
	}

	var payments []*invoice.InvoicePayment
	err = q.SelectContext(ctx, &payments,
		`SELECT `+invoicePaymentColumns+` FROM invoice_payments WHERE invoice_id = ANY($1) ORDER BY payment_date, id`,
		pq.Array(ids))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load invoice payments").
			Mark(ierr.ErrDatabase)
	}

	itemsByInvoice := lo.GroupBy(items, func(i *invoice.InvoiceItem) string { return i.InvoiceID })
	paymentsByInvoice := lo.GroupBy(payments, func(p *invoice.InvoicePayment) string { return p.InvoiceID })
	for _, inv := range invoices {
		inv.Items = itemsByInvoice[inv.ID]
		if inv.Items == nil {
			inv.Items = []*invoice.InvoiceItem{}
		}
		inv.Payments = paymentsByInvoice[inv.ID]
	}
	return nil
}
