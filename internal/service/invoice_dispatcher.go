package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/invoicer/internal/domain/billingevent"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/lock"
	"github.com/flexprice/invoicer/internal/domain/outbox"
	"github.com/flexprice/invoicer/internal/domain/reconciliation"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/idempotency"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/notification"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/flexprice/invoicer/internal/validator"
	"github.com/samber/lo"
)

const leaseReleaseTimeout = 5 * time.Second

// ProcessAccountRequest asks for the invoice of one account up to a target date
type ProcessAccountRequest struct {
	AccountID  string    `json:"account_id" validate:"required"`
	TargetDate time.Time `json:"target_date" validate:"required"`
	// DryRun computes the invoice without persisting or announcing it
	DryRun bool `json:"dry_run"`
	// AllowEmptyInvoice persists an invoice even when nothing is owed
	AllowEmptyInvoice bool `json:"allow_empty_invoice"`
}

func (r *ProcessAccountRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// InvoiceDispatcher runs invoicing for one account at a time
type InvoiceDispatcher interface {
	// ProcessAccount invoices the account up to targetDate. It returns nil when nothing is owed.
	ProcessAccount(ctx context.Context, accountID string, targetDate time.Time, dryRun bool) (*invoice.Invoice, error)

	// Process is ProcessAccount with every run option exposed
	Process(ctx context.Context, req *ProcessAccountRequest) (*invoice.Invoice, error)
}

type invoiceDispatcher struct {
	ServiceParams
	relay    OutboxRelay
	idempGen *idempotency.Generator
	now      func() time.Time
}

func NewInvoiceDispatcher(params ServiceParams, relay OutboxRelay) InvoiceDispatcher {
	return &invoiceDispatcher{
		ServiceParams: params,
		relay:         relay,
		idempGen:      idempotency.NewGenerator(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *invoiceDispatcher) ProcessAccount(ctx context.Context, accountID string, targetDate time.Time, dryRun bool) (*invoice.Invoice, error) {
	return s.Process(ctx, &ProcessAccountRequest{
		AccountID:  accountID,
		TargetDate: targetDate,
		DryRun:     dryRun,
	})
}

func (s *invoiceDispatcher) Process(ctx context.Context, req *ProcessAccountRequest) (*invoice.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	targetDate := types.LocalDate(req.TargetDate, time.UTC)
	ctx = types.SetAccountID(ctx, req.AccountID)
	if types.GetRunID(ctx) == "" {
		ctx = types.SetRunID(ctx, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICING_RUN))
	}
	log := s.Logger.With(
		"account_id", req.AccountID,
		"target_date", targetDate.Format(time.DateOnly),
		"dry_run", req.DryRun,
		"run_id", types.GetRunID(ctx),
	)

	lease, err := s.acquire(ctx, req.AccountID)
	if err != nil {
		log.Warnw("invoicing run skipped, account is locked", "error", err)
		return nil, err
	}
	defer s.release(ctx, lease, log)

	inv, err := s.generate(ctx, req, targetDate)
	if err != nil {
		log.Errorw("invoice generation failed", "error", err)
		return nil, err
	}
	if inv == nil {
		log.Infow("nothing to invoice")
		return nil, nil
	}
	if req.DryRun {
		log.Infow("dry run computed invoice",
			"items", len(inv.Items),
			"amount", inv.ItemsAmount().String(),
		)
		return inv, nil
	}

	// A cancelled caller must not leave a half decided run behind
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg, err := s.persist(ctx, inv)
	if err != nil {
		log.Errorw("failed to persist invoice", "invoice_id", inv.ID, "error", err)
		if ierr.IsPersistence(err) {
			s.Sentry.CaptureInvoicingFailure(err, req.AccountID, targetDate, req.DryRun)
		}
		return nil, err
	}
	log.Infow("invoice committed",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"items", len(inv.Items),
	)

	if s.relay != nil {
		if err := s.relay.Deliver(ctx, msg); err != nil {
			log.Warnw("immediate notification failed, the relay will retry",
				"invoice_id", inv.ID,
				"outbox_id", msg.ID,
				"error", err,
			)
		}
	}
	return inv, nil
}

func (s *invoiceDispatcher) acquire(ctx context.Context, accountID string) (*lock.Lease, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.Config.Invoicing.LockTimeout)
	defer cancel()
	return s.Locker.Acquire(lockCtx, lock.AccountInvoicingKey(accountID), s.Config.Invoicing.LockTTL)
}

// release runs on a context that survives the caller's cancellation
func (s *invoiceDispatcher) release(ctx context.Context, lease *lock.Lease, log *logger.Logger) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaseReleaseTimeout)
	defer cancel()
	if err := s.Locker.Release(releaseCtx, lease); err != nil {
		log.Errorw("failed to release invoicing lease", "key", lease.Key, "error", err)
	}
}

func (s *invoiceDispatcher) generate(ctx context.Context, req *ProcessAccountRequest, targetDate time.Time) (*invoice.Invoice, error) {
	events, err := s.BillingEventRepo.GetBillingEvents(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	existing, err := s.InvoiceRepo.ListByAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	timeline, err := billingevent.NewTimeline(events)
	if err != nil {
		return nil, err
	}

	inv, err := s.Engine.Generate(ctx, &reconciliation.GenerateParams{
		AccountID:         req.AccountID,
		Timeline:          timeline,
		ExistingInvoices:  existing,
		TargetDate:        targetDate,
		Currency:          s.Config.Invoicing.DefaultCurrency,
		AllowEmptyInvoice: req.AllowEmptyInvoice,
	})
	if err != nil || inv == nil {
		return nil, err
	}

	inv.IdempotencyKey = s.invoiceKey(inv)
	return inv, nil
}

// invoiceKey identifies the invoice by what it charges rather than by its generated ids,
// so a retried or concurrent run computing the same items collides on the unique key
func (s *invoiceDispatcher) invoiceKey(inv *invoice.Invoice) string {
	itemKeys := lo.Map(inv.Items, func(item *invoice.InvoiceItem, _ int) string {
		end := ""
		if item.EndDate != nil {
			end = item.EndDate.Format(time.DateOnly)
		}
		return fmt.Sprintf("%s|%s|%s|%s|%s|%s",
			item.Type,
			item.GetSubscriptionID(),
			item.StartDate.Format(time.DateOnly),
			end,
			item.Amount.String(),
			lo.FromPtr(item.LinkedItemID),
		)
	})

	return s.idempGen.GenerateKey(idempotency.ScopeInvoice, map[string]interface{}{
		"account_id":  inv.AccountID,
		"target_date": inv.TargetDate.Format(time.DateOnly),
		"items":       itemKeys,
	})
}

// persist commits the invoice and its notification together. The write runs on a
// context detached from the caller so a late cancellation cannot split the transaction.
func (s *invoiceDispatcher) persist(ctx context.Context, inv *invoice.Invoice) (*outbox.Message, error) {
	msg, err := s.newOutboxMessage(inv)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(context.WithoutCancel(ctx), func(txCtx context.Context) error {
		if err := s.InvoiceRepo.Create(txCtx, inv); err != nil {
			return err
		}
		return s.OutboxRepo.Create(txCtx, msg)
	})
	if err == nil {
		return msg, nil
	}

	details := map[string]any{
		"account_id": inv.AccountID,
		"invoice_id": inv.ID,
	}
	if ierr.IsAlreadyExists(err) {
		return nil, ierr.WithError(err).
			WithHint("Another invoicing run already committed this invoice").
			WithReportableDetails(details).
			Mark(ierr.ErrConcurrentInvoicing)
	}
	return nil, ierr.WithError(err).
		WithHint("Failed to persist invoice").
		WithReportableDetails(details).
		Mark(ierr.ErrPersistence)
}

func (s *invoiceDispatcher) newOutboxMessage(inv *invoice.Invoice) (*outbox.Message, error) {
	payload, err := notification.EncodePayload(notification.NewInvoicePayload(inv))
	if err != nil {
		return nil, err
	}

	eventType := string(types.NotificationEventInvoiceCreated)
	now := s.now()
	return &outbox.Message{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_OUTBOX),
		InvoiceID: inv.ID,
		AccountID: inv.AccountID,
		EventType: eventType,
		Payload:   payload,
		DedupeKey: s.idempGen.GenerateKey(idempotency.ScopeNotification, map[string]interface{}{
			"invoice_id": inv.ID,
			"event_type": eventType,
		}),
		Status:        types.OutboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}, nil
}
