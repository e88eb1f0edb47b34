package service

import (
	"context"
	"slices"
	"strings"
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// BatchInvoiceRequest invoices several accounts for the same target date.
// An empty AccountIDs list means every account with billing events.
type BatchInvoiceRequest struct {
	AccountIDs []string  `json:"account_ids"`
	TargetDate time.Time `json:"target_date" validate:"required"`
	DryRun     bool      `json:"dry_run"`
}

// AccountInvoiceResult is the outcome of one account in a batch
type AccountInvoiceResult struct {
	AccountID string           `json:"account_id"`
	InvoiceID *string          `json:"invoice_id,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Error     *string          `json:"error,omitempty"`
	Retryable bool             `json:"retryable"`
}

// BatchInvoiceResult summarizes a batch run
type BatchInvoiceResult struct {
	BatchID  string                  `json:"batch_id"`
	Invoiced int                     `json:"invoiced"`
	Skipped  int                     `json:"skipped"`
	Failed   int                     `json:"failed"`
	Results  []*AccountInvoiceResult `json:"results"`
}

// BatchInvoicingService invoices many accounts in parallel. Accounts never share state,
// so one failing account does not stop the others.
type BatchInvoicingService interface {
	InvoiceAccounts(ctx context.Context, req *BatchInvoiceRequest) (*BatchInvoiceResult, error)

	// RunSchedule invoices every account up to the current date each interval until ctx is done
	RunSchedule(ctx context.Context, interval time.Duration) error
}

type batchInvoicingService struct {
	ServiceParams
	dispatcher InvoiceDispatcher
	now        func() time.Time
}

func NewBatchInvoicingService(params ServiceParams, dispatcher InvoiceDispatcher) BatchInvoicingService {
	return &batchInvoicingService{
		ServiceParams: params,
		dispatcher:    dispatcher,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *batchInvoicingService) InvoiceAccounts(ctx context.Context, req *BatchInvoiceRequest) (*BatchInvoiceResult, error) {
	if req.TargetDate.IsZero() {
		return nil, ierr.NewError("target date is required").
			WithHint("Please provide the date to invoice up to").
			Mark(ierr.ErrValidation)
	}

	accountIDs := lo.Uniq(lo.Compact(req.AccountIDs))
	if len(accountIDs) == 0 {
		ids, err := s.BillingEventRepo.ListAccountIDs(ctx)
		if err != nil {
			return nil, err
		}
		accountIDs = ids
	}

	batchID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICING_BATCH)
	log := s.Logger.With(
		"batch_id", batchID,
		"target_date", types.LocalDate(req.TargetDate, time.UTC).Format(time.DateOnly),
		"accounts", len(accountIDs),
	)
	log.Infow("batch invoicing started")

	p := pool.NewWithResults[*AccountInvoiceResult]().
		WithMaxGoroutines(max(s.Config.Invoicing.Parallelism, 1))
	for _, accountID := range accountIDs {
		accountID := accountID
		p.Go(func() *AccountInvoiceResult {
			return s.invoiceAccount(types.SetRunID(ctx, batchID+":"+accountID), accountID, req)
		})
	}
	results := p.Wait()
	slices.SortFunc(results, func(a, b *AccountInvoiceResult) int {
		return strings.Compare(a.AccountID, b.AccountID)
	})

	out := &BatchInvoiceResult{BatchID: batchID, Results: results}
	for _, r := range results {
		switch {
		case r.Error != nil:
			out.Failed++
		case r.InvoiceID != nil:
			out.Invoiced++
		default:
			out.Skipped++
		}
	}

	log.Infow("batch invoicing finished",
		"invoiced", out.Invoiced,
		"skipped", out.Skipped,
		"failed", out.Failed,
	)
	return out, nil
}

func (s *batchInvoicingService) invoiceAccount(ctx context.Context, accountID string, req *BatchInvoiceRequest) *AccountInvoiceResult {
	result := &AccountInvoiceResult{AccountID: accountID}

	inv, err := s.dispatcher.Process(ctx, &ProcessAccountRequest{
		AccountID:  accountID,
		TargetDate: req.TargetDate,
		DryRun:     req.DryRun,
	})
	if err != nil {
		result.Error = lo.ToPtr(err.Error())
		result.Retryable = ierr.IsRetryable(err)
		return result
	}
	if inv != nil {
		result.InvoiceID = lo.ToPtr(inv.ID)
		result.Amount = lo.ToPtr(inv.ItemsAmount())
	}
	return result
}

func (s *batchInvoicingService) RunSchedule(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ierr.NewError("schedule interval must be positive").
			Mark(ierr.ErrValidation)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Logger.Infow("scheduled invoicing started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.Logger.Infow("scheduled invoicing stopped")
			return nil
		case <-ticker.C:
			if _, err := s.InvoiceAccounts(ctx, &BatchInvoiceRequest{TargetDate: s.now()}); err != nil {
				s.Logger.Errorw("scheduled invoicing failed", "error", err)
			}
		}
	}
}
