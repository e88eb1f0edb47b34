package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/lock"
	"github.com/flexprice/invoicer/internal/domain/proration"
	"github.com/flexprice/invoicer/internal/domain/reconciliation"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/testutil"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const testAccount = "acct_1"

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Sentry:           s.GetSentry(),
		BillingEventRepo: stores.BillingEventRepo,
		InvoiceRepo:      stores.InvoiceRepo,
		OutboxRepo:       stores.OutboxRepo,
		Locker:           s.GetLocker(),
		Notifier:         s.GetNotifier(),
		Engine:           reconciliation.NewEngine(proration.NewCalculator(), s.GetLogger()),
	}
}

type InvoiceDispatcherSuite struct {
	testutil.BaseServiceTestSuite
	dispatcher InvoiceDispatcher
	invoices   *testutil.InMemoryInvoiceStore
	outbox     *testutil.InMemoryOutboxStore
}

func TestInvoiceDispatcher(t *testing.T) {
	suite.Run(t, new(InvoiceDispatcherSuite))
}

func (s *InvoiceDispatcherSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.dispatcher = NewInvoiceDispatcher(params, NewOutboxRelay(params))
	s.invoices = s.GetStores().InvoiceRepo.(*testutil.InMemoryInvoiceStore)
	s.outbox = s.GetStores().OutboxRepo.(*testutil.InMemoryOutboxStore)

	s.NoError(s.GetStores().BillingEventRepo.Create(s.GetContext(),
		testutil.MonthlyEvent(testAccount, "sub_1", day(time.April, 21), 1, types.TransitionTypeCreate, "30")))
}

func (s *InvoiceDispatcherSuite) TestProcessAccountCommitsInvoiceAndNotification() {
	inv, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
	s.Require().NoError(err)
	s.Require().NotNil(inv)
	s.Len(inv.Items, 1)
	s.True(decimal.RequireFromString("10").Equal(inv.ItemsAmount()))
	s.NotEmpty(inv.IdempotencyKey)

	stored, err := s.invoices.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(inv.IdempotencyKey, stored.IdempotencyKey)
	s.Equal(1, s.GetDB().Transactions())

	msgs := s.outbox.Messages()
	s.Require().Len(msgs, 1)
	s.Equal(inv.ID, msgs[0].InvoiceID)
	s.Equal(types.OutboxStatusDelivered, msgs[0].Status)

	sent := s.GetNotifier().Sent()
	s.Require().Len(sent, 1)
	s.Equal(msgs[0].DedupeKey, sent[0].ID)
	s.Equal(types.NotificationEventInvoiceCreated, sent[0].EventType)
	s.Equal(inv.ID, sent[0].InvoiceID)
}

func (s *InvoiceDispatcherSuite) TestProcessAccountIsIdempotent() {
	first, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
	s.Require().NoError(err)
	s.Require().NotNil(first)

	second, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 25), false)
	s.Require().NoError(err)
	s.Nil(second)
	s.Equal(1, s.invoices.Len())
	s.Len(s.GetNotifier().Sent(), 1)
}

func (s *InvoiceDispatcherSuite) TestDryRunPersistsNothing() {
	inv, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), true)
	s.Require().NoError(err)
	s.Require().NotNil(inv)

	s.Zero(s.invoices.Len())
	s.Empty(s.outbox.Messages())
	s.Empty(s.GetNotifier().Sent())
	s.Zero(s.GetDB().Transactions())
}

func (s *InvoiceDispatcherSuite) TestNothingOwedReturnsNil() {
	inv, err := s.dispatcher.ProcessAccount(s.GetContext(), "acct_without_events", day(time.April, 21), false)
	s.NoError(err)
	s.Nil(inv)
}

func (s *InvoiceDispatcherSuite) TestAllowEmptyInvoicePersistsZeroItems() {
	inv, err := s.dispatcher.Process(s.GetContext(), &ProcessAccountRequest{
		AccountID:         "acct_without_events",
		TargetDate:        day(time.April, 21),
		AllowEmptyInvoice: true,
	})
	s.Require().NoError(err)
	s.Require().NotNil(inv)
	s.Empty(inv.Items)
	s.Equal(1, s.invoices.Len())
}

func (s *InvoiceDispatcherSuite) TestRejectsInvalidRequest() {
	_, err := s.dispatcher.Process(s.GetContext(), &ProcessAccountRequest{TargetDate: day(time.April, 21)})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceDispatcherSuite) TestLockedAccountFailsWithConcurrentInvoicing() {
	lease, err := s.GetLocker().Acquire(s.GetContext(), lock.AccountInvoicingKey(testAccount), time.Minute)
	s.Require().NoError(err)
	defer func() { _ = s.GetLocker().Release(context.Background(), lease) }()

	_, err = s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
	s.Error(err)
	s.True(ierr.IsConcurrentInvoicing(err))
	s.True(ierr.IsRetryable(err))
	s.Zero(s.invoices.Len())
}

func (s *InvoiceDispatcherSuite) TestPersistenceFailureReleasesLease() {
	s.invoices.OnCreate(func(context.Context, *invoice.Invoice) error {
		return ierr.NewError("connection reset").Mark(ierr.ErrDatabase)
	})

	_, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
	s.Error(err)
	s.True(ierr.IsPersistence(err))
	s.Empty(s.outbox.Messages())
	s.Empty(s.GetNotifier().Sent())

	lease, err := s.GetLocker().Acquire(s.GetContext(), lock.AccountInvoicingKey(testAccount), time.Minute)
	s.Require().NoError(err, "lease must be released after a failed run")
	s.NoError(s.GetLocker().Release(s.GetContext(), lease))
}

func (s *InvoiceDispatcherSuite) TestDuplicateWriteIsReportedAsConcurrentInvoicing() {
	s.invoices.OnCreate(func(context.Context, *invoice.Invoice) error {
		return ierr.NewError("duplicate key").Mark(ierr.ErrAlreadyExists)
	})

	_, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
	s.Error(err)
	s.True(ierr.IsConcurrentInvoicing(err))
}

func (s *InvoiceDispatcherSuite) TestConcurrentRunsPersistExactlyOnce() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
			if err != nil {
				s.True(ierr.IsConcurrentInvoicing(err), "unexpected error: %v", err)
				return
			}
			if inv != nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created)
	s.Equal(1, s.invoices.Len())
	s.Len(s.outbox.Messages(), 1)
}

func (s *InvoiceDispatcherSuite) TestNotificationFailureKeepsInvoicePending() {
	s.GetNotifier().FailWith(errors.New("sink unavailable"))

	inv, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
	s.Require().NoError(err)
	s.Require().NotNil(inv)

	msgs := s.outbox.Messages()
	s.Require().Len(msgs, 1)
	s.Equal(types.OutboxStatusPending, msgs[0].Status)
	s.Equal(1, msgs[0].Attempts)
	s.Require().NotNil(msgs[0].LastError)
	s.Contains(*msgs[0].LastError, "sink unavailable")
}

func (s *InvoiceDispatcherSuite) TestCancelledContextPersistsNothing() {
	ctx, cancel := context.WithCancel(s.GetContext())
	cancel()

	_, err := s.dispatcher.ProcessAccount(ctx, testAccount, day(time.April, 21), false)
	s.Error(err)
	s.Zero(s.invoices.Len())
}

func (s *InvoiceDispatcherSuite) TestRepairAfterCancellation() {
	first, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
	s.Require().NoError(err)
	s.Require().NotNil(first)

	s.Require().NoError(s.GetStores().BillingEventRepo.Create(s.GetContext(),
		testutil.CancelEvent(testAccount, "sub_1", day(time.April, 26), 2)))

	second, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 26), false)
	s.Require().NoError(err)
	s.Require().NotNil(second)

	var repairs []*invoice.InvoiceItem
	for _, item := range second.Items {
		if item.Type == types.InvoiceItemTypeRepairAdj {
			repairs = append(repairs, item)
		}
	}
	s.Require().Len(repairs, 1)
	s.True(decimal.RequireFromString("-5").Equal(repairs[0].Amount), "got %s", repairs[0].Amount)
	s.Equal(first.Items[0].ID, *repairs[0].LinkedItemID)
	s.Equal(2, s.invoices.Len())
}
