package service

import (
	"errors"
	"testing"
	"time"

	"github.com/flexprice/invoicer/internal/domain/outbox"
	"github.com/flexprice/invoicer/internal/testutil"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/stretchr/testify/suite"
)

type OutboxRelaySuite struct {
	testutil.BaseServiceTestSuite
	relay  *outboxRelay
	outbox *testutil.InMemoryOutboxStore
	clock  time.Time
}

func TestOutboxRelay(t *testing.T) {
	suite.Run(t, new(OutboxRelaySuite))
}

func (s *OutboxRelaySuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.clock = day(time.May, 1).Add(10 * time.Hour)
	s.relay = NewOutboxRelay(newTestServiceParams(&s.BaseServiceTestSuite)).(*outboxRelay)
	s.relay.now = func() time.Time { return s.clock }
	s.outbox = s.GetStores().OutboxRepo.(*testutil.InMemoryOutboxStore)
}

func (s *OutboxRelaySuite) addMessage(id string, due time.Time) *outbox.Message {
	msg := &outbox.Message{
		ID:            id,
		InvoiceID:     "inv_" + id,
		AccountID:     testAccount,
		EventType:     string(types.NotificationEventInvoiceCreated),
		Payload:       []byte(`{"invoice_id":"inv_` + id + `"}`),
		DedupeKey:     "notification-" + id,
		Status:        types.OutboxStatusPending,
		NextAttemptAt: due,
		CreatedAt:     due,
	}
	s.Require().NoError(s.outbox.Create(s.GetContext(), msg))
	return msg
}

func (s *OutboxRelaySuite) TestDeliverPendingSendsDueMessages() {
	s.addMessage("a", s.clock.Add(-time.Minute))
	s.addMessage("b", s.clock)
	s.addMessage("later", s.clock.Add(time.Minute))

	delivered, err := s.relay.DeliverPending(s.GetContext())
	s.Require().NoError(err)
	s.Equal(2, delivered)

	sent := s.GetNotifier().Sent()
	s.Require().Len(sent, 2)
	s.Equal("notification-a", sent[0].ID)
	s.Equal("notification-b", sent[1].ID)

	later, err := s.outbox.Get(s.GetContext(), "later")
	s.Require().NoError(err)
	s.Equal(types.OutboxStatusPending, later.Status)
	s.Zero(later.Attempts)

	a, err := s.outbox.Get(s.GetContext(), "a")
	s.Require().NoError(err)
	s.Equal(types.OutboxStatusDelivered, a.Status)
	s.Require().NotNil(a.DeliveredAt)
	s.Equal(s.clock, *a.DeliveredAt)
}

func (s *OutboxRelaySuite) TestDeliverPendingRespectsBatchSize() {
	s.GetConfig().Outbox.BatchSize = 1
	defer func() { s.GetConfig().Outbox.BatchSize = 50 }()

	s.addMessage("a", s.clock)
	s.addMessage("b", s.clock)

	delivered, err := s.relay.DeliverPending(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, delivered)
}

func (s *OutboxRelaySuite) TestFailedDeliveryIsRescheduled() {
	s.GetNotifier().FailWith(errors.New("503 from sink"))
	s.addMessage("a", s.clock)

	delivered, err := s.relay.DeliverPending(s.GetContext())
	s.Require().NoError(err)
	s.Zero(delivered)

	msg, err := s.outbox.Get(s.GetContext(), "a")
	s.Require().NoError(err)
	s.Equal(types.OutboxStatusPending, msg.Status)
	s.Equal(1, msg.Attempts)
	s.Equal(s.clock.Add(s.GetConfig().Outbox.PollInterval), msg.NextAttemptAt)

	// not due yet
	delivered, err = s.relay.DeliverPending(s.GetContext())
	s.Require().NoError(err)
	s.Zero(delivered)

	s.GetNotifier().FailWith(nil)
	s.clock = msg.NextAttemptAt
	delivered, err = s.relay.DeliverPending(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, delivered)
}

func (s *OutboxRelaySuite) TestGivesUpAfterMaxAttempts() {
	s.GetNotifier().FailWith(errors.New("503 from sink"))
	s.addMessage("a", s.clock)

	for i, n := 0, s.GetConfig().Outbox.MaxAttempts; i < n; i++ {
		_, err := s.relay.DeliverPending(s.GetContext())
		s.Require().NoError(err)
		msg, err := s.outbox.Get(s.GetContext(), "a")
		s.Require().NoError(err)
		s.clock = msg.NextAttemptAt
	}

	msg, err := s.outbox.Get(s.GetContext(), "a")
	s.Require().NoError(err)
	s.Equal(types.OutboxStatusFailed, msg.Status)
	s.Equal(s.GetConfig().Outbox.MaxAttempts, msg.Attempts)

	delivered, err := s.relay.DeliverPending(s.GetContext())
	s.Require().NoError(err)
	s.Zero(delivered)
}

func (s *OutboxRelaySuite) TestRetryDelayGrows() {
	interval := s.GetConfig().Outbox.PollInterval
	s.Equal(interval, s.relay.retryDelay(1))
	s.Greater(s.relay.retryDelay(2), s.relay.retryDelay(1))
	s.Greater(s.relay.retryDelay(3), s.relay.retryDelay(2))
	s.LessOrEqual(s.relay.retryDelay(100), maxRetryDelay)
}
