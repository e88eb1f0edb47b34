package service

import (
	"testing"
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/testutil"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service    InvoiceService
	dispatcher InvoiceDispatcher
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewInvoiceService(params)
	s.dispatcher = NewInvoiceDispatcher(params, NewOutboxRelay(params))

	s.NoError(s.GetStores().BillingEventRepo.Create(s.GetContext(),
		testutil.MonthlyEvent(testAccount, "sub_1", day(time.April, 21), 1, types.TransitionTypeCreate, "30")))
}

func (s *InvoiceServiceSuite) TestGetInvoice() {
	inv, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
	s.Require().NoError(err)
	s.Require().NotNil(inv)

	got, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(inv.ID, got.ID)
	s.Equal(testAccount, got.AccountID)
	s.Len(got.Items, 1)

	_, err = s.service.GetInvoice(s.GetContext(), "inv_missing")
	s.True(ierr.IsNotFound(err))

	_, err = s.service.GetInvoice(s.GetContext(), "")
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestListAccountInvoicesInDateOrder() {
	_, err := s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.April, 21), false)
	s.Require().NoError(err)
	_, err = s.dispatcher.ProcessAccount(s.GetContext(), testAccount, day(time.May, 1), false)
	s.Require().NoError(err)

	invoices, err := s.service.ListAccountInvoices(s.GetContext(), testAccount)
	s.Require().NoError(err)
	s.Require().Len(invoices, 2)
	s.True(invoices[0].InvoiceDate.Before(invoices[1].InvoiceDate))

	others, err := s.service.ListAccountInvoices(s.GetContext(), "acct_other")
	s.Require().NoError(err)
	s.Empty(others)

	_, err = s.service.ListAccountInvoices(s.GetContext(), "")
	s.True(ierr.IsValidation(err))
}
