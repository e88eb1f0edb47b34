package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flexprice/invoicer/internal/api/cron"
	"github.com/flexprice/invoicer/internal/api/dto"
	v1 "github.com/flexprice/invoicer/internal/api/v1"
	"github.com/flexprice/invoicer/internal/domain/proration"
	"github.com/flexprice/invoicer/internal/domain/reconciliation"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/service"
	"github.com/flexprice/invoicer/internal/testutil"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	gin.SetMode(gin.TestMode)

	stores := s.GetStores()
	params := service.ServiceParams{
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
	dispatcher := service.NewInvoiceDispatcher(params, service.NewOutboxRelay(params))

	s.router = NewRouter(Handlers{
		Health:      v1.NewHealthHandler(s.GetLogger()),
		Invoice:     v1.NewInvoiceHandler(service.NewInvoiceService(params), dispatcher, s.GetLogger()),
		CronInvoice: cron.NewInvoiceHandler(service.NewBatchInvoicingService(params, dispatcher), s.GetLogger()),
	}, s.GetConfig(), s.GetLogger())

	start := time.Date(2024, time.April, 21, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(stores.BillingEventRepo.Create(s.GetContext(),
		testutil.MonthlyEvent("acct_1", "sub_1", start, 1, types.TransitionTypeCreate, "30")))
}

func (s *RouterSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestCreateAndFetchInvoice() {
	w := s.do(http.MethodPost, "/v1/accounts/acct_1/invoices", dto.CreateAccountInvoiceRequest{TargetDate: "2024-04-21"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Invoice struct {
			ID     string          `json:"id"`
			Amount decimal.Decimal `json:"amount"`
		} `json:"invoice"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.NotEmpty(created.Invoice.ID)
	s.True(decimal.RequireFromString("10").Equal(created.Invoice.Amount))

	w = s.do(http.MethodGet, "/v1/invoices/"+created.Invoice.ID, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/v1/accounts/acct_1/invoices", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var list dto.ListInvoicesResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	s.Equal(1, list.Total)

	// nothing left to invoice
	w = s.do(http.MethodPost, "/v1/accounts/acct_1/invoices", dto.CreateAccountInvoiceRequest{TargetDate: "2024-04-21"})
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"invoice":null,"dry_run":false}`, w.Body.String())
}

func (s *RouterSuite) TestDryRun() {
	w := s.do(http.MethodPost, "/v1/accounts/acct_1/invoices", dto.CreateAccountInvoiceRequest{TargetDate: "2024-04-21", DryRun: true})
	s.Equal(http.StatusOK, w.Code)
	s.Zero(s.GetStores().InvoiceRepo.(*testutil.InMemoryInvoiceStore).Len())
}

func (s *RouterSuite) TestInvalidTargetDate() {
	w := s.do(http.MethodPost, "/v1/accounts/acct_1/invoices", dto.CreateAccountInvoiceRequest{TargetDate: "21/04/2024"})
	s.Equal(http.StatusBadRequest, w.Code)

	var body ierr.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.False(body.Success)
}

func (s *RouterSuite) TestUnknownInvoice() {
	w := s.do(http.MethodGet, "/v1/invoices/inv_missing", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestCronRunsEveryAccount() {
	w := s.do(http.MethodPost, "/v1/cron/invoices", dto.RunInvoicingRequest{TargetDate: "2024-04-21"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var result service.BatchInvoiceResult
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	s.Equal(1, result.Invoiced)
}

// doStreamed sends body without a Content-Length, as chunked and HTTP/2 clients do
func (s *RouterSuite) doStreamed(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) TestDryRunWithoutContentLength() {
	w := s.doStreamed(http.MethodPost, "/v1/accounts/acct_1/invoices", `{"target_date":"2024-04-21","dry_run":true}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Invoice *struct {
			ID string `json:"id"`
		} `json:"invoice"`
		DryRun bool `json:"dry_run"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(resp.DryRun)
	s.NotNil(resp.Invoice)
	s.Zero(s.GetStores().InvoiceRepo.(*testutil.InMemoryInvoiceStore).Len())
	s.Empty(s.GetStores().OutboxRepo.(*testutil.InMemoryOutboxStore).Messages())
}

func (s *RouterSuite) TestCronDryRunWithoutContentLength() {
	w := s.doStreamed(http.MethodPost, "/v1/cron/invoices", `{"target_date":"2024-04-21","dry_run":true}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Zero(s.GetStores().InvoiceRepo.(*testutil.InMemoryInvoiceStore).Len())
}

func (s *RouterSuite) TestMalformedStreamedBody() {
	w := s.doStreamed(http.MethodPost, "/v1/accounts/acct_1/invoices", `{"dry_run":`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Zero(s.GetStores().InvoiceRepo.(*testutil.InMemoryInvoiceStore).Len())
}
