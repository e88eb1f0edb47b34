package testutil

import (
	"context"
	"time"

	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/domain/billingevent"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/lock"
	"github.com/flexprice/invoicer/internal/domain/outbox"
	memoryLock "github.com/flexprice/invoicer/internal/lock/memory"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/sentry"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/flexprice/invoicer/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	BillingEventRepo billingevent.Repository
	InvoiceRepo      invoice.Repository
	OutboxRepo       outbox.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	db       *MockPostgresClient
	locker   lock.Locker
	notifier *FakeNotifier
	sentry   *sentry.Service
	logger   *logger.Logger
	config   *config.Configuration
	now      time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Locker.Backend = types.LockBackendMemory
	cfg.Invoicing.DefaultCurrency = "usd"
	cfg.Invoicing.LockTimeout = 200 * time.Millisecond
	cfg.Outbox.PollInterval = time.Second
	cfg.Outbox.MaxAttempts = 3

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.sentry = sentry.NewSentryService(cfg, s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		BillingEventRepo: NewInMemoryBillingEventStore(),
		InvoiceRepo:      NewInMemoryInvoiceStore(),
		OutboxRepo:       NewInMemoryOutboxStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.locker = memoryLock.NewLocker(s.logger)
	s.notifier = NewFakeNotifier()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.BillingEventRepo.(*InMemoryBillingEventStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.OutboxRepo.(*InMemoryOutboxStore).Clear()
	s.notifier.Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test transaction client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetLocker returns the in-process locker shared by the test
func (s *BaseServiceTestSuite) GetLocker() lock.Locker {
	return s.locker
}

// GetNotifier returns the recording notifier
func (s *BaseServiceTestSuite) GetNotifier() *FakeNotifier {
	return s.notifier
}

// GetSentry returns a disabled Sentry service
func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
