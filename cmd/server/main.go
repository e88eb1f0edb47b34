package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flexprice/invoicer/internal/api"
	"github.com/flexprice/invoicer/internal/api/cron"
	v1 "github.com/flexprice/invoicer/internal/api/v1"
	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/dynamodb"
	"github.com/flexprice/invoicer/internal/lock"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/notification"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/pubsub"
	pubsubRouter "github.com/flexprice/invoicer/internal/pubsub/router"
	"github.com/flexprice/invoicer/internal/repository"
	"github.com/flexprice/invoicer/internal/sentry"
	"github.com/flexprice/invoicer/internal/service"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/flexprice/invoicer/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,

			// Optional DBs
			dynamodb.NewClient,

			// Locks
			lock.NewLocker,

			// Repositories
			repository.NewBillingEventRepository,
			repository.NewInvoiceRepository,
			repository.NewOutboxRepository,

			// PubSub
			pubsubRouter.NewRouter,
		),
		sentry.Module(),
		postgres.Module(),
		notification.Module,
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewOutboxRelay,
			service.NewInvoiceDispatcher,
			service.NewInvoiceService,
			service.NewBatchInvoicingService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	invoiceService service.InvoiceService,
	dispatcher service.InvoiceDispatcher,
	batchService service.BatchInvoicingService,
) api.Handlers {
	return api.Handlers{
		Health:      v1.NewHealthHandler(logger),
		Invoice:     v1.NewInvoiceHandler(invoiceService, dispatcher, logger),
		CronInvoice: cron.NewInvoiceHandler(batchService, logger),
	}
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	relay service.OutboxRelay,
	batchService service.BatchInvoicingService,
	router *pubsubRouter.Router,
	ps pubsub.PubSub,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startOutboxRelay(lc, relay, log)
		startScheduler(lc, batchService, cfg, log)
		if cfg.Notification.Sink == types.NotificationSinkPubSub {
			startMessageRouter(lc, router, ps, cfg, log)
		}
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeWorker:
		startOutboxRelay(lc, relay, log)
		startScheduler(lc, batchService, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}

// startBackground runs fn until the app stops and waits for it to return
func startBackground(lc fx.Lifecycle, name string, fn func(ctx context.Context) error, log *logger.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := fn(ctx); err != nil {
					log.Errorw("background worker stopped", "worker", name, "error", err)
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Infow("stopping background worker", "worker", name)
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func startOutboxRelay(lc fx.Lifecycle, relay service.OutboxRelay, log *logger.Logger) {
	startBackground(lc, "outbox_relay", relay.Run, log)
}

func startScheduler(lc fx.Lifecycle, batchService service.BatchInvoicingService, cfg *config.Configuration, log *logger.Logger) {
	interval := cfg.Invoicing.ScheduleInterval
	if interval <= 0 {
		log.Info("scheduled invoicing disabled")
		return
	}
	startBackground(lc, "invoicing_scheduler", func(ctx context.Context) error {
		return batchService.RunSchedule(ctx, interval)
	}, log)
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	ps pubsub.PubSub,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	router.AddNoPublishHandler(
		"invoice_notification_log",
		cfg.Notification.Topic,
		ps,
		notification.NewLogHandler(log),
	)

	startBackground(lc, "message_router", router.Run, log)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return router.Close()
		},
	})
}
