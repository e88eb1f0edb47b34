package api

import (
	"github.com/flexprice/invoicer/internal/api/cron"
	v1 "github.com/flexprice/invoicer/internal/api/v1"
	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Invoice     *v1.InvoiceHandler
	CronInvoice *cron.InvoiceHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.SentryScopeMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	logger.Debugw("registered api routes", "routes", len(router.Routes()))
	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	accounts := router.Group("/accounts/:account_id")
	{
		accounts.POST("/invoices", handlers.Invoice.CreateAccountInvoice)
		accounts.GET("/invoices", handlers.Invoice.ListAccountInvoices)
	}

	invoices := router.Group("/invoices")
	{
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
	}

	cronGroup := router.Group("/cron")
	{
		cronGroup.POST("/invoices", handlers.CronInvoice.RunInvoicing)
	}
}
