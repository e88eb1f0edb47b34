package cron

import (
	"net/http"
	"time"

	"github.com/flexprice/invoicer/internal/api/dto"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/rest/middleware"
	"github.com/flexprice/invoicer/internal/service"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles invoice related cron jobs
type InvoiceHandler struct {
	batchService service.BatchInvoicingService
	logger       *logger.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(batchService service.BatchInvoicingService, logger *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		batchService: batchService,
		logger:       logger,
	}
}

// RunInvoicing invoices every account with billing events, or the listed ones, up to the target date
func (h *InvoiceHandler) RunInvoicing(c *gin.Context) {
	h.logger.Infow("starting invoicing cron job", "time", time.Now().UTC().Format(time.RFC3339))

	var req dto.RunInvoicingRequest
	if err := middleware.BindOptionalJSON(c, &req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(err)
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	targetDate, err := req.GetTargetDate(time.Now())
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.batchService.InvoiceAccounts(c.Request.Context(), &service.BatchInvoiceRequest{
		AccountIDs: req.AccountIDs,
		TargetDate: targetDate,
		DryRun:     req.DryRun,
	})
	if err != nil {
		h.logger.Errorw("invoicing cron job failed", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed invoicing cron job",
		"batch_id", result.BatchID,
		"invoiced", result.Invoiced,
		"failed", result.Failed,
	)
	c.JSON(http.StatusOK, result)
}
