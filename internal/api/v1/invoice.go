package v1

import (
	"net/http"
	"time"

	"github.com/flexprice/invoicer/internal/api/dto"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/rest/middleware"
	"github.com/flexprice/invoicer/internal/service"
	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	dispatcher     service.InvoiceDispatcher
	logger         *logger.Logger
}

func NewInvoiceHandler(invoiceService service.InvoiceService, dispatcher service.InvoiceDispatcher, logger *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		dispatcher:     dispatcher,
		logger:         logger,
	}
}

// CreateAccountInvoice runs invoicing for one account.
// It answers 201 with the committed invoice, 200 for dry runs and when nothing is owed.
func (h *InvoiceHandler) CreateAccountInvoice(c *gin.Context) {
	var req dto.CreateAccountInvoiceRequest
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

	inv, err := h.dispatcher.Process(c.Request.Context(), &service.ProcessAccountRequest{
		AccountID:         c.Param("account_id"),
		TargetDate:        targetDate,
		DryRun:            req.DryRun,
		AllowEmptyInvoice: req.AllowEmpty,
	})
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusOK
	if inv != nil && !req.DryRun {
		status = http.StatusCreated
	}
	c.JSON(status, dto.CreateAccountInvoiceResponse{
		Invoice: dto.NewInvoiceResponse(inv),
		DryRun:  req.DryRun,
	})
}

func (h *InvoiceHandler) ListAccountInvoices(c *gin.Context) {
	invoices, err := h.invoiceService.ListAccountInvoices(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListInvoicesResponse(invoices))
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInvoiceResponse(inv))
}
