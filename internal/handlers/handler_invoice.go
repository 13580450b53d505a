package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
	"github.com/lexledger/lexledger_backend/internal/middleware"
)

// invoiceHandler handles HTTP requests related to invoices.
type invoiceHandler struct {
	invoiceService portssvc.InvoiceSvcFacade
	paymentService portssvc.PaymentSvcFacade
}

// newInvoiceHandler creates a new invoiceHandler.
func newInvoiceHandler(is portssvc.InvoiceSvcFacade, ps portssvc.PaymentSvcFacade) *invoiceHandler {
	return &invoiceHandler{
		invoiceService: is,
		paymentService: ps,
	}
}

// registerInvoiceRoutes registers invoice routes nested under a specific firm.
// The one-shot payment flow lives here because it is addressed by invoice.
func registerInvoiceRoutes(rg *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade, paymentService portssvc.PaymentSvcFacade) {
	h := newInvoiceHandler(invoiceService, paymentService)

	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.createInvoice)
		invoices.GET("/:invoiceID", h.getInvoice)
		invoices.POST("/:invoiceID/payments", h.recordInvoicePayment)
	}
}

// createInvoice godoc
// @Summary Register an invoice
// @Description Registers an invoice with the ledger as an allocation target.
// @Tags invoices
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param invoice body dto.CreateInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Duplicate invoice number"
// @Security BearerAuth
// @Router /firms/{firm_id}/invoices [post]
func (h *invoiceHandler) createInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), firmID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create invoice")
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(invoice))
}

// getInvoice godoc
// @Summary Get an invoice
// @Description Retrieves an invoice with its current paid amount and derived status.
// @Tags invoices
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/invoices/{invoiceID} [get]
func (h *invoiceHandler) getInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	invoiceID := c.Param("invoiceID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), firmID, invoiceID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve invoice")
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// recordInvoicePayment godoc
// @Summary Record a payment against an invoice
// @Description One-shot flow: creates, allocates, and completes a payment against a single invoice.
// @Tags invoices
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param invoiceID path string true "Invoice ID"
// @Param payment body dto.RecordInvoicePaymentRequest true "Payment details"
// @Success 201 {object} dto.PaymentResponse
// @Failure 409 {object} ErrorResponse "Invoice not payable or another payment in flight"
// @Failure 422 {object} ErrorResponse "Amount exceeds balance due"
// @Security BearerAuth
// @Router /firms/{firm_id}/invoices/{invoiceID}/payments [post]
func (h *invoiceHandler) recordInvoicePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	invoiceID := c.Param("invoiceID")

	var req dto.RecordInvoicePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordInvoicePayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, err := h.paymentService.RecordInvoicePayment(c.Request.Context(), firmID, invoiceID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to record invoice payment")
		return
	}

	c.JSON(http.StatusCreated, dto.ToPaymentResponse(payment))
}

// listClientInvoices godoc
// @Summary List a client's invoices
// @Description Retrieves a paginated list of the client's invoices, newest first.
// @Tags invoices
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param clientID path string true "Client ID"
// @Param limit query int false "Page size (default 20)"
// @Param nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/clients/{clientID}/invoices [get]
func (h *invoiceHandler) listClientInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	clientID := c.Param("clientID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid limit parameter"})
			return
		}
		limit = parsed
	}
	var nextToken *string
	if token := c.Query("nextToken"); token != "" {
		nextToken = &token
	}

	resp, err := h.invoiceService.ListClientInvoices(c.Request.Context(), firmID, clientID, limit, nextToken, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list invoices")
		return
	}

	c.JSON(http.StatusOK, resp)
}
