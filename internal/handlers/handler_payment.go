package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
	"github.com/lexledger/lexledger_backend/internal/middleware"
)

// paymentHandler handles HTTP requests related to payments.
type paymentHandler struct {
	paymentService portssvc.PaymentSvcFacade
}

// newPaymentHandler creates a new paymentHandler.
func newPaymentHandler(ps portssvc.PaymentSvcFacade) *paymentHandler {
	return &paymentHandler{
		paymentService: ps,
	}
}

// registerPaymentRoutes registers payment routes nested under a specific firm.
func registerPaymentRoutes(rg *gin.RouterGroup, paymentService portssvc.PaymentSvcFacade) {
	h := newPaymentHandler(paymentService)

	payments := rg.Group("/payments")
	{
		payments.POST("", h.createPayment)
		payments.GET("", h.listPayments)
		payments.GET("/:paymentID", h.getPayment)
		payments.POST("/:paymentID/complete", h.completePayment)
		payments.POST("/:paymentID/fail", h.failPayment)
		payments.POST("/:paymentID/retry", h.retryPayment)
		payments.POST("/:paymentID/refund", h.refundPayment)
		payments.POST("/:paymentID/reconcile", h.reconcilePayment)
		payments.POST("/:paymentID/applications", h.applyToInvoices)
		payments.DELETE("/:paymentID/applications/:invoiceID", h.unapplyFromInvoice)
		payments.PATCH("/:paymentID/notes", h.updatePaymentNotes)
		payments.DELETE("/:paymentID", h.deletePayment)
	}
}

// createPayment godoc
// @Summary Create a payment
// @Description Creates a new payment in PENDING. Supplying an idempotency key makes the request replay-safe.
// @Tags payments
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param payment body dto.CreatePaymentRequest true "Payment details"
// @Success 201 {object} dto.CreatePaymentResponse
// @Success 200 {object} dto.CreatePaymentResponse "Replayed via idempotency key"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Idempotency key reused with different parameters"
// @Security BearerAuth
// @Router /firms/{firm_id}/payments [post]
func (h *paymentHandler) createPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreatePayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, replayed, err := h.paymentService.CreatePayment(c.Request.Context(), firmID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create payment")
		return
	}

	resp := dto.CreatePaymentResponse{
		PaymentResponse: dto.ToPaymentResponse(payment),
		AlreadyExisted:  replayed,
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// getPayment godoc
// @Summary Get a payment
// @Description Retrieves a payment with its invoice applications.
// @Tags payments
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID} [get]
func (h *paymentHandler) getPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, err := h.paymentService.GetPaymentByID(c.Request.Context(), firmID, paymentID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve payment")
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// listPayments godoc
// @Summary List payments
// @Description Retrieves a paginated list of the firm's payments, optionally filtered by client or status.
// @Tags payments
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param clientID query string false "Filter by client ID"
// @Param status query string false "Filter by payment status"
// @Param limit query int false "Page size (default 20)"
// @Param nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/payments [get]
func (h *paymentHandler) listPayments(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var params dto.ListPaymentsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListPayments", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}
	resp, err := h.paymentService.ListPayments(c.Request.Context(), firmID, params, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list payments")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// completePayment godoc
// @Summary Complete a payment
// @Description Moves a payment through PROCESSING to COMPLETED, applying allocations and posting the ledger entry.
// @Tags payments
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Param completion body dto.CompletePaymentRequest false "Optional explicit allocations"
// @Success 200 {object} dto.PaymentResponse
// @Failure 409 {object} ErrorResponse "Payment not in a completable state"
// @Failure 422 {object} ErrorResponse "Allocation exceeds available amount"
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID}/complete [post]
func (h *paymentHandler) completePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	var req dto.CompletePaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for CompletePayment", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
			return
		}
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, err := h.paymentService.CompletePayment(c.Request.Context(), firmID, paymentID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to complete payment")
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// failPayment godoc
// @Summary Fail a payment
// @Description Moves a PENDING or PROCESSING payment to FAILED with a reason.
// @Tags payments
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Param failure body dto.FailPaymentRequest true "Failure reason"
// @Success 200 {object} dto.PaymentResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID}/fail [post]
func (h *paymentHandler) failPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	var req dto.FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for FailPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, err := h.paymentService.FailPayment(c.Request.Context(), firmID, paymentID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to mark payment as failed")
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// retryPayment godoc
// @Summary Retry a failed payment
// @Description Moves a FAILED payment back to PENDING, keeping the failure history.
// @Tags payments
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID}/retry [post]
func (h *paymentHandler) retryPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, err := h.paymentService.RetryPayment(c.Request.Context(), firmID, paymentID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retry payment")
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// refundPayment godoc
// @Summary Refund a payment
// @Description Creates a compensating refund record and moves the original payment to REFUNDED.
// @Tags payments
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Param refund body dto.RefundPaymentRequest true "Refund details"
// @Success 201 {object} dto.PaymentResponse "The refund payment record"
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID}/refund [post]
func (h *paymentHandler) refundPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	var req dto.RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RefundPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	refund, err := h.paymentService.RefundPayment(c.Request.Context(), firmID, paymentID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to refund payment")
		return
	}

	c.JSON(http.StatusCreated, dto.ToPaymentResponse(refund))
}

// reconcilePayment godoc
// @Summary Reconcile a payment
// @Description Matches a COMPLETED payment to an external bank statement line.
// @Tags payments
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Param reconciliation body dto.ReconcilePaymentRequest true "Statement reference"
// @Success 200 {object} dto.PaymentResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID}/reconcile [post]
func (h *paymentHandler) reconcilePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	var req dto.ReconcilePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReconcilePayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, err := h.paymentService.ReconcilePayment(c.Request.Context(), firmID, paymentID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to reconcile payment")
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// applyToInvoices godoc
// @Summary Apply a payment to invoices
// @Description Allocates a completed payment's unapplied funds across one or more invoices.
// @Tags payments
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Param allocations body dto.ApplyToInvoicesRequest true "Invoice allocations"
// @Success 200 {object} dto.PaymentResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Allocation exceeds available amount"
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID}/applications [post]
func (h *paymentHandler) applyToInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	var req dto.ApplyToInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ApplyToInvoices", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, err := h.paymentService.ApplyToInvoices(c.Request.Context(), firmID, paymentID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to apply payment to invoices")
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// unapplyFromInvoice godoc
// @Summary Unapply a payment from an invoice
// @Description Reverses a payment's allocations against a single invoice, restoring its balance.
// @Tags payments
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Param invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} ErrorResponse "No allocations against the invoice"
// @Failure 409 {object} ErrorResponse "Payment reconciled or refunded"
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID}/applications/{invoiceID} [delete]
func (h *paymentHandler) unapplyFromInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")
	invoiceID := c.Param("invoiceID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, err := h.paymentService.UnapplyFromInvoice(c.Request.Context(), firmID, paymentID, invoiceID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to unapply payment from invoice")
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// updatePaymentNotes godoc
// @Summary Update payment notes
// @Description Updates the auxiliary notes on a payment; permitted in any lifecycle state.
// @Tags payments
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Param notes body dto.UpdatePaymentNotesRequest true "New notes"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID}/notes [patch]
func (h *paymentHandler) updatePaymentNotes(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	var req dto.UpdatePaymentNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdatePaymentNotes", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	payment, err := h.paymentService.UpdatePaymentNotes(c.Request.Context(), firmID, paymentID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to update payment notes")
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// deletePayment godoc
// @Summary Delete a payment
// @Description Removes a payment still in PENDING or FAILED. Requires firm admin rights.
// @Tags payments
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Success 204 "No Content"
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Payment past the deletable states"
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID} [delete]
func (h *paymentHandler) deletePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.paymentService.DeletePayment(c.Request.Context(), firmID, paymentID, userID); err != nil {
		respondServiceError(c, logger, err, "Failed to delete payment")
		return
	}

	c.Status(http.StatusNoContent)
}
