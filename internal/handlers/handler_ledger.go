package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
	"github.com/lexledger/lexledger_backend/internal/middleware"
)

// ledgerHandler handles HTTP requests against the append-only general ledger.
type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

// newLedgerHandler creates a new ledgerHandler.
func newLedgerHandler(ls portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{
		ledgerService: ls,
	}
}

// registerLedgerRoutes registers ledger routes nested under a specific firm.
func registerLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newLedgerHandler(ledgerService)

	rg.GET("/ledger-entries", h.listEntries)
	rg.GET("/payments/:paymentID/ledger-entries", h.getEntriesForPayment)
}

// listEntries godoc
// @Summary List ledger entries
// @Description Retrieves a paginated list of the firm's general-ledger entries, newest first.
// @Tags ledger
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param limit query int false "Page size (default 20)"
// @Param nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListGLEntriesResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/ledger-entries [get]
func (h *ledgerHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

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

	resp, err := h.ledgerService.ListEntries(c.Request.Context(), firmID, limit, nextToken, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list ledger entries")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getEntriesForPayment godoc
// @Summary Get ledger entries for a payment
// @Description Retrieves the ledger entries posted when the payment completed or was refunded.
// @Tags ledger
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param paymentID path string true "Payment ID"
// @Success 200 {array} dto.GLEntryResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/payments/{paymentID}/ledger-entries [get]
func (h *ledgerHandler) getEntriesForPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	paymentID := c.Param("paymentID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	entries, err := h.ledgerService.GetEntriesForPayment(c.Request.Context(), firmID, paymentID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve ledger entries")
		return
	}

	c.JSON(http.StatusOK, dto.ToGLEntryResponses(entries))
}
