package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
	"github.com/lexledger/lexledger_backend/internal/middleware"
)

// clientHandler handles HTTP requests related to clients.
type clientHandler struct {
	clientService portssvc.ClientSvcFacade
}

// newClientHandler creates a new clientHandler.
func newClientHandler(cs portssvc.ClientSvcFacade) *clientHandler {
	return &clientHandler{
		clientService: cs,
	}
}

// registerClientRoutes registers client routes nested under a specific firm.
// The client's invoice listing is registered here too since it is addressed by client.
func registerClientRoutes(rg *gin.RouterGroup, clientService portssvc.ClientSvcFacade, invoiceService portssvc.InvoiceSvcFacade, paymentService portssvc.PaymentSvcFacade) {
	h := newClientHandler(clientService)
	ih := newInvoiceHandler(invoiceService, paymentService)

	clients := rg.Group("/clients")
	{
		clients.POST("", h.createClient)
		clients.GET("/:clientID", h.getClient)
		clients.GET("/:clientID/balance", h.getClientBalance)
		clients.GET("/:clientID/invoices", ih.listClientInvoices)
	}
}

// createClient godoc
// @Summary Create a client
// @Description Creates a client in the firm.
// @Tags clients
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param client body dto.CreateClientRequest true "Client details"
// @Success 201 {object} dto.ClientResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/clients [post]
func (h *clientHandler) createClient(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateClient", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), firmID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create client")
		return
	}

	c.JSON(http.StatusCreated, dto.ToClientResponse(client))
}

// getClient godoc
// @Summary Get a client
// @Description Retrieves a client including the derived outstanding balance.
// @Tags clients
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param clientID path string true "Client ID"
// @Success 200 {object} dto.ClientResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/clients/{clientID} [get]
func (h *clientHandler) getClient(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	clientID := c.Param("clientID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	client, err := h.clientService.GetClientByID(c.Request.Context(), firmID, clientID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve client")
		return
	}

	c.JSON(http.StatusOK, dto.ToClientResponse(client))
}

// getClientBalance godoc
// @Summary Get a client's outstanding balance
// @Description Retrieves just the derived outstanding balance for a client.
// @Tags clients
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param clientID path string true "Client ID"
// @Success 200 {object} dto.ClientBalanceResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/clients/{clientID}/balance [get]
func (h *clientHandler) getClientBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	clientID := c.Param("clientID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	client, err := h.clientService.GetClientByID(c.Request.Context(), firmID, clientID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve client balance")
		return
	}

	c.JSON(http.StatusOK, dto.ClientBalanceResponse{
		ClientID:           client.ClientID,
		OutstandingBalance: client.OutstandingBalance,
	})
}
