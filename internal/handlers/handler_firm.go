package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
	"github.com/lexledger/lexledger_backend/internal/middleware"
)

// firmHandler handles HTTP requests related to firms and their members.
type firmHandler struct {
	firmService portssvc.FirmSvcFacade
}

// newFirmHandler creates a new firmHandler.
func newFirmHandler(fs portssvc.FirmSvcFacade) *firmHandler {
	return &firmHandler{
		firmService: fs,
	}
}

// registerFirmRoutes registers firm management routes and nests all
// firm-scoped entity routes under /firms/:firm_id.
func registerFirmRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := newFirmHandler(services.Firm)

	firmsTopLevel := rg.Group("/firms")
	{
		firmsTopLevel.POST("", h.createFirm)
		firmsTopLevel.GET("", h.listUserFirms)
	}

	firmSpecific := rg.Group("/firms/:firm_id")
	{
		firmSpecific.POST("/users", h.addFirmMember)

		registerPaymentRoutes(firmSpecific, services.Payment)
		registerInvoiceRoutes(firmSpecific, services.Invoice, services.Payment)
		registerClientRoutes(firmSpecific, services.Client, services.Invoice, services.Payment)
		registerLedgerRoutes(firmSpecific, services.Ledger)
	}
}

// createFirm godoc
// @Summary Create a firm
// @Description Creates a new firm and assigns the creator as admin.
// @Tags firms
// @Accept json
// @Produce json
// @Param firm body dto.CreateFirmRequest true "Firm details"
// @Success 201 {object} dto.FirmResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms [post]
func (h *firmHandler) createFirm(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateFirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateFirm", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	firm, err := h.firmService.CreateFirm(c.Request.Context(), req.Name, req.DefaultCurrencyCode, creatorUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create firm")
		return
	}

	logger.Info("Firm created successfully", slog.String("firm_id", firm.FirmID))
	c.JSON(http.StatusCreated, dto.ToFirmResponse(firm))
}

// listUserFirms godoc
// @Summary List firms for current user
// @Description Retrieves the firms the authenticated user belongs to.
// @Tags firms
// @Produce json
// @Success 200 {array} dto.FirmResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms [get]
func (h *firmHandler) listUserFirms(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	firms, err := h.firmService.ListUserFirms(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list firms")
		return
	}

	c.JSON(http.StatusOK, dto.ToFirmResponses(firms))
}

// addFirmMember godoc
// @Summary Add a user to a firm
// @Description Adds a user to the firm with a role; requires firm admin rights.
// @Tags firms
// @Accept json
// @Produce json
// @Param firm_id path string true "Firm ID"
// @Param member body dto.AddFirmMemberRequest true "User ID and role"
// @Success 204 "No Content"
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /firms/{firm_id}/users [post]
func (h *firmHandler) addFirmMember(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var req dto.AddFirmMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddFirmMember", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	addingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.firmService.AddUserToFirm(c.Request.Context(), addingUserID, req.UserID, firmID, req.Role); err != nil {
		respondServiceError(c, logger, err, "Failed to add user to firm")
		return
	}

	c.Status(http.StatusNoContent)
}
