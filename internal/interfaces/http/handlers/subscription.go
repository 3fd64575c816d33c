package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/geniibooks/entitlements/internal/application/command"
	"github.com/geniibooks/entitlements/internal/application/dto"
	"github.com/geniibooks/entitlements/internal/application/query"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/interfaces/http/response"
)

// SubscriptionHandler handles subscription state and purchase endpoints
type SubscriptionHandler struct {
	statusQuery *query.SubscriptionStatusQuery
	purchaseCmd *command.PurchaseCommand
	restoreCmd  *command.RestoreCommand
	refreshCmd  *command.RefreshCommand
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(
	statusQuery *query.SubscriptionStatusQuery,
	purchaseCmd *command.PurchaseCommand,
	restoreCmd *command.RestoreCommand,
	refreshCmd *command.RefreshCommand,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		statusQuery: statusQuery,
		purchaseCmd: purchaseCmd,
		restoreCmd:  restoreCmd,
		refreshCmd:  refreshCmd,
	}
}

// GetStatus returns the current subscription record
// @Summary Get subscription status
// @Tags subscription
// @Produce json
// @Security Bearer
// @Success 200 {object} response.SuccessResponse{data=dto.SubscriptionStatusResponse}
// @Router /subscription [get]
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	resp, err := h.statusQuery.Execute(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to read subscription state")
		return
	}

	response.OK(c, resp)
}

// ListPackages returns the purchasable offerings
// @Summary List purchasable packages
// @Tags subscription
// @Produce json
// @Security Bearer
// @Success 200 {object} response.SuccessResponse{data=[]dto.PackageResponse}
// @Failure 503 {object} response.ErrorResponse
// @Router /subscription/packages [get]
func (h *SubscriptionHandler) ListPackages(c *gin.Context) {
	packages, err := h.statusQuery.ListPackages(c.Request.Context())
	if err != nil {
		if errors.Is(err, domainErrors.ErrGatewayUnavailable) {
			response.ServiceUnavailable(c, "Billing gateway unavailable")
			return
		}
		response.InternalError(c, "Failed to list packages")
		return
	}

	response.OK(c, packages)
}

// Purchase executes a purchase for the bound identity. Cancellation and
// failure come back as a 200 with the outcome flags; the subscription
// record is untouched in both cases.
// @Summary Purchase a package
// @Tags subscription
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.PurchaseRequest true "Purchase request"
// @Success 200 {object} response.SuccessResponse{data=dto.PurchaseResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /subscription/purchase [post]
func (h *SubscriptionHandler) Purchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "package_identifier and fetch_token are required")
		return
	}

	resp, err := h.purchaseCmd.Execute(c.Request.Context(), &req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.OK(c, resp)
}

// Restore replays prior store purchases onto the current identity
// @Summary Restore purchases
// @Tags subscription
// @Produce json
// @Security Bearer
// @Success 200 {object} response.SuccessResponse{data=dto.RestoreResponse}
// @Router /subscription/restore [post]
func (h *SubscriptionHandler) Restore(c *gin.Context) {
	resp, err := h.restoreCmd.Execute(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to restore purchases")
		return
	}

	response.OK(c, resp)
}

// Refresh re-reads the gateway snapshot. A failed sync is not an error
// response: the state endpoint reports it as a stale record instead.
// @Summary Refresh entitlements
// @Tags subscription
// @Produce json
// @Security Bearer
// @Success 200 {object} response.SuccessResponse{data=dto.SubscriptionStatusResponse}
// @Router /subscription/refresh [post]
func (h *SubscriptionHandler) Refresh(c *gin.Context) {
	if err := h.refreshCmd.Execute(c.Request.Context()); err != nil {
		if !errors.Is(err, domainErrors.ErrSyncFailed) {
			response.InternalError(c, "Failed to refresh entitlements")
			return
		}
	}

	resp, err := h.statusQuery.Execute(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to read subscription state")
		return
	}
	response.OK(c, resp)
}
