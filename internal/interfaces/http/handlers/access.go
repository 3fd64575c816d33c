package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/geniibooks/entitlements/internal/application/query"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/interfaces/http/response"
)

// AccessHandler answers content access checks
type AccessHandler struct {
	checkAccessQuery *query.CheckAccessQuery
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(checkAccessQuery *query.CheckAccessQuery) *AccessHandler {
	return &AccessHandler{checkAccessQuery: checkAccessQuery}
}

// CheckAccess resolves whether the current session may open a content item
// @Summary Check access to a content item
// @Tags access
// @Produce json
// @Security Bearer
// @Param id path string true "Content item id"
// @Success 200 {object} response.SuccessResponse{data=dto.AccessDecisionResponse}
// @Failure 404 {object} response.ErrorResponse
// @Router /content/{id}/access [get]
func (h *AccessHandler) CheckAccess(c *gin.Context) {
	itemID := c.Param("id")
	if itemID == "" {
		response.BadRequest(c, "Content id is required")
		return
	}

	identityID := c.GetString("identity_id")
	resp, err := h.checkAccessQuery.Execute(c.Request.Context(), identityID, itemID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrContentNotFound) {
			response.NotFound(c, "Content item not found")
			return
		}
		response.InternalError(c, "Failed to resolve access")
		return
	}

	response.OK(c, resp)
}
