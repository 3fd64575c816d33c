package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/geniibooks/entitlements/internal/application/query"
	"github.com/geniibooks/entitlements/internal/interfaces/http/response"
)

// CatalogHandler serves catalog listings
type CatalogHandler struct {
	listQuery *query.ListCatalogQuery
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(listQuery *query.ListCatalogQuery) *CatalogHandler {
	return &CatalogHandler{listQuery: listQuery}
}

// List returns catalog items matching the query filters
// @Summary List catalog items
// @Tags catalog
// @Produce json
// @Param kind query string false "Content kind (pdf, video, course_lecture)"
// @Param scope query string false "Scope tag"
// @Param free query bool false "Only free items"
// @Success 200 {object} response.SuccessResponse{data=dto.CatalogListResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /catalog [get]
func (h *CatalogHandler) List(c *gin.Context) {
	freeOnly := c.Query("free") == "true"

	resp, err := h.listQuery.Execute(c.Request.Context(), c.Query("kind"), c.Query("scope"), freeOnly)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.OK(c, resp)
}
