package categories

import (
	"go_library/api/v1/middleware"
	"go_library/internal/catalog"
	"go_library/internal/httpx"
	"go_library/internal/model"
	"go_library/internal/validator"

	"github.com/gin-gonic/gin"
)

// ListRequest represents list categories query
type ListRequest struct {
	model.Page
	Q string `form:"q"`
}

// Handler handles categories API
type Handler struct {
	catalog *catalog.Service
}

// NewHandler creates a new categories handler
func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{catalog: svc}
}

// List handles GET /api/v1/categories
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	result, err := h.catalog.ListCategories(c.Request.Context(), req.Q, req.Page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}

// Create handles POST /api/v1/categories
func (h *Handler) Create(c *gin.Context) {
	var req catalog.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	category, err := h.catalog.CreateCategory(c.Request.Context(), middleware.Principal(c), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "category created", category)
}

// Get handles GET /api/v1/categories/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	category, err := h.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, category)
}

// Update handles PUT /api/v1/categories/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}
	var req catalog.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	category, err := h.catalog.UpdateCategory(c.Request.Context(), middleware.Principal(c), id, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "category updated", category)
}

// Delete handles DELETE /api/v1/categories/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "category deleted", nil)
}
