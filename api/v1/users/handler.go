package users

import (
	"go_library/api/v1/middleware"
	"go_library/internal/httpx"
	"go_library/internal/model"
	"go_library/internal/users"
	"go_library/internal/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles users API
type Handler struct {
	users *users.Service
}

// NewHandler creates a new users handler
func NewHandler(svc *users.Service) *Handler {
	return &Handler{users: svc}
}

// List handles GET /api/v1/users
func (h *Handler) List(c *gin.Context) {
	var f users.Filter
	var page model.Page
	if err := c.ShouldBindQuery(&f); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}
	if err := c.ShouldBindQuery(&page); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	result, err := h.users.List(c.Request.Context(), middleware.Principal(c), f, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}

// Create handles POST /api/v1/users
func (h *Handler) Create(c *gin.Context) {
	var req users.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	user, err := h.users.Create(c.Request.Context(), middleware.Principal(c), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "user created", user)
}

// Get handles GET /api/v1/users/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, user)
}

// Update handles PATCH /api/v1/users/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}
	var req users.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	user, err := h.users.Update(c.Request.Context(), middleware.Principal(c), id, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "user updated", user)
}

// Delete handles DELETE /api/v1/users/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "user deleted", nil)
}
