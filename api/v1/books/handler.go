package books

import (
	"go_library/api/v1/middleware"
	"go_library/internal/catalog"
	"go_library/internal/httpx"
	"go_library/internal/model"
	"go_library/internal/validator"

	"github.com/gin-gonic/gin"
)

// ListRequest represents list books query
type ListRequest struct {
	model.Page
	catalog.BookFilter
}

// QuantityRequest sets both copy counts of a book
type QuantityRequest struct {
	TotalCopies     *int `json:"totalCopies" binding:"required,min=0"`
	AvailableCopies *int `json:"availableCopies" binding:"required,min=0"`
}

// Handler handles books API
type Handler struct {
	catalog *catalog.Service
}

// NewHandler creates a new books handler
func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{catalog: svc}
}

// List handles GET /api/v1/books
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	result, err := h.catalog.ListBooks(c.Request.Context(), req.BookFilter, req.Page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}

// Create handles POST /api/v1/books
func (h *Handler) Create(c *gin.Context) {
	var req catalog.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	book, err := h.catalog.CreateBook(c.Request.Context(), middleware.Principal(c), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "book created", book)
}

// Get handles GET /api/v1/books/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	book, err := h.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, book)
}

// Update handles PUT /api/v1/books/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}
	var req catalog.BookPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	book, err := h.catalog.UpdateBook(c.Request.Context(), middleware.Principal(c), id, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "book updated", book)
}

// AdjustQuantity handles PATCH /api/v1/books/:id/quantity
func (h *Handler) AdjustQuantity(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	book, err := h.catalog.AdjustQuantity(c.Request.Context(), middleware.Principal(c), id, *req.TotalCopies, *req.AvailableCopies)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "quantity adjusted", book)
}

// Delete handles DELETE /api/v1/books/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteBook(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "book deleted", nil)
}
