package borrows

import (
	"errors"
	"io"

	"go_library/api/v1/middleware"
	"go_library/internal/circulation"
	"go_library/internal/httpx"
	"go_library/internal/model"
	"go_library/internal/report"
	"go_library/internal/validator"

	"github.com/gin-gonic/gin"
)

// ListRequest represents list borrows query
type ListRequest struct {
	model.Page
	circulation.BorrowFilter
}

// RejectRequest carries the reason shown to the member
type RejectRequest struct {
	Notes string `json:"notes" binding:"required,max=1024"`
}

// Handler handles borrows API
type Handler struct {
	circulation *circulation.Service
	reports     *report.Service
}

// NewHandler creates a new borrows handler
func NewHandler(svc *circulation.Service, reports *report.Service) *Handler {
	return &Handler{circulation: svc, reports: reports}
}

// Request handles POST /api/v1/borrows/request
func (h *Handler) Request(c *gin.Context) {
	var req circulation.RequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	borrow, err := h.circulation.SubmitRequest(c.Request.Context(), middleware.Principal(c), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "borrow requested", borrow)
}

// Approve handles PATCH /api/v1/borrows/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}
	var req circulation.NotesInput
	if !bindOptional(c, &req) {
		return
	}

	borrow, err := h.circulation.Approve(c.Request.Context(), middleware.Principal(c), id, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "borrow approved", borrow)
}

// Reject handles PATCH /api/v1/borrows/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	borrow, err := h.circulation.Reject(c.Request.Context(), middleware.Principal(c), id, circulation.RejectInput{Reason: req.Notes})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "borrow rejected", borrow)
}

// StaffCheckout handles POST /api/v1/borrows/staff-checkin
func (h *Handler) StaffCheckout(c *gin.Context) {
	var req circulation.RequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	borrow, err := h.circulation.StaffCheckout(c.Request.Context(), middleware.Principal(c), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "book checked out", borrow)
}

// Return handles PATCH /api/v1/borrows/:id/return
func (h *Handler) Return(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}
	var req circulation.NotesInput
	if !bindOptional(c, &req) {
		return
	}

	result, err := h.circulation.Return(c.Request.Context(), middleware.Principal(c), id, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "book returned", result)
}

// Delete handles DELETE /api/v1/borrows/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.circulation.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "borrow deleted", nil)
}

// Get handles GET /api/v1/borrows/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	view, err := h.circulation.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, view)
}

// List handles GET /api/v1/borrows
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	result, err := h.circulation.List(c.Request.Context(), middleware.Principal(c), req.BorrowFilter, req.Page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}

// Statistics handles GET /api/v1/borrows/user/:userId/statistics
func (h *Handler) Statistics(c *gin.Context) {
	userID, ok := httpx.PathID(c, "userId")
	if !ok {
		return
	}

	stats, err := h.reports.UserStatistics(c.Request.Context(), middleware.Principal(c), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, stats)
}

// bindOptional binds a JSON body that may be absent, including an empty chunked one
func bindOptional(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		httpx.FailErr(c, validator.BindError(err))
		return false
	}
	return true
}
