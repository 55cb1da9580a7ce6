package fees

import (
	"go_library/api/v1/middleware"
	"go_library/internal/httpx"
	"go_library/internal/ledger"
	"go_library/internal/model"
	"go_library/internal/validator"

	"github.com/gin-gonic/gin"
)

// ListRequest represents list fees query
type ListRequest struct {
	model.Page
	ledger.FeeFilter
}

// Handler handles fees API
type Handler struct {
	ledger *ledger.Service
}

// NewHandler creates a new fees handler
func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{ledger: svc}
}

// Create handles POST /api/v1/fees
func (h *Handler) Create(c *gin.Context) {
	var req ledger.FeeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	fee, err := h.ledger.CreateFee(c.Request.Context(), middleware.Principal(c), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "fee created", fee)
}

// Pay handles PATCH /api/v1/fees/:id/pay
func (h *Handler) Pay(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}
	var req ledger.PayInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	fee, err := h.ledger.PayFee(c.Request.Context(), middleware.Principal(c), id, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "fee paid", fee)
}

// Delete handles DELETE /api/v1/fees/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.DeleteFee(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "fee deleted", nil)
}

// Get handles GET /api/v1/fees/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.PathID(c, "id")
	if !ok {
		return
	}

	fee, err := h.ledger.GetFee(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, fee)
}

// List handles GET /api/v1/fees
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	result, err := h.ledger.ListFees(c.Request.Context(), middleware.Principal(c), req.FeeFilter, req.Page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}
