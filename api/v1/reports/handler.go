package reports

import (
	"go_library/api/v1/middleware"
	"go_library/internal/httpx"
	"go_library/internal/report"

	"github.com/gin-gonic/gin"
)

// Handler handles reports API
type Handler struct {
	reports *report.Service
}

// NewHandler creates a new reports handler
func NewHandler(svc *report.Service) *Handler {
	return &Handler{reports: svc}
}

// Dashboard handles GET /api/v1/reports/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	dashboard, err := h.reports.Dashboard(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, dashboard)
}
