package events

import (
	"go_library/api/v1/middleware"
	"go_library/internal/events"
	"go_library/internal/httpx"
	"go_library/internal/model"
	"go_library/internal/validator"

	"github.com/gin-gonic/gin"
)

// ListResponse is one incremental read of the event log
type ListResponse struct {
	Items       []model.LibraryEvent `json:"items"`
	LastEventID int64                `json:"lastEventId"`
	More        bool                 `json:"more"`
}

// Handler handles events API
type Handler struct {
	events *events.Service
}

// NewHandler creates a new events handler
func NewHandler(svc *events.Service) *Handler {
	return &Handler{events: svc}
}

// List handles GET /api/v1/events
func (h *Handler) List(c *gin.Context) {
	var f events.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	f = f.Normalize()
	ctx := c.Request.Context()
	items, err := h.events.List(ctx, middleware.Principal(c), f)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	resp := ListResponse{Items: items, LastEventID: f.AfterID, More: len(items) == f.Limit}
	if n := len(items); n > 0 {
		resp.LastEventID = items[n-1].ID
	} else {
		// Nothing visible after AfterID, so the client may skip ahead
		latest, err := h.events.LatestID(ctx)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		if latest > resp.LastEventID {
			resp.LastEventID = latest
		}
	}
	httpx.OK(c, resp)
}
