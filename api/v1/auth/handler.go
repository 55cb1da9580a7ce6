package auth

import (
	"go_library/api/v1/middleware"
	"go_library/internal/httpx"
	"go_library/internal/session"
	"go_library/internal/users"
	"go_library/internal/validator"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MeResponse is the caller and their account record
type MeResponse struct {
	session.Principal
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Handler handles login, registration and the current session
type Handler struct {
	sessions *session.Service
	users    *users.Service
}

// NewHandler creates a new auth handler
func NewHandler(sessions *session.Service, users *users.Service) *Handler {
	return &Handler{sessions: sessions, users: users}
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}

	result, err := h.sessions.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req users.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, validator.BindError(err))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "registered", user)
}

// Me handles GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	p := middleware.Principal(c)
	user, err := h.users.Get(c.Request.Context(), p, p.ID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, MeResponse{Principal: p, FullName: user.FullName, Email: user.Email})
}

// Logout handles POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), middleware.Claims(c)); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "logged out", nil)
}
