package handlers

import (
	"github.com/gin-gonic/gin"

	appctx "pharmstock/internal/core/context"
	"pharmstock/internal/domain/auth"
	"pharmstock/internal/infrastructure/http/v1/dto"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLoginResult(result))
}

// Register handles POST /auth/register (admin only).
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.Username, req.Password, req.IsAdmin)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, user.ID)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	actor := appctx.GetActor(c.Request.Context())
	h.OK(c, gin.H{
		"userId":   actor.UserID,
		"username": actor.Username,
		"isAdmin":  actor.IsAdmin,
	})
}
