package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/service"
)

// AuthHandler exposes token login and logout.
type AuthHandler struct {
	auth service.IAuthService
	log  *logger.Logger
}

func NewAuthHandler(auth service.IAuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	tokens := r.Group("/auth/token")
	{
		tokens.POST("/login", h.Login)
		tokens.POST("/logout", middleware.AuthMiddleware(h.auth), h.Logout)
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "email and password are required"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_token": token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.log.Warn("logout failed", "error", err)
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
