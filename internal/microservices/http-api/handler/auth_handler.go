package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"homelibrary/internal/microservices/http-api/dto"
	"homelibrary/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues API tokens for clients that cannot hold a session cookie.
type AuthHandler struct {
	authService service.AuthService
	accessTTL   time.Duration
	logger      *slog.Logger
}

func NewAuthHandler(authService service.AuthService, accessTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, accessTTL: accessTTL, logger: logger}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, throttle ...gin.HandlerFunc) {
	rg.POST("/", append(append([]gin.HandlerFunc{}, throttle...), h.Login)...)
	rg.POST("/refresh/", h.RefreshToken)
	rg.POST("/revoke/", h.RevokeToken)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": dto.FieldErrors(err)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	accessToken, refreshToken, user, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": MsgBadLogin})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		UserID:       user.ID,
		Username:     user.Username,
		ExpiresIn:    int64(h.accessTTL.Seconds()),
	})
}

// RefreshToken rotates both tokens. The presented refresh token is revoked.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": dto.FieldErrors(err)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	newAccessToken, newRefreshToken, err := h.authService.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrExpiredToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RefreshResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.accessTTL.Seconds()),
	})
}

func (h *AuthHandler) RevokeToken(c *gin.Context) {
	var req dto.RevokeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": dto.FieldErrors(err)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.authService.RevokeToken(ctx, req.RefreshToken); err != nil {
		h.logger.Debug("refresh token revoke failed", "error", err)
	}

	// same answer either way so the endpoint cannot be used to probe tokens
	c.JSON(http.StatusOK, dto.RevokeTokenResponse{
		Message: "Refresh token revoked successfully",
	})
}
