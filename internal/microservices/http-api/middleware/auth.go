package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/service"
	"homelibrary/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	userKey       = "user"
	authMethodKey = "auth_method"
)

// Authenticate resolves the caller from the session, then from a Bearer token.
// It never aborts: callers it cannot identify continue as anonymous, and the
// route guards decide what that means.
func Authenticate(authService service.AuthService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		user, method := resolveUser(ctx, c, authService, logger)
		cancel()

		if user != nil {
			c.Set(userKey, user)
			c.Set(authMethodKey, method)
			c.Set("userID", user.ID)
		}
		c.Next()
	}
}

func resolveUser(ctx context.Context, c *gin.Context, authService service.AuthService, logger *slog.Logger) (*models.User, string) {
	if s := session.Get(c); s.Data.UserID != "" {
		user, err := authService.CurrentUser(ctx, s.Data.UserID)
		if err == nil {
			return user, "session"
		}
		if !errors.Is(err, service.ErrUnauthenticated) {
			logger.Warn("session user lookup failed", "error", err)
		}
	}

	tokenString, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil, ""
	}
	claims, err := authService.ValidateToken(tokenString)
	if err != nil {
		return nil, ""
	}
	user, err := authService.CurrentUser(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, service.ErrUnauthenticated) {
			logger.Warn("token user lookup failed", "error", err)
		}
		return nil, ""
	}
	return user, "token"
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2) // 0 is Bearer, 1 is token
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// CurrentUser returns the authenticated user, or nil for anonymous callers.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// LoginRedirectURL builds "<loginURL>?next=<requestURI>", keeping slashes readable.
func LoginRedirectURL(loginURL, requestURI string) string {
	next := strings.ReplaceAll(url.QueryEscape(requestURI), "%2F", "/")
	return loginURL + "?next=" + next
}

// RequireLogin sends anonymous callers to loginURL with a next parameter.
func RequireLogin(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if errors.Is(service.Authorize(CurrentUser(c), ""), service.ErrUnauthenticated) {
			c.Redirect(http.StatusFound, LoginRedirectURL(loginURL, c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission answers 403 to signed-in callers lacking perm. Mount it
// after RequireLogin so anonymous callers are redirected rather than refused.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := service.Authorize(CurrentUser(c), perm); {
		case err == nil:
			c.Next()
		case errors.Is(err, service.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
		default:
			c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			c.Abort()
		}
	}
}

// RequireAPIAuth is RequireLogin for JSON clients: 401 instead of a redirect.
func RequireAPIAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Header("WWW-Authenticate", `Bearer realm="api"`)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
			c.Abort()
			return
		}
		c.Next()
	}
}
