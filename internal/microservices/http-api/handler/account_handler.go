package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"homelibrary/internal/microservices/http-api/dto"
	"homelibrary/internal/microservices/http-api/service"
	"homelibrary/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	LoginURL       = "/accounts/login/"
	loginRedirect  = "/blog/"
	logoutRedirect = LoginURL
)

// AccountHandler runs the cookie-session login used by browsers.
type AccountHandler struct {
	authService service.AuthService
	sessions    *session.Manager
}

func NewAccountHandler(authService service.AuthService, sessions *session.Manager) *AccountHandler {
	return &AccountHandler{authService: authService, sessions: sessions}
}

// RegisterRoutes mounts login and logout. throttle runs before the login POST only.
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup, throttle ...gin.HandlerFunc) {
	rg.GET("/login/", h.LoginForm)
	rg.POST("/login/", append(append([]gin.HandlerFunc{}, throttle...), h.Login)...)
	rg.POST("/logout/", h.Logout)
}

func (h *AccountHandler) LoginForm(c *gin.Context) {
	next := c.Query("next")
	c.JSON(http.StatusOK, dto.LoginPage{Form: dto.LoginForm{Next: next}, Next: next})
}

func (h *AccountHandler) Login(c *gin.Context) {
	var form dto.LoginForm
	_ = c.ShouldBind(&form)
	if form.Next == "" {
		form.Next = c.Query("next")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.authService.Authenticate(ctx, form.Username, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			form.Password = ""
			c.JSON(http.StatusOK, dto.LoginPage{Form: form, Errors: []string{MsgBadLogin}, Next: form.Next})
			return
		}
		writeError(c, err)
		return
	}

	s := session.Get(c)
	s.Data.UserID = user.ID
	if err := h.sessions.Rotate(c, s); err != nil {
		writeError(c, err)
		return
	}

	target := loginRedirect
	if safeNext(form.Next) {
		target = form.Next
	}
	c.Redirect(http.StatusFound, target)
}

func (h *AccountHandler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c, session.Get(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, logoutRedirect)
}

// safeNext accepts only same-site absolute paths, so a crafted next cannot
// bounce the browser to another host.
func safeNext(next string) bool {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return false
	}
	u, err := url.Parse(next)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
