package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/service"
	"homelibrary/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (string, string, *models.User, error) {
	args := m.Called(username, password)
	var user *models.User
	if args.Get(2) != nil {
		user = args.Get(2).(*models.User)
	}
	return args.String(0), args.String(1), user, args.Error(3)
}

func (m *mockAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	args := m.Called(refreshToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockAuthService) RevokeToken(ctx context.Context, refreshToken string) error {
	return m.Called(refreshToken).Error(0)
}

func (m *mockAuthService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func librarian() *models.User {
	return &models.User{
		ID:       "lib-1",
		Username: "librarian",
		IsActive: true,
		Permissions: []models.Permission{
			{Codename: models.PermCanMarkReturned},
		},
	}
}

func reader() *models.User {
	return &models.User{ID: "reader-1", Username: "reader", IsActive: true}
}

// withUser stands in for Authenticate.
func withUser(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u != nil {
			c.Set(userKey, u)
		}
		c.Next()
	}
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginRedirectURL(t *testing.T) {
	assert.Equal(t, "/accounts/login/?next=/blog/mybooks/", LoginRedirectURL("/accounts/login/", "/blog/mybooks/"))
	assert.Equal(t,
		"/accounts/login/?next=/blog/books/%3Fpage%3D2",
		LoginRedirectURL("/accounts/login/", "/blog/books/?page=2"),
	)
}

func TestRequireLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		user         *models.User
		wantStatus   int
		wantLocation string
	}{
		{"anonymous is redirected", nil, http.StatusFound, "/accounts/login/?next=/blog/mybooks/"},
		{"inactive is redirected", &models.User{ID: "x", IsActive: false}, http.StatusFound, "/accounts/login/?next=/blog/mybooks/"},
		{"signed in passes", reader(), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(withUser(tt.user))
			r.GET("/blog/mybooks/", RequireLogin("/accounts/login/"), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := serve(r, httptest.NewRequest(http.MethodGet, "/blog/mybooks/", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
		})
	}
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		user       *models.User
		wantStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"missing permission", reader(), http.StatusForbidden},
		{"librarian", librarian(), http.StatusOK},
		{"superuser", &models.User{ID: "root", IsActive: true, IsSuperuser: true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(withUser(tt.user))
			r.POST("/blog/author/create/", RequirePermission(models.PermCanMarkReturned), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := serve(r, httptest.NewRequest(http.MethodPost, "/blog/author/create/", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequireAPIAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(withUser(nil))
	r.GET("/api/users/", RequireAPIAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/users/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
}

func TestAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(auth service.AuthService, sessionUser string) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			s := session.Get(c)
			s.Data.UserID = sessionUser
			c.Next()
		})
		r.Use(Authenticate(auth, discard))
		r.GET("/whoami", func(c *gin.Context) {
			if u := CurrentUser(c); u != nil {
				c.String(http.StatusOK, u.Username+" via "+c.GetString(authMethodKey))
				return
			}
			c.String(http.StatusOK, "anonymous")
		})
		return r
	}

	t.Run("session user", func(t *testing.T) {
		auth := new(mockAuthService)
		auth.On("CurrentUser", "reader-1").Return(reader(), nil)

		w := serve(newRouter(auth, "reader-1"), httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, "reader via session", w.Body.String())
		auth.AssertExpectations(t)
	})

	t.Run("bearer token", func(t *testing.T) {
		auth := new(mockAuthService)
		auth.On("ValidateToken", "good").Return(&service.Claims{UserID: "lib-1"}, nil)
		auth.On("CurrentUser", "lib-1").Return(librarian(), nil)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer good")
		w := serve(newRouter(auth, ""), req)
		assert.Equal(t, "librarian via token", w.Body.String())
	})

	t.Run("bad token stays anonymous", func(t *testing.T) {
		auth := new(mockAuthService)
		auth.On("ValidateToken", "bad").Return(nil, service.ErrInvalidToken)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer bad")
		w := serve(newRouter(auth, ""), req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("deactivated session user", func(t *testing.T) {
		auth := new(mockAuthService)
		auth.On("CurrentUser", "gone").Return(nil, service.ErrUnauthenticated)

		w := serve(newRouter(auth, "gone"), httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, "anonymous", w.Body.String())
	})
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "bearer abc"} {
		_, ok := bearerToken(h)
		assert.False(t, ok, h)
	}
}
