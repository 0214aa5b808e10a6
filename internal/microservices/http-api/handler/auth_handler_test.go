package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"homelibrary/internal/microservices/http-api/dto"
	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/service"
	"homelibrary/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthService mocks the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (string, string, *models.User, error) {
	args := m.Called(username, password)
	var user *models.User
	if args.Get(2) != nil {
		user = args.Get(2).(*models.User)
	}
	return args.String(0), args.String(1), user, args.Error(3)
}

func (m *MockAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	args := m.Called(refreshToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

func (m *MockAuthService) RevokeToken(ctx context.Context, refreshToken string) error {
	args := m.Called(refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	return gin.New()
}

func tokenRouter(auth service.AuthService) *gin.Engine {
	router := setupRouter()
	NewAuthHandler(auth, 15*time.Minute, discardLogger).RegisterRoutes(router.Group("/api/token"))
	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTokenLogin_Success(t *testing.T) {
	mockService := new(MockAuthService)
	user := &models.User{ID: "user-1", Username: "reader", IsActive: true}
	mockService.On("Login", "reader", "secret123").Return("access", "refresh", user, nil)

	w := postJSON(tokenRouter(mockService), "/api/token/", dto.LoginRequest{Username: "reader", Password: "secret123"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "refresh", resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "user-1", resp.UserID)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	mockService.AssertExpectations(t)
}

func TestTokenLogin_InvalidCredentials(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("Login", "reader", "wrong").Return("", "", nil, service.ErrInvalidCredentials)

	w := postJSON(tokenRouter(mockService), "/api/token/", dto.LoginRequest{Username: "reader", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), MsgBadLogin)
}

func TestTokenLogin_MissingFields(t *testing.T) {
	mockService := new(MockAuthService)

	w := postJSON(tokenRouter(mockService), "/api/token/", map[string]string{"username": "reader"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "password")
	assert.NotContains(t, body.Errors, "Password")
	mockService.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestTokenLogin_StoreFailure(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("Login", "reader", "secret123").Return("", "", nil, errors.New("db down"))

	w := postJSON(tokenRouter(mockService), "/api/token/", dto.LoginRequest{Username: "reader", Password: "secret123"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestRefreshToken(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"rotates both tokens", nil, http.StatusOK},
		{"invalid token", service.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", service.ErrExpiredToken, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAuthService)
			mockService.On("RefreshAccessToken", "old-refresh").Return("new-access", "new-refresh", tt.err)

			w := postJSON(tokenRouter(mockService), "/api/token/refresh/", dto.RefreshTokenRequest{RefreshToken: "old-refresh"})

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.err == nil {
				var resp dto.RefreshResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "new-access", resp.AccessToken)
				assert.Equal(t, "new-refresh", resp.RefreshToken)
			}
		})
	}
}

func TestRevokeToken_SameAnswerForUnknownToken(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("RevokeToken", "known").Return(nil)
	mockService.On("RevokeToken", "unknown").Return(service.ErrInvalidToken)
	router := tokenRouter(mockService)

	known := postJSON(router, "/api/token/revoke/", dto.RevokeTokenRequest{RefreshToken: "known"})
	unknown := postJSON(router, "/api/token/revoke/", dto.RevokeTokenRequest{RefreshToken: "unknown"})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
}

// --- session login ---

func accountRouter(auth service.AuthService, store session.Store) *gin.Engine {
	router := setupRouter()
	sessions := session.NewManager(store, session.Options{TTL: time.Hour}, discardLogger)
	router.Use(sessions.Middleware())
	NewAccountHandler(auth, sessions).RegisterRoutes(router.Group("/accounts"))
	return router
}

func postForm(router *gin.Engine, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAccountLogin_RedirectsToNext(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("Authenticate", "reader", "secret123").Return(&models.User{ID: "user-1", IsActive: true}, nil)
	store := session.NewMemoryStore(time.Hour)

	w := postForm(accountRouter(mockService, store), "/accounts/login/", url.Values{
		"username": {"reader"},
		"password": {"secret123"},
		"next":     {"/blog/mybooks/"},
	})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/blog/mybooks/", w.Header().Get("Location"))

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "sessionid" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	data, err := store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", data.UserID)
}

func TestAccountLogin_OffsiteNextIgnored(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("Authenticate", "reader", "secret123").Return(&models.User{ID: "user-1", IsActive: true}, nil)

	w := postForm(accountRouter(mockService, session.NewMemoryStore(time.Hour)), "/accounts/login/?next=//evil.example/", url.Values{
		"username": {"reader"},
		"password": {"secret123"},
	})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/blog/", w.Header().Get("Location"))
}

func TestAccountLogin_BadCredentialsRerendersForm(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("Authenticate", "reader", "wrong").Return(nil, service.ErrInvalidCredentials)

	w := postForm(accountRouter(mockService, session.NewMemoryStore(time.Hour)), "/accounts/login/", url.Values{
		"username": {"reader"},
		"password": {"wrong"},
		"next":     {"/blog/mybooks/"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var page dto.LoginPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, []string{MsgBadLogin}, page.Errors)
	assert.Equal(t, "reader", page.Form.Username)
	assert.Empty(t, page.Form.Password)
	assert.Equal(t, "/blog/mybooks/", page.Next)
}

func TestAccountLogout_DropsSession(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	require.NoError(t, store.Save(context.Background(), "sid", session.Data{UserID: "user-1"}))

	w := postForm(accountRouter(new(MockAuthService), store), "/accounts/logout/", nil, &http.Cookie{Name: "sessionid", Value: "sid"})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, LoginURL, w.Header().Get("Location"))
	_, err := store.Load(context.Background(), "sid")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSafeNext(t *testing.T) {
	for next, want := range map[string]bool{
		"/blog/mybooks/":            true,
		"/blog/books/?page=2":       true,
		"":                          false,
		"blog/":                     false,
		"//evil.example/":           false,
		"/\\evil.example":           false,
		"https://evil.example/":     false,
		"javascript:alert(1)":       false,
	} {
		assert.Equal(t, want, safeNext(next), next)
	}
}
