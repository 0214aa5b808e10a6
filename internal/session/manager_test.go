package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(store Store) *Manager {
	return NewManager(store, Options{CookieName: "sessionid", TTL: time.Hour}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// counterRouter mirrors the home page visit counter.
func counterRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/", func(c *gin.Context) {
		s := Get(c)
		visits := s.Data.NumVisits
		s.Data.NumVisits++
		if err := m.Save(c, s); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, strconv.Itoa(visits))
	})
	return r
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "sessionid" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestManager_CountsVisitsAcrossRequests(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	router := counterRouter(newTestManager(store))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "0", w.Body.String())
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	for want := 1; want <= 2; want++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, strconv.Itoa(want), w.Body.String())
	}
	assert.Equal(t, 1, store.Len())
}

func TestManager_UnknownCookieStartsFresh(t *testing.T) {
	router := counterRouter(newTestManager(NewMemoryStore(time.Hour)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "forged"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Body.String())
	assert.NotEqual(t, "forged", sessionCookie(t, w).Value)
}

func TestManager_RotateAndDestroy(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	m := newTestManager(store)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "old", Data{NumVisits: 4}))

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/accounts/login/", nil)

	s := &Session{ID: "old", Data: Data{NumVisits: 4}}
	s.Data.UserID = "u1"
	require.NoError(t, m.Rotate(c, s))

	assert.NotEqual(t, "old", s.ID)
	_, err := store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNoSession)
	got, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Data{UserID: "u1", NumVisits: 4}, got)

	id := s.ID
	require.NoError(t, m.Destroy(c, s))
	assert.Empty(t, s.ID)
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNoSession)
}
