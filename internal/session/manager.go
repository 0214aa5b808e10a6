package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const contextKey = "session"

// Session is the request-scoped view of a stored session. ID stays empty
// until the first Save, so anonymous visitors that never write get no cookie.
type Session struct {
	ID   string
	Data Data
}

// Manager binds a Store to the session cookie.
type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *slog.Logger
}

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func NewManager(store Store, opts Options, logger *slog.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "sessionid"
	}
	return &Manager{
		store:      store,
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		logger:     logger,
	}
}

// Middleware loads the session named by the cookie, or an empty one, into the
// gin context. A broken or unknown cookie never fails the request.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := &Session{}
		if id, err := c.Cookie(m.cookieName); err == nil && id != "" {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			data, err := m.store.Load(ctx, id)
			cancel()
			switch {
			case err == nil:
				s.ID = id
				s.Data = data
			case errors.Is(err, ErrNoSession):
			default:
				m.logger.Warn("session load failed", "error", err)
			}
		}
		c.Set(contextKey, s)
		c.Next()
	}
}

// Get returns the request's session. Without the middleware it is a fresh empty one.
func Get(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	s := &Session{}
	c.Set(contextKey, s)
	return s
}

// Save persists the session, allocating an id and issuing the cookie on first use.
func (m *Manager) Save(c *gin.Context, s *Session) error {
	if s.ID == "" {
		id, err := NewID()
		if err != nil {
			return err
		}
		s.ID = id
	}
	if err := m.store.Save(c.Request.Context(), s.ID, s.Data); err != nil {
		return err
	}
	m.setCookie(c, s.ID, int(m.ttl.Seconds()))
	return nil
}

// Rotate moves the session data to a new id. Login calls it so a session id
// seen before authentication is never reused after.
func (m *Manager) Rotate(c *gin.Context, s *Session) error {
	old := s.ID
	s.ID = ""
	if err := m.Save(c, s); err != nil {
		return err
	}
	if old != "" {
		if err := m.store.Delete(c.Request.Context(), old); err != nil {
			m.logger.Warn("session delete failed", "error", err)
		}
	}
	return nil
}

// Destroy drops the stored session and expires the cookie.
func (m *Manager) Destroy(c *gin.Context, s *Session) error {
	if s.ID != "" {
		if err := m.store.Delete(c.Request.Context(), s.ID); err != nil {
			return err
		}
	}
	*s = Session{}
	m.setCookie(c, "", -1)
	return nil
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}
