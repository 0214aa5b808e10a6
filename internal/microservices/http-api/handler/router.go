package handler

import (
	"log/slog"
	"net/http"
	"time"

	"homelibrary/internal/microservices/http-api/middleware"
	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/service"
	"homelibrary/internal/session"

	"github.com/gin-gonic/gin"
)

// Deps is everything the HTTP surface needs. The server and the handler
// tests both build one.
type Deps struct {
	Logger      *slog.Logger
	CORSOrigins []string
	AccessTTL   time.Duration
	Ping        PingFunc

	Sessions     *session.Manager
	LoginLimiter *middleware.KeyedLimiter

	Auth    service.AuthService
	Catalog service.CatalogService
	Listing service.ListingService
	Lending service.LendingService
	Genres  service.GenreService
	Users   service.UserService
}

// NewRouter wires middleware, guards and every route onto a fresh engine.
func NewRouter(d Deps) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(d.Logger))
	// global so unmatched preflights are still answered
	r.Use(middleware.CORS(d.CORSOrigins))
	r.Use(d.Sessions.Middleware())
	r.Use(middleware.Authenticate(d.Auth, d.Logger))

	var throttle []gin.HandlerFunc
	if d.LoginLimiter != nil {
		throttle = append(throttle, middleware.RateLimit(d.LoginLimiter))
	}

	loggedIn := []gin.HandlerFunc{middleware.RequireLogin(LoginURL)}
	librarian := []gin.HandlerFunc{
		middleware.RequireLogin(LoginURL),
		middleware.RequirePermission(models.PermCanMarkReturned),
	}

	NewHealthHandler(d.Ping).RegisterRoutes(r)
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/blog/")
	})

	blog := r.Group("/blog")
	NewCatalogHandler(d.Catalog, d.Listing, d.Lending, d.Sessions).RegisterRoutes(blog, librarian...)
	NewLendingHandler(d.Lending, d.Listing).RegisterRoutes(blog, loggedIn, librarian)
	NewGenreHandler(d.Genres).RegisterRoutes(blog, librarian...)

	accounts := r.Group("/accounts")
	NewAccountHandler(d.Auth, d.Sessions).RegisterRoutes(accounts, throttle...)

	api := r.Group("/api")
	NewAuthHandler(d.Auth, d.AccessTTL, d.Logger).RegisterRoutes(api.Group("/token"), throttle...)
	NewAdminHandler(d.Users).RegisterRoutes(api.Group("", middleware.RequireAPIAuth()))

	return r, nil
}
