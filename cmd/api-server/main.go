package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homelibrary/database"
	"homelibrary/internal/config"
	"homelibrary/internal/logging"
	"homelibrary/internal/microservices/http-api/handler"
	"homelibrary/internal/microservices/http-api/middleware"
	"homelibrary/internal/microservices/http-api/repository"
	"homelibrary/internal/microservices/http-api/service"
	"homelibrary/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	// Sessions live in Redis when configured, in process memory otherwise
	var (
		store session.Store
		rdb   *redis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = session.NewRedisClient(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			logger.Error("redis connect failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		logger.Warn("REDIS_URL not set, sessions are kept in memory")
		store = session.NewMemoryStore(cfg.SessionTTL)
	}
	sessions := session.NewManager(store, session.Options{
		CookieName: cfg.SessionCookieName,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.IsProduction(),
	}, logger)

	// Repositories
	authors := repository.NewAuthorRepository(db)
	books := repository.NewBookRepository(db)
	instances := repository.NewBookInstanceRepository(db)
	genres := repository.NewGenreRepository(db)
	languages := repository.NewLanguageRepository(db)
	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	permissions := repository.NewPermissionRepository(db)
	refreshTokens := repository.NewRefreshTokenRepository(db)

	router, err := handler.NewRouter(handler.Deps{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		AccessTTL:   cfg.AccessTokenTTL,
		Ping: func(ctx context.Context) error {
			if err := database.Ping(ctx, db); err != nil {
				return err
			}
			if rdb != nil {
				return rdb.Ping(ctx).Err()
			}
			return nil
		},
		Sessions:     sessions,
		LoginLimiter: middleware.NewKeyedLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst),
		Auth:         service.NewAuthService(users, refreshTokens, cfg),
		Catalog:      service.NewCatalogService(authors, books, instances, genres, languages),
		Listing:      service.NewListingService(authors, books, instances),
		Lending:      service.NewLendingService(instances, books, users, time.Now),
		Genres:       service.NewGenreService(genres, languages),
		Users:        service.NewUserService(users, groups, permissions),
	})
	if err != nil {
		logger.Error("router setup failed", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "env", cfg.GoEnv, "db_driver", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped gracefully")
}
