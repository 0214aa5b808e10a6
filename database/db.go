package database

import (
	"context"
	"fmt"
	"log/slog" // use slog for structured logging
	"time"

	"homelibrary/internal/config"
	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // registers the pure-Go "sqlite" database/sql driver
)

// Connect opens the configured store, verifies it and brings the schema up to date.
func Connect(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	return Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
}

// Open is Connect without a Config, tests use it with an in-memory sqlite DSN.
func Open(driver, dsn string, logger *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if driver == "sqlite" {
		// one writer at a time, and a shared in-memory db lives only while a connection does
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	// Verify the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		// close the handle if ping fails to avoid resource leak
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Connected to the database successfully", "driver", driver)
	return db, nil
}

// Migrate creates or alters every table and seeds the default permissions.
func Migrate(db *gorm.DB, logger *slog.Logger) error {
	if err := db.AutoMigrate(
		&models.Permission{},
		&models.Group{},
		&models.User{},
		&models.RefreshToken{},
		&models.Genre{},
		&models.Language{},
		&models.Author{},
		&models.Book{},
		&models.BookInstance{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := repository.NewPermissionRepository(db).EnsureDefaults(context.Background()); err != nil {
		return err
	}
	logger.Info("Database migrations applied successfully")
	return nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping is the readiness probe.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
