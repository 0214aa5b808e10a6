package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDatabaseURL = "file:homelibrary.db?_pragma=foreign_keys(1)"

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Service Ports
	HTTPPort int `env:"HTTP_PORT" default:"8080"`

	// Database
	DatabaseDriver string `env:"DATABASE_DRIVER" default:"sqlite"` // "postgres" or "sqlite"
	DatabaseURL    string `env:"DATABASE_URL" default:"file:homelibrary.db?_pragma=foreign_keys(1)"`

	// Authentication
	JWTSecret       string        `env:"JWT_SECRET" required:"true"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" default:"168h"`

	// Sessions (Redis when REDIS_URL is set, in-memory otherwise)
	RedisURL          string        `env:"REDIS_URL"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	SessionTTL        time.Duration `env:"SESSION_TTL" default:"336h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" default:"sessionid"`

	// Login throttling
	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" default:"1"`
	LoginRateBurst int     `env:"LOGIN_RATE_BURST" default:"5"`

	// Development
	LogLevel    string   `env:"LOG_LEVEL" default:"info"`
	LogFormat   string   `env:"LOG_FORMAT" default:"text"`
	CORSOrigins []string `env:"CORS_ORIGINS" default:"http://localhost:3000"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	c := &Config{}
	var env envReader

	env.str(&c.GoEnv, "GO_ENV", "development")
	env.int(&c.HTTPPort, "HTTP_PORT", 8080)
	c.loadDatabase(&env)

	env.required(&c.JWTSecret, "JWT_SECRET")
	env.duration(&c.AccessTokenTTL, "ACCESS_TOKEN_TTL", 15*time.Minute)
	env.duration(&c.RefreshTokenTTL, "REFRESH_TOKEN_TTL", 7*24*time.Hour)

	env.str(&c.RedisURL, "REDIS_URL", "")
	env.str(&c.RedisPassword, "REDIS_PASSWORD", "")
	env.duration(&c.SessionTTL, "SESSION_TTL", 14*24*time.Hour)
	env.str(&c.SessionCookieName, "SESSION_COOKIE_NAME", "sessionid")

	env.float(&c.LoginRateLimit, "LOGIN_RATE_LIMIT", 1)
	env.int(&c.LoginRateBurst, "LOGIN_RATE_BURST", 5)

	env.list(&c.CORSOrigins, "CORS_ORIGINS", []string{"http://localhost:3000"})

	if env.err != nil {
		return nil, env.err
	}
	return c, nil
}

// LoadDatabaseConfig loads only the settings the admin CLI needs to reach the
// store, so maintenance commands run without the server's secrets.
func LoadDatabaseConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &Config{}
	var env envReader
	c.loadDatabase(&env)
	if env.err != nil {
		return nil, env.err
	}
	return c, nil
}

func (c *Config) loadDatabase(env *envReader) {
	env.str(&c.DatabaseDriver, "DATABASE_DRIVER", "sqlite")
	env.str(&c.DatabaseURL, "DATABASE_URL", defaultDatabaseURL)
	env.str(&c.LogLevel, "LOG_LEVEL", "info")
	env.str(&c.LogFormat, "LOG_FORMAT", "text")
}

// .env is optional, system env vars still apply without it
func loadDotEnv() error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// envReader fills typed fields from the environment and keeps the first
// parse error. Later reads are skipped once one has failed.
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v := os.Getenv(key)
	return v, v != ""
}

func (r *envReader) str(target *string, key, def string) {
	if v, ok := r.lookup(key); ok {
		*target = v
		return
	}
	*target = def
}

func (r *envReader) required(target *string, key string) {
	if r.err != nil {
		return
	}
	v, ok := r.lookup(key)
	if !ok {
		r.err = fmt.Errorf("required environment variable %s is not set", key)
		return
	}
	*target = v
}

func (r *envReader) list(target *[]string, key string, def []string) {
	v, ok := r.lookup(key)
	if !ok {
		*target = def
		return
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	*target = parts
}

func (r *envReader) int(target *int, key string, def int) {
	parseInto(r, target, key, def, "integer", strconv.Atoi)
}

func (r *envReader) float(target *float64, key string, def float64) {
	parseInto(r, target, key, def, "float", func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func (r *envReader) duration(target *time.Duration, key string, def time.Duration) {
	parseInto(r, target, key, def, "duration", time.ParseDuration)
}

func parseInto[T any](r *envReader, target *T, key string, def T, kind string, parse func(string) (T, error)) {
	v, ok := r.lookup(key)
	if !ok {
		*target = def
		return
	}
	parsed, err := parse(v)
	if err != nil {
		r.err = fmt.Errorf("invalid %s value for %s: %v", kind, key, err)
		return
	}
	*target = parsed
}

var (
	validDrivers    = []string{"postgres", "sqlite"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.HTTPPort >= 1 && c.HTTPPort <= 65535, "HTTP_PORT must be between 1 and 65535")
	check(slices.Contains(validDrivers, c.DatabaseDriver), "DATABASE_DRIVER must be one of: "+strings.Join(validDrivers, ", "))
	check(c.DatabaseURL != "", "DATABASE_URL must not be empty")
	check(slices.Contains(validLogLevels, c.LogLevel), "LOG_LEVEL must be one of: "+strings.Join(validLogLevels, ", "))
	check(slices.Contains(validLogFormats, c.LogFormat), "LOG_FORMAT must be one of: "+strings.Join(validLogFormats, ", "))
	// HS256 keys shorter than the hash output are weak
	check(len(c.JWTSecret) >= 32, "JWT_SECRET should be at least 32 characters long")
	check(c.SessionTTL > 0, "SESSION_TTL must be positive")
	check(c.SessionCookieName != "", "SESSION_COOKIE_NAME must not be empty")
	check(c.LoginRateLimit > 0 && c.LoginRateBurst >= 1, "LOGIN_RATE_LIMIT must be positive and LOGIN_RATE_BURST at least 1")

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// HTTPAddr returns the listen address for the HTTP server
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
