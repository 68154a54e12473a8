// Package config loads and validates all environment variables at startup.
// Every other package receives typed values; nothing reads os.Getenv directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port              string // default "8080"
	Env               string // "development" | "staging" | "production"
	CORSAllowedOrigin string // default "*"; a single origin in production
	MaxBodyBytes      int64  // default 20 MiB; chart payloads are base64 images

	// ── Database ──────────────────────────────────────────────────────────────
	// Optional. When empty the render audit log is disabled.
	DatabaseURL string

	// ── Identity ──────────────────────────────────────────────────────────────
	// JWTSecret verifies HS256 bearer tokens. Required in production; when
	// empty elsewhere, authentication is disabled.
	JWTSecret string
	JWTIssuer string // optional; checked against the "iss" claim when set

	// ── Rendering ─────────────────────────────────────────────────────────────
	RenderWorkers   int           // default 4
	RenderTimeout   time.Duration // default 30s
	NarrativeConfig string        // path to a YAML narrative parameter file; empty = defaults
	PlatformName    string        // printed in the report footer
}

// Load reads all environment variables and returns a validated Config.
// It loads a .env file from the working directory when present, so plain
// `go run ./cmd/api` works in development without any wrapper. Real
// environment variables always take precedence over .env values.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	c := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		MaxBodyBytes:      int64(getEnvAsInt("MAX_BODY_BYTES", 20<<20)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTIssuer:         os.Getenv("JWT_ISSUER"),
		RenderWorkers:     getEnvAsInt("RENDER_WORKERS", 4),
		RenderTimeout:     getEnvAsDuration("RENDER_TIMEOUT", 30*time.Second),
		NarrativeConfig:   os.Getenv("NARRATIVE_CONFIG"),
		PlatformName:      getEnv("PLATFORM_NAME", "RiskAvert AI Platform v2.1"),
	}

	return c, c.validate()
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool { return c.Env == "production" }

// AuthEnabled reports whether bearer tokens are verified.
func (c *Config) AuthEnabled() bool { return c.JWTSecret != "" }

func (c *Config) validate() error {
	var errs []error

	switch c.Env {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("ENV must be development, staging or production, got %q", c.Env))
	}

	if c.IsProduction() {
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("missing required env var in production: JWT_SECRET"))
		}
		if c.CORSAllowedOrigin == "*" {
			errs = append(errs, errors.New("CORS_ALLOWED_ORIGIN must name a single origin in production"))
		}
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}

	if c.RenderWorkers <= 0 {
		errs = append(errs, fmt.Errorf("RENDER_WORKERS must be > 0, got %d", c.RenderWorkers))
	}
	if c.RenderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RENDER_TIMEOUT must be > 0, got %s", c.RenderTimeout))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be > 0, got %d", c.MaxBodyBytes))
	}

	return errors.Join(errs...)
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration syntax ("30s", "2m") or a plain
// integer, which is read as seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(value) * time.Second
	}
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
