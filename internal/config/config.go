// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/bloks-dev/backend/internal/auth"
)

var validate = validator.New()

type Config struct {
	Port               string        `validate:"required,numeric"`
	DatabaseURL        string        `validate:"required,url"`
	LogLevel           string        `validate:"oneof=debug info warn error"`
	AuthMode           string        `validate:"oneof=jwks hmac noop"`
	AuthJWKSURL        string        `validate:"omitempty,url"`
	AuthAudience       string
	AuthIssuer         string
	AuthHMACSecret     string
	CORSAllowedOrigins []string      `validate:"min=1,dive,required"`
	DuplicatePolicy    string        `validate:"oneof=allow reject"`
	ReconcileInterval  time.Duration `validate:"gte=1m"`
	ReconcileBatch     int           `validate:"gt=0,lte=10000"`
	RequestTimeout     time.Duration `validate:"gte=1s"`
	CatalogPath        string        `validate:"omitempty,file"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, applying defaults for unset keys.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	interval, err := time.ParseDuration(get("STREAK_RECONCILE_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("STREAK_RECONCILE_INTERVAL: %w", err)
	}
	timeout, err := time.ParseDuration(get("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}
	batch, err := strconv.Atoi(get("STREAK_RECONCILE_BATCH", "500"))
	if err != nil {
		return nil, fmt.Errorf("STREAK_RECONCILE_BATCH: %w", err)
	}

	databaseURL := get("DATABASE_URL", "")
	if databaseURL == "" {
		databaseURL = postgresURL(
			get("DB_HOST", "localhost"),
			get("DB_PORT", "5432"),
			get("DB_USER", "bloks_user"),
			get("DB_PASSWORD", "bloks_password"),
			get("DB_NAME", "bloks"),
			get("DB_SSLMODE", "disable"),
		)
	}

	cfg := &Config{
		Port:               get("PORT", "8080"),
		DatabaseURL:        databaseURL,
		LogLevel:           strings.ToLower(get("LOG_LEVEL", "info")),
		AuthMode:           strings.ToLower(get("AUTH_MODE", "jwks")),
		AuthJWKSURL:        get("AUTH_JWKS_URL", ""),
		AuthAudience:       get("AUTH_AUDIENCE", ""),
		AuthIssuer:         get("AUTH_ISSUER", ""),
		AuthHMACSecret:     get("AUTH_HMAC_SECRET", ""),
		CORSAllowedOrigins: splitList(get("CORS_ALLOWED_ORIGINS", "*")),
		DuplicatePolicy:    strings.ToLower(get("SUBMISSION_DUPLICATE_POLICY", "allow")),
		ReconcileInterval:  interval,
		ReconcileBatch:     batch,
		RequestTimeout:     timeout,
		CatalogPath:        get("CATALOG_PATH", ""),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch auth.Mode(c.AuthMode) {
	case auth.ModeJWKS:
		if c.AuthJWKSURL == "" {
			return errors.New("invalid config: AUTH_JWKS_URL is required for jwks auth")
		}
	case auth.ModeHMAC:
		if len(c.AuthHMACSecret) < 32 {
			return errors.New("invalid config: AUTH_HMAC_SECRET must be at least 32 bytes")
		}
	}
	return nil
}

func (c *Config) Auth() auth.Config {
	return auth.Config{
		Mode:       auth.Mode(c.AuthMode),
		JWKSURL:    c.AuthJWKSURL,
		Audience:   c.AuthAudience,
		Issuer:     c.AuthIssuer,
		HMACSecret: c.AuthHMACSecret,
	}
}

func postgresURL(host, port, user, password, dbname, sslmode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
