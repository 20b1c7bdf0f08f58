// Package config loads process configuration from the environment.
//
// The Config value is built once in main and handed to constructors; nothing
// below cmd/ reads the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSecretLength matches the token service's lower bound on HMAC keys.
const MinSecretLength = 16

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds every setting the server needs.
type Config struct {
	Port int `env:"PORT" envDefault:"4000"`

	// Secret signs tokens. APP_SECRET wins; JWT_SECRET is read as a fallback.
	Secret    string `env:"APP_SECRET"`
	JWTSecret string `env:"JWT_SECRET"`

	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	DB DBConfig

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// DBConfig selects and locates the credential store.
type DBConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`

	// sqlite
	Path string `env:"DB_PATH" envDefault:"data/auth.db"`

	// postgres: either a full URL, or the parts below.
	URL      string `env:"DATABASE_URL"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST" envDefault:"localhost:5432"`
	Name     string `env:"DB_NAME" envDefault:"auth"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// SigningSecret returns the effective token signing secret.
func (c Config) SigningSecret() string {
	if c.Secret != "" {
		return c.Secret
	}
	return c.JWTSecret
}

// Validate reports configuration that would prevent the server from running.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	switch secret := c.SigningSecret(); {
	case secret == "":
		errs = append(errs, errors.New("APP_SECRET is required"))
	case len(secret) < MinSecretLength:
		errs = append(errs, fmt.Errorf("APP_SECRET must be at least %d characters", MinSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case DriverPostgres:
		if c.DB.URL == "" && (c.DB.User == "" || c.DB.Host == "" || c.DB.Name == "") {
			errs = append(errs, errors.New("postgres needs DATABASE_URL or DB_USER, DB_HOST and DB_NAME"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of %s, %s", c.DB.Driver, DriverSQLite, DriverPostgres))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// PostgresDSN builds the connection URL for the postgres driver.
func (d DBConfig) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host,
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// ParseLevel maps LOG_LEVEL values to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}
