package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DBConfig holds the discrete Postgres settings used when DATABASE_URL is not set.
type DBConfig struct {
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASSWORD" env-default:"postgres"`
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"5432"`
	Name     string `env:"DB_NAME" env-default:"hacaton_db"`
}

// URL composes a Postgres connection string.
func (d DBConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	return u.String()
}

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port           string   `env:"PORT" env-default:"8000"`
	DatabaseDriver string   `env:"DATABASE_DRIVER" env-default:"postgres"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	SQLitePath     string   `env:"SQLITE_PATH" env-default:"data/portal.db"`
	JWTSecret      string   `env:"JWT_SECRET"`
	JWTIssuer      string   `env:"JWT_ISSUER" env-default:"citizen-portal"`
	JWTTTLMinutes  int      `env:"JWT_TTL_MINUTES" env-default:"30"`
	BcryptCost     int      `env:"BCRYPT_COST" env-default:"10"`
	CORSOrigins    []string `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	LogLevel       string   `env:"LOG_LEVEL" env-default:"info"`
	SeedFile       string   `env:"SEED_FILE"`
	SeedOnStart    bool     `env:"SEED_ON_START" env-default:"false"`

	DB DBConfig
}

// LoadDotEnv loads .env files (".env" when none are given) without overriding
// variables already set. It reports whether the files were read.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	return cfg.normalize()
}

func (c Config) normalize() (Config, error) {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.CORSOrigins = trimAll(c.CORSOrigins)

	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			c.DatabaseURL = c.DB.URL()
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return Config{}, errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if c.JWTTTLMinutes <= 0 {
		c.JWTTTLMinutes = 30
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return c, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// JWTTTL is the access token lifetime.
func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
