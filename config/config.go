// Package config loads runtime settings from a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPropertyTypes is the allow-list used when PROPERTY_TYPES is unset.
var DefaultPropertyTypes = []string{
	"single", "double", "triple", "1bhk", "2bhk", "3bhk",
	"apartment", "house", "villa", "studio",
}

type Config struct {
	Port    string
	Env     string
	GinMode string

	DatabaseURL string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	MapsAPIKey      string
	MapsGeocodeURL  string
	RedisURL        string
	GeocodeCacheTTL time.Duration

	UploadDir      string
	MaxUploadBytes int64

	PropertyTypes []string
	CORSOrigins   []string
	LogLevel      slog.Level
}

// IsDevelopment reports whether internal error detail may be shown to callers.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads envFile (ignored when missing) and then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("could not load env file, using process environment", "file", envFile, "error", err)
	}

	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		Env:            getenv("APP_ENV", "production"),
		GinMode:        os.Getenv("GIN_MODE"),
		DatabaseURL:    databaseURL(),
		JWTSecret:      os.Getenv("JWT_SECRET_KEY"),
		MapsAPIKey:     os.Getenv("MAPS_API_KEY"),
		MapsGeocodeURL: getenv("MAPS_GEOCODE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		RedisURL:       os.Getenv("REDIS_URL"),
		UploadDir:      getenv("UPLOAD_DIR", "./uploads"),
		PropertyTypes:  splitList(getenv("PROPERTY_TYPES", strings.Join(DefaultPropertyTypes, ","))),
		CORSOrigins:    splitList(os.Getenv("CORS_ORIGINS")),
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheTTL, err = durationEnv("GEOCODE_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = int64Env("MAX_UPLOAD_BYTES", 5<<20); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET_KEY environment variable is required")
	}
	if len(cfg.PropertyTypes) == 0 {
		return nil, errors.New("PROPERTY_TYPES must list at least one property type")
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL and falls back to the DB_* variables.
func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	if os.Getenv("DB_HOST") == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USERNAME"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		getenv("DB_PORT", "5432"),
		getenv("DB_SSLMODE", "disable"),
		getenv("DB_TIMEZONE", "UTC"),
	)
}

// RedisAddr accepts either a redis:// URL or a bare host:port.
func (c *Config) RedisAddr() (addr, password string, db int) {
	u, err := url.Parse(c.RedisURL)
	if err != nil || u.Host == "" {
		return c.RedisURL, "", 0
	}
	password, _ = u.User.Password()
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		db, _ = strconv.Atoi(p)
	}
	return u.Host, password, db
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
