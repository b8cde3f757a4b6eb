package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/rentals")
	t.Setenv("PROPERTY_TYPES", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("REFRESH_TOKEN_TTL", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, DefaultPropertyTypes, cfg.PropertyTypes)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	_, err := Load(missingEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("ACCESS_TOKEN_TTL", "an hour")
	_, err := Load(missingEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_TTL")
}

func TestDatabaseURLFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USERNAME", "rent")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "rentals")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("DB_TIMEZONE", "")

	assert.Equal(t, "host=db user=rent password=pw dbname=rentals port=5432 sslmode=disable TimeZone=UTC", databaseURL())
}

func TestPropertyTypesList(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("PROPERTY_TYPES", " 2BHK, villa ,,studio")
	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"2BHK", "villa", "studio"}, cfg.PropertyTypes)
}

func TestRedisAddr(t *testing.T) {
	cfg := &Config{RedisURL: "redis://:hunter2@cache:6380/2"}
	addr, pw, db := cfg.RedisAddr()
	assert.Equal(t, "cache:6380", addr)
	assert.Equal(t, "hunter2", pw)
	assert.Equal(t, 2, db)

	cfg.RedisURL = "localhost:6379"
	addr, pw, db = cfg.RedisAddr()
	assert.Equal(t, "localhost:6379", addr)
	assert.Empty(t, pw)
	assert.Zero(t, db)
}
