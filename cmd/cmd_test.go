package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sidhant-sriv/smart-renter/config"
	"github.com/sidhant-sriv/smart-renter/db/dbtest"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/sidhant-sriv/smart-renter/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:             "test",
		GinMode:         "test",
		JWTSecret:       "test-secret",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 30 * time.Minute,
		UploadDir:       t.TempDir(),
		MaxUploadBytes:  1 << 20,
		PropertyTypes:   config.DefaultPropertyTypes,
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t)
	auth := services.NewAuthService(conn, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)
	props := services.NewPropertyService(conn, cfg.PropertyTypes, nil, logger)

	created, err := seed(ctx, conn, auth, props, "password123", logger)
	require.NoError(t, err)
	assert.Equal(t, len(seedListings), created)

	created, err = seed(ctx, conn, auth, props, "password123", logger)
	require.NoError(t, err)
	assert.Zero(t, created)

	var users int64
	require.NoError(t, conn.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 3, users)

	admin, _, err := auth.Login(ctx, "admin@smartrenter.local", "password123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	public, total, err := props.Search(ctx, services.SearchFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, len(seedListings), total)
	for _, p := range public {
		assert.Equal(t, models.ApprovalApproved, p.ApprovalStatus)
		assert.NotEmpty(t, p.OwnerContactNumber)
	}
}

func TestNewRouterServesHealth(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := newRouter(cfg, dbtest.Open(t), nil, logger)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bookings", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewGeocoderDisabledWithoutKey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	geocoder, closeFn := newGeocoder(context.Background(), testConfig(t), logger)
	defer closeFn()
	assert.Nil(t, geocoder)
}

func TestNewGeocoderWithoutCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.MapsAPIKey = "key"
	cfg.MapsGeocodeURL = "http://127.0.0.1:0"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	geocoder, closeFn := newGeocoder(context.Background(), cfg, logger)
	defer closeFn()
	assert.IsType(t, &services.GoogleGeocoder{}, geocoder)
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &config.Config{Env: "production", LogLevel: slog.LevelInfo}).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(&buf, &config.Config{Env: "development", LogLevel: slog.LevelInfo}).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	newLogger(&buf, &config.Config{Env: "production", LogLevel: slog.LevelWarn}).Info("dropped")
	assert.Empty(t, buf.String())
}
