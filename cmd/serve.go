package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sidhant-sriv/smart-renter/config"
	"github.com/sidhant-sriv/smart-renter/db"
	"github.com/sidhant-sriv/smart-renter/middleware"
	"github.com/sidhant-sriv/smart-renter/response"
	"github.com/sidhant-sriv/smart-renter/routes"
	"github.com/sidhant-sriv/smart-renter/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const (
	geocodeTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. The schema is migrated on startup.

Examples:
  smart-renter serve                   # Listen on PORT (default 8080)
  smart-renter serve --port 9000       # Override the port
  smart-renter serve --env-file prod.env`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := db.Open(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer db.Close(conn)
	if err := db.Migrate(conn); err != nil {
		return err
	}

	geocoder, closeGeocoder := newGeocoder(ctx, cfg, logger)
	defer closeGeocoder()

	router := newRouter(cfg, conn, geocoder, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("server running", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter wires the services into a gin engine.
func newRouter(cfg *config.Config, conn *gorm.DB, geocoder services.Geocoder, logger *slog.Logger) *gin.Engine {
	switch {
	case cfg.GinMode != "":
		gin.SetMode(cfg.GinMode)
	case !cfg.IsDevelopment():
		gin.SetMode(gin.ReleaseMode)
	}

	auth := services.NewAuthService(conn, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)
	props := services.NewPropertyService(conn, cfg.PropertyTypes, geocoder, logger)
	bookings := services.NewBookingService(conn, logger)
	reviews := services.NewReviewService(conn, props, bookings, logger)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORSMiddleware(cfg.CORSOrigins))
	if cfg.IsDevelopment() {
		router.Use(response.Detail())
	}
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	routes.Register(router, routes.Deps{
		Auth:       auth,
		Properties: props,
		Bookings:   bookings,
		Reviews:    reviews,
		Photos:     &routes.PhotoStore{Dir: cfg.UploadDir, MaxBytes: cfg.MaxUploadBytes, Logger: logger},
	})
	return router
}

// newGeocoder returns nil when no maps key is configured. The Redis cache
// is optional and skipped when unreachable.
func newGeocoder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.Geocoder, func()) {
	noop := func() {}
	if cfg.MapsAPIKey == "" {
		logger.Info("geocoding disabled: MAPS_API_KEY not set")
		return nil, noop
	}
	var geocoder services.Geocoder = services.NewGoogleGeocoder(cfg.MapsGeocodeURL, cfg.MapsAPIKey, geocodeTimeout)
	if cfg.RedisURL == "" {
		return geocoder, noop
	}

	addr, password, index := cfg.RedisAddr()
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: index})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("geocode cache disabled: redis unreachable", "addr", addr, "error", err)
		rdb.Close()
		return geocoder, noop
	}
	logger.Info("geocode cache enabled", "addr", addr, "ttl", cfg.GeocodeCacheTTL)
	return services.NewCachedGeocoder(geocoder, rdb, cfg.GeocodeCacheTTL, logger), func() { rdb.Close() }
}
