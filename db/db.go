package db

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sidhant-sriv/smart-renter/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL. The caller owns the handle and must Close it.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database connection settings are missing: set DATABASE_URL or DB_HOST")
	}
	return OpenDialector(postgres.Open(dsn), debug)
}

// OpenDialector opens any gorm dialector with the settings the services rely
// on: translated constraint errors and no foreign key constraints, since
// references are resolved by explicit preloads.
func OpenDialector(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	conn, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	slog.Info("connected to the database", "dialect", conn.Dialector.Name())
	return conn, nil
}

// activeBookingIndex keeps at most one pending or approved booking per
// tenant and property. The partial index syntax is shared by PostgreSQL and
// SQLite.
const activeBookingIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_tenant_property
ON bookings (tenant_id, property_id)
WHERE status IN ('pending', 'approved')`

// Migrate creates or updates the schema for every model.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Booking{},
		&models.Review{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := conn.Exec(activeBookingIndex).Error; err != nil {
		return fmt.Errorf("create active booking index: %w", err)
	}
	slog.Info("database migrated successfully")
	return nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsDuplicateKey reports whether err is a unique constraint violation.
// Drivers that do not translate their errors are matched on the message.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
