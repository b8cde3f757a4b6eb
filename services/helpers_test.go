package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/sidhant-sriv/smart-renter/config"
	"github.com/sidhant-sriv/smart-renter/db/dbtest"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	db         *gorm.DB
	properties *PropertyService
	bookings   *BookingService
	reviews    *ReviewService

	owner  *Principal
	tenant *Principal
	admin  *Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	log := discardLogger()

	f := &fixture{db: conn}
	f.properties = NewPropertyService(conn, config.DefaultPropertyTypes, nil, log)
	f.bookings = NewBookingService(conn, log)
	f.reviews = NewReviewService(conn, f.properties, f.bookings, log)

	f.owner = f.user(t, "Olivia Owner", models.RoleOwner)
	f.tenant = f.user(t, "Tom Tenant", models.RoleTenant)
	f.admin = f.user(t, "Ada Admin", models.RoleAdmin)
	return f
}

// user inserts an account directly; password hashing is covered by the
// auth tests.
func (f *fixture) user(t *testing.T, name string, role models.Role) *Principal {
	t.Helper()
	var n int64
	f.db.Model(&models.User{}).Count(&n)
	u := models.User{Name: name, Email: fmt.Sprintf("user%d@example.com", n+1), Password: "x", Role: role}
	require.NoError(t, f.db.Create(&u).Error)
	return &Principal{ID: u.ID, Role: role}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool { return &b }
func listPtr(l ...string) *[]string { return &l }

func flatInput(title, propertyType string, price float64) PropertyInput {
	return PropertyInput{
		Title:              strPtr(title),
		Address:            strPtr("12 Residency Road, Bengaluru"),
		Price:              floatPtr(price),
		PropertyType:       strPtr(propertyType),
		OwnerContactNumber: strPtr("123"),
	}
}

// listing creates a property as the fixture owner and optionally approves it.
func (f *fixture) listing(t *testing.T, in PropertyInput, approve bool) *models.Property {
	t.Helper()
	ctx := context.Background()
	prop, err := f.properties.Create(ctx, f.owner, in, nil)
	require.NoError(t, err)
	if approve {
		prop, err = f.properties.SetApprovalStatus(ctx, f.admin, prop.ID, models.ApprovalApproved)
		require.NoError(t, err)
	}
	return prop
}
