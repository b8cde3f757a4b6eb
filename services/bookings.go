package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/db"
	"github.com/sidhant-sriv/smart-renter/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingInput struct {
	PropertyID uint
	FromDate   time.Time
	ToDate     time.Time
	Message    string
}

// BookingService runs the reservation workflow: tenants request and cancel,
// property owners approve or reject.
type BookingService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewBookingService(conn *gorm.DB, logger *slog.Logger) *BookingService {
	return &BookingService{db: conn, log: logger}
}

// Create opens a pending booking against a public listing. A tenant may hold
// only one pending or approved booking per property.
func (s *BookingService) Create(ctx context.Context, p *Principal, in BookingInput) (*models.Booking, error) {
	if err := RequireRole(p, models.RoleTenant); err != nil {
		return nil, err
	}
	if in.PropertyID == 0 || in.FromDate.IsZero() || in.ToDate.IsZero() {
		return nil, apperr.Validation("Missing required fields")
	}

	var prop models.Property
	err := s.db.WithContext(ctx).First(&prop, in.PropertyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Property not found")
	}
	if err != nil {
		return nil, s.storeErr("Failed to create booking", err)
	}
	if !prop.Public() {
		return nil, apperr.Validation("Property is not available for booking")
	}

	var active int64
	err = s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("property_id = ? AND tenant_id = ? AND status IN ?", prop.ID, p.ID, models.ActiveBookingStatuses).
		Count(&active).Error
	if err != nil {
		return nil, s.storeErr("Failed to create booking", err)
	}
	if active > 0 {
		return nil, apperr.Validation("You already have an active booking for this property")
	}

	booking := &models.Booking{
		PropertyID: prop.ID,
		TenantID:   p.ID,
		FromDate:   in.FromDate,
		ToDate:     in.ToDate,
		Status:     models.BookingPending,
		Message:    strings.TrimSpace(in.Message),
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error; err != nil {
		// A concurrent request won the race past the count above.
		if db.IsDuplicateKey(err) {
			return nil, apperr.Validation("You already have an active booking for this property")
		}
		return nil, s.storeErr("Failed to create booking", err)
	}
	return s.load(ctx, booking.ID)
}

// UpdateStatus lets the property owner approve or reject a pending booking.
func (s *BookingService) UpdateStatus(ctx context.Context, p *Principal, id uint, status models.BookingStatus, ownerResponse string) (*models.Booking, error) {
	if p == nil {
		return nil, apperr.Authentication("Authentication required")
	}
	if status != models.BookingApproved && status != models.BookingRejected {
		return nil, apperr.Validation("Invalid status")
	}
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Property == nil {
		return nil, apperr.NotFound("Property not found")
	}
	if err := RequireOwner(p, booking.Property.OwnerID, false, "Not authorized to update this booking"); err != nil {
		return nil, err
	}

	updates := map[string]any{"status": status}
	if r := strings.TrimSpace(ownerResponse); r != "" {
		updates["owner_response"] = r
	}
	if err := s.transition(ctx, booking.ID, updates, "Can only update pending bookings"); err != nil {
		return nil, err
	}
	s.log.Info("booking status changed", "booking_id", booking.ID, "status", status, "owner_id", p.ID)
	return s.load(ctx, booking.ID)
}

// Cancel withdraws the caller's own booking while it is still pending.
func (s *BookingService) Cancel(ctx context.Context, p *Principal, id uint) (*models.Booking, error) {
	if p == nil {
		return nil, apperr.Authentication("Authentication required")
	}
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(p, booking.TenantID, false, "Not authorized to cancel this booking"); err != nil {
		return nil, err
	}
	if err := s.transition(ctx, booking.ID, map[string]any{"status": models.BookingCancelled}, "Can only cancel pending bookings"); err != nil {
		return nil, err
	}
	return s.load(ctx, booking.ID)
}

// ListForUser returns a tenant's own bookings, or for an owner the bookings
// made on any of their properties, newest first.
func (s *BookingService) ListForUser(ctx context.Context, p *Principal) ([]models.Booking, error) {
	if err := RequireRole(p, models.RoleTenant, models.RoleOwner); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Preload("Property").Preload("Tenant")
	if p.Role == models.RoleTenant {
		q = q.Where("tenant_id = ?", p.ID)
	} else {
		owned := s.db.Model(&models.Property{}).Select("id").Where("owner_id = ?", p.ID)
		q = q.Where("property_id IN (?)", owned)
	}

	bookings := []models.Booking{}
	if err := q.Order("created_at DESC, id DESC").Find(&bookings).Error; err != nil {
		return nil, s.storeErr("Failed to fetch bookings", err)
	}
	return bookings, nil
}

// Get returns one booking to its tenant, the property owner or an admin.
func (s *BookingService) Get(ctx context.Context, p *Principal, id uint) (*models.Booking, error) {
	if p == nil {
		return nil, apperr.Authentication("Authentication required")
	}
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	isOwner := booking.Property != nil && booking.Property.OwnerID == p.ID
	if booking.TenantID != p.ID && !isOwner && !p.IsAdmin() {
		return nil, apperr.Authorization("Not authorized to view this booking")
	}
	return booking, nil
}

// HasApproved reports whether the tenant holds an approved booking for the
// property.
func (s *BookingService) HasApproved(ctx context.Context, tenantID, propertyID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("property_id = ? AND tenant_id = ? AND status = ?", propertyID, tenantID, models.BookingApproved).
		Count(&count).Error
	if err != nil {
		return false, s.storeErr("Failed to check bookings", err)
	}
	return count > 0, nil
}

// transition applies updates only while the booking is still pending, so a
// concurrent decision cannot be overwritten.
func (s *BookingService) transition(ctx context.Context, id uint, updates map[string]any, rejectMsg string) error {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, models.BookingPending).
		Updates(updates)
	if res.Error != nil {
		return s.storeErr("Failed to update booking", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Validation(rejectMsg)
	}
	return nil
}

func (s *BookingService) find(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).First(&booking, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Booking not found")
	}
	if err != nil {
		return nil, s.storeErr("Failed to load booking", err)
	}
	return &booking, nil
}

func (s *BookingService) load(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).Preload("Property").Preload("Tenant").First(&booking, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Booking not found")
	}
	if err != nil {
		return nil, s.storeErr("Failed to load booking", err)
	}
	return &booking, nil
}

func (s *BookingService) storeErr(msg string, err error) error {
	s.log.Error(msg, "error", err)
	return apperr.Store(msg, err)
}
