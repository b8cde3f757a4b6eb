package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// kmPerDegree approximates the length of one degree of latitude.
const kmPerDegree = 111.0

// PropertyInput carries listing fields from a request. Nil fields were not
// provided and keep their current (or default) value.
type PropertyInput struct {
	Title              *string
	Description        *string
	Address            *string
	Location           *models.Location
	Price              *float64
	PropertyType       *string
	Bedrooms           *int
	Bathrooms          *int
	Area               *float64
	Furnished          *bool
	PetsAllowed        *bool
	Parking            *bool
	Amenities          *[]string
	OwnerContactNumber *string
	Available          *bool
}

// SearchFilter selects public listings. Zero values do not filter.
// Limit 0 returns every match.
type SearchFilter struct {
	Location     string
	MinPrice     *float64
	MaxPrice     *float64
	PropertyType string
	Bedrooms     *int
	Furnished    *bool
	PetsAllowed  *bool
	Parking      *bool
	OwnerID      uint
	Page         int
	Limit        int
}

// propertyRules are the schema rules every stored listing satisfies.
type propertyRules struct {
	Title              string   `validate:"required"`
	Address            string   `validate:"required"`
	Price              float64  `validate:"gt=0"`
	PropertyType       string   `validate:"required"`
	Bedrooms           int      `validate:"gte=0"`
	Bathrooms          int      `validate:"gte=0"`
	Area               float64  `validate:"gte=0"`
	OwnerContactNumber string   `validate:"required"`
	Photos             []string `validate:"max=5"`
}

// PropertyService implements the listing catalog, public search and the
// admin approval workflow.
type PropertyService struct {
	db       *gorm.DB
	types    map[string]struct{}
	geocoder Geocoder
	validate *validator.Validate
	log      *slog.Logger
}

// NewPropertyService builds the service. geocoder may be nil, in which
// case listings without explicit coordinates keep them unknown.
func NewPropertyService(conn *gorm.DB, propertyTypes []string, geocoder Geocoder, logger *slog.Logger) *PropertyService {
	types := make(map[string]struct{}, len(propertyTypes))
	for _, t := range propertyTypes {
		types[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &PropertyService{
		db:       conn,
		types:    types,
		geocoder: geocoder,
		validate: validator.New(),
		log:      logger,
	}
}

func (s *PropertyService) Create(ctx context.Context, p *Principal, in PropertyInput, photos []string) (*models.Property, error) {
	if err := RequireRole(p, models.RoleOwner); err != nil {
		return nil, err
	}

	prop := &models.Property{
		OwnerID:        p.ID,
		Bedrooms:       1,
		Bathrooms:      1,
		Amenities:      []string{},
		Photos:         append([]string{}, photos...),
		Available:      true,
		ApprovalStatus: models.ApprovalPending,
	}
	in.Available = nil
	applyPropertyInput(prop, in)

	if err := s.check(prop); err != nil {
		return nil, err
	}
	if in.Location == nil {
		prop.Location = s.resolveLocation(ctx, prop.Address)
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(prop).Error; err != nil {
		return nil, s.storeErr("Failed to create property", err)
	}
	return s.load(ctx, prop.ID)
}

func (s *PropertyService) Update(ctx context.Context, p *Principal, id uint, in PropertyInput, newPhotos []string) (*models.Property, error) {
	prop, err := s.authorizeUpdate(ctx, p, id)
	if err != nil {
		return nil, err
	}

	oldAddress := prop.Address
	applyPropertyInput(prop, in)
	if len(newPhotos) > 0 {
		prop.Photos = append(append([]string{}, prop.Photos...), newPhotos...)
	}
	if err := s.check(prop); err != nil {
		return nil, err
	}
	if in.Location == nil && prop.Address != oldAddress {
		prop.Location = s.resolveLocation(ctx, prop.Address)
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(prop).Error; err != nil {
		return nil, s.storeErr("Failed to update property", err)
	}
	return s.load(ctx, prop.ID)
}

// AuthorizeUpdate reports whether the caller may update the listing,
// without changing it.
func (s *PropertyService) AuthorizeUpdate(ctx context.Context, p *Principal, id uint) error {
	_, err := s.authorizeUpdate(ctx, p, id)
	return err
}

func (s *PropertyService) authorizeUpdate(ctx context.Context, p *Principal, id uint) (*models.Property, error) {
	if p == nil {
		return nil, apperr.Authentication("Authentication required")
	}
	prop, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(p, prop.OwnerID, false, "Not authorized to update this property"); err != nil {
		return nil, err
	}
	return prop, nil
}

// Delete removes the listing permanently. Its bookings and reviews keep
// their references.
func (s *PropertyService) Delete(ctx context.Context, p *Principal, id uint) error {
	if p == nil {
		return apperr.Authentication("Authentication required")
	}
	prop, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := RequireOwner(p, prop.OwnerID, true, "Not authorized to delete this property"); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Property{}, prop.ID).Error; err != nil {
		return s.storeErr("Failed to delete property", err)
	}
	return nil
}

// Search returns public listings matching the filter, newest first, and
// the total number of matches.
func (s *PropertyService) Search(ctx context.Context, f SearchFilter) ([]models.Property, int64, error) {
	var total int64
	if err := applySearchFilter(s.publicQuery(ctx), f).Count(&total).Error; err != nil {
		return nil, 0, s.storeErr("Failed to search properties", err)
	}

	q := applySearchFilter(s.publicQuery(ctx), f)
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q = q.Limit(f.Limit).Offset((page - 1) * f.Limit)
	}

	props := []models.Property{}
	if err := q.Preload("Owner").Order("created_at DESC, id DESC").Find(&props).Error; err != nil {
		return nil, 0, s.storeErr("Failed to search properties", err)
	}
	return props, total, nil
}

func applySearchFilter(q *gorm.DB, f SearchFilter) *gorm.DB {
	if loc := strings.TrimSpace(f.Location); loc != "" {
		q = q.Where("LOWER(address) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(loc))+"%")
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.PropertyType != "" {
		q = q.Where("property_type = ?", f.PropertyType)
	}
	if f.Bedrooms != nil {
		q = q.Where("bedrooms = ?", *f.Bedrooms)
	}
	if f.Furnished != nil {
		q = q.Where("furnished = ?", *f.Furnished)
	}
	if f.PetsAllowed != nil {
		q = q.Where("pets_allowed = ?", *f.PetsAllowed)
	}
	if f.Parking != nil {
		q = q.Where("parking = ?", *f.Parking)
	}
	if f.OwnerID != 0 {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	return q
}

// Nearby returns public listings inside a square of radiusKm around the
// point. Listings with unknown coordinates never match.
func (s *PropertyService) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]models.Property, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperr.Validation("Invalid coordinates")
	}
	if radiusKm <= 0 {
		return nil, apperr.Validation("radiusKm must be greater than 0")
	}
	delta := radiusKm / kmPerDegree

	props := []models.Property{}
	err := s.publicQuery(ctx).
		Where("location_lat BETWEEN ? AND ?", lat-delta, lat+delta).
		Where("location_lng BETWEEN ? AND ?", lng-delta, lng+delta).
		Preload("Owner").
		Order("created_at DESC, id DESC").
		Find(&props).Error
	if err != nil {
		return nil, s.storeErr("Failed to search properties", err)
	}
	return props, nil
}

// Get returns a listing. Anonymous callers and other users only see
// approved listings; everything else is reported as not found.
func (s *PropertyService) Get(ctx context.Context, viewer *Principal, id uint) (*models.Property, error) {
	prop, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if prop.ApprovalStatus == models.ApprovalApproved || viewer.IsAdmin() || (viewer != nil && viewer.ID == prop.OwnerID) {
		return prop, nil
	}
	return nil, apperr.NotFound("Property not found")
}

// ListByOwner returns the caller's own listings in every approval state.
func (s *PropertyService) ListByOwner(ctx context.Context, p *Principal) ([]models.Property, error) {
	if err := RequireRole(p, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	props := []models.Property{}
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", p.ID).
		Preload("Owner").
		Order("created_at DESC, id DESC").
		Find(&props).Error
	if err != nil {
		return nil, s.storeErr("Failed to fetch owner properties", err)
	}
	return props, nil
}

// ListPending returns listings awaiting an approval decision.
func (s *PropertyService) ListPending(ctx context.Context, p *Principal) ([]models.Property, error) {
	if err := RequireRole(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	props := []models.Property{}
	err := s.db.WithContext(ctx).
		Where("approval_status = ?", models.ApprovalPending).
		Preload("Owner").
		Order("created_at DESC, id DESC").
		Find(&props).Error
	if err != nil {
		return nil, s.storeErr("Failed to fetch pending properties", err)
	}
	return props, nil
}

// SetApprovalStatus moves a listing out of pending. Only approved and
// rejected are valid targets.
func (s *PropertyService) SetApprovalStatus(ctx context.Context, p *Principal, id uint, status models.ApprovalStatus) (*models.Property, error) {
	if err := RequireRole(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	if status != models.ApprovalApproved && status != models.ApprovalRejected {
		return nil, apperr.Validation("Invalid status")
	}
	prop, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&models.Property{}).
		Where("id = ?", prop.ID).
		Update("approval_status", status).Error
	if err != nil {
		return nil, s.storeErr("Failed to update approval status", err)
	}
	s.log.Info("property approval status changed", "property_id", prop.ID, "status", status, "admin_id", p.ID)
	return s.load(ctx, prop.ID)
}

// Exists reports whether a listing with the id is stored, in any state.
func (s *PropertyService) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, s.storeErr("Failed to load property", err)
	}
	return count > 0, nil
}

func (s *PropertyService) publicQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Property{}).
		Where("available = ? AND approval_status = ?", true, models.ApprovalApproved)
}

func (s *PropertyService) find(ctx context.Context, id uint) (*models.Property, error) {
	var prop models.Property
	err := s.db.WithContext(ctx).First(&prop, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Property not found")
	}
	if err != nil {
		return nil, s.storeErr("Failed to load property", err)
	}
	return &prop, nil
}

func (s *PropertyService) load(ctx context.Context, id uint) (*models.Property, error) {
	var prop models.Property
	err := s.db.WithContext(ctx).Preload("Owner").First(&prop, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Property not found")
	}
	if err != nil {
		return nil, s.storeErr("Failed to load property", err)
	}
	return &prop, nil
}

func (s *PropertyService) check(prop *models.Property) error {
	if !finite(prop.Price) || !finite(prop.Area) {
		return apperr.Validation("Price and area must be finite numbers")
	}
	rules := propertyRules{
		Title:              prop.Title,
		Address:            prop.Address,
		Price:              prop.Price,
		PropertyType:       prop.PropertyType,
		Bedrooms:           prop.Bedrooms,
		Bathrooms:          prop.Bathrooms,
		Area:               prop.Area,
		OwnerContactNumber: prop.OwnerContactNumber,
		Photos:             prop.Photos,
	}
	if err := s.validate.Struct(rules); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Validation(ruleMessage(verrs[0]))
		}
		return apperr.Validation("Invalid property")
	}
	if _, ok := s.types[strings.ToLower(prop.PropertyType)]; !ok {
		return apperr.Validationf("Invalid property type %q", prop.PropertyType)
	}
	loc := prop.Location
	if (loc.Lat == nil) != (loc.Lng == nil) {
		return apperr.Validation("Location needs both lat and lng")
	}
	if loc.Known() && (!finite(*loc.Lat) || !finite(*loc.Lng)) {
		return apperr.Validation("Invalid coordinates")
	}
	if loc.Known() && (*loc.Lat < -90 || *loc.Lat > 90 || *loc.Lng < -180 || *loc.Lng > 180) {
		return apperr.Validation("Invalid coordinates")
	}
	return nil
}

// resolveLocation geocodes the address. Failures leave the coordinates
// unknown rather than failing the write.
func (s *PropertyService) resolveLocation(ctx context.Context, address string) models.Location {
	if s.geocoder == nil {
		return models.Location{}
	}
	loc, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		s.log.Warn("geocoding failed, coordinates unknown", "kind", apperr.KindOf(err), "error", err)
		return models.Location{}
	}
	return loc
}

func (s *PropertyService) storeErr(msg string, err error) error {
	s.log.Error(msg, "error", err)
	return apperr.Store(msg, err)
}

func applyPropertyInput(prop *models.Property, in PropertyInput) {
	if in.Title != nil {
		prop.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		prop.Description = *in.Description
	}
	if in.Address != nil {
		prop.Address = strings.TrimSpace(*in.Address)
	}
	if in.Location != nil {
		prop.Location = *in.Location
	}
	if in.Price != nil {
		prop.Price = *in.Price
	}
	if in.PropertyType != nil {
		prop.PropertyType = strings.TrimSpace(*in.PropertyType)
	}
	if in.Bedrooms != nil {
		prop.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		prop.Bathrooms = *in.Bathrooms
	}
	if in.Area != nil {
		prop.Area = *in.Area
	}
	if in.Furnished != nil {
		prop.Furnished = *in.Furnished
	}
	if in.PetsAllowed != nil {
		prop.PetsAllowed = *in.PetsAllowed
	}
	if in.Parking != nil {
		prop.Parking = *in.Parking
	}
	if in.Amenities != nil {
		prop.Amenities = NormalizeAmenities(*in.Amenities)
	}
	if in.OwnerContactNumber != nil {
		prop.OwnerContactNumber = strings.TrimSpace(*in.OwnerContactNumber)
	}
	if in.Available != nil {
		prop.Available = *in.Available
	}
}

// NormalizeAmenities splits comma-separated entries, trims them, drops
// empties and duplicates, and keeps first-seen order.
func NormalizeAmenities(raw []string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, entry := range raw {
		for _, a := range strings.Split(entry, ",") {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func ruleMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Missing required field: %s", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", field)
	case "max":
		return fmt.Sprintf("%s allows at most %s entries", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}
