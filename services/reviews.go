package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/db"
	"github.com/sidhant-sriv/smart-renter/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultReviewPageSize = 10
	maxReviewPageSize     = 100
)

// reviewSortColumns maps accepted sort keys to columns.
var reviewSortColumns = map[string]string{
	"createdAt": "created_at",
	"rating":    "rating",
	"helpful":   "helpful",
}

type ReviewInput struct {
	PropertyID uint
	Rating     int
	Comment    string
}

type ReviewQuery struct {
	Page  int
	Limit int
	Sort  string
}

// ReviewStats aggregates over every review of a property, not only the
// returned page.
type ReviewStats struct {
	AverageRating      float64     `json:"averageRating"`
	TotalReviews       int64       `json:"totalReviews"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
}

type ReviewPage struct {
	Reviews []models.Review `json:"reviews"`
	Stats   ReviewStats     `json:"stats"`
	Page    int             `json:"-"`
	Limit   int             `json:"-"`
	Total   int64           `json:"-"`
}

// ReviewService stores tenant reviews and computes per-property rating
// statistics.
type ReviewService struct {
	db         *gorm.DB
	properties *PropertyService
	bookings   *BookingService
	log        *slog.Logger
}

func NewReviewService(conn *gorm.DB, properties *PropertyService, bookings *BookingService, logger *slog.Logger) *ReviewService {
	return &ReviewService{db: conn, properties: properties, bookings: bookings, log: logger}
}

// Add records the caller's single review of a property. The review is
// marked verified when the tenant holds an approved booking at this moment.
func (s *ReviewService) Add(ctx context.Context, p *Principal, in ReviewInput) (*models.Review, error) {
	if err := RequireRole(p, models.RoleTenant); err != nil {
		return nil, err
	}
	if in.PropertyID == 0 {
		return nil, apperr.Validation("Property ID and rating are required")
	}
	if err := checkRating(in.Rating); err != nil {
		return nil, err
	}

	exists, err := s.properties.Exists(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("Property not found")
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.Review{}).
		Where("property_id = ? AND tenant_id = ?", in.PropertyID, p.ID).
		Count(&count).Error
	if err != nil {
		return nil, s.storeErr("Failed to add review", err)
	}
	if count > 0 {
		return nil, apperr.Validation("You have already reviewed this property")
	}

	verified, err := s.bookings.HasApproved(ctx, p.ID, in.PropertyID)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		PropertyID: in.PropertyID,
		TenantID:   p.ID,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		Verified:   verified,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.Validation("You have already reviewed this property")
		}
		return nil, s.storeErr("Failed to add review", err)
	}
	return s.load(ctx, review.ID)
}

// Update changes the rating and/or comment of the caller's own review.
func (s *ReviewService) Update(ctx context.Context, p *Principal, id uint, rating *int, comment *string) (*models.Review, error) {
	if p == nil {
		return nil, apperr.Authentication("Authentication required")
	}
	if rating != nil {
		if err := checkRating(*rating); err != nil {
			return nil, err
		}
	}
	review, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(p, review.TenantID, false, "Not authorized to update this review"); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if rating != nil {
		updates["rating"] = *rating
	}
	if comment != nil {
		updates["comment"] = strings.TrimSpace(*comment)
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(review).Updates(updates).Error; err != nil {
			return nil, s.storeErr("Failed to update review", err)
		}
	}
	return s.load(ctx, review.ID)
}

// Delete removes a review. Its author and admins may delete it.
func (s *ReviewService) Delete(ctx context.Context, p *Principal, id uint) error {
	if p == nil {
		return apperr.Authentication("Authentication required")
	}
	review, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := RequireOwner(p, review.TenantID, true, "Not authorized to delete this review"); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Review{}, review.ID).Error; err != nil {
		return s.storeErr("Failed to delete review", err)
	}
	return nil
}

// MarkHelpful increments the helpful counter and returns the new value.
// Repeated votes by the same user are counted.
func (s *ReviewService) MarkHelpful(ctx context.Context, p *Principal, id uint) (int, error) {
	if p == nil {
		return 0, apperr.Authentication("Authentication required")
	}
	res := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ?", id).
		UpdateColumn("helpful", gorm.Expr("helpful + ?", 1))
	if res.Error != nil {
		return 0, s.storeErr("Failed to mark review as helpful", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperr.NotFound("Review not found")
	}
	review, err := s.find(ctx, id)
	if err != nil {
		return 0, err
	}
	return review.Helpful, nil
}

// ListForProperty returns one page of a property's reviews with statistics
// over all of them.
func (s *ReviewService) ListForProperty(ctx context.Context, propertyID uint, q ReviewQuery) (*ReviewPage, error) {
	exists, err := s.properties.Exists(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("Property not found")
	}

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultReviewPageSize
	}
	if limit > maxReviewPageSize {
		limit = maxReviewPageSize
	}
	order, err := reviewOrder(q.Sort)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	reviews := []models.Review{}
	err = s.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Preload("Tenant").
		Order(order).
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&reviews).Error
	if err != nil {
		return nil, s.storeErr("Failed to fetch reviews", err)
	}

	return &ReviewPage{
		Reviews: reviews,
		Stats:   *stats,
		Page:    page,
		Limit:   limit,
		Total:   stats.TotalReviews,
	}, nil
}

// ListForUser returns every review written by the tenant, newest first.
func (s *ReviewService) ListForUser(ctx context.Context, tenantID uint) ([]models.Review, error) {
	reviews := []models.Review{}
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Preload("Property").
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, s.storeErr("Failed to fetch user reviews", err)
	}
	return reviews, nil
}

func (s *ReviewService) stats(ctx context.Context, propertyID uint) (*ReviewStats, error) {
	var rows []struct {
		Rating int
		Count  int
	}
	err := s.db.WithContext(ctx).Model(&models.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("property_id = ?", propertyID).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, s.storeErr("Failed to fetch reviews", err)
	}

	stats := &ReviewStats{RatingDistribution: make(map[int]int, models.MaxRating)}
	for r := models.MinRating; r <= models.MaxRating; r++ {
		stats.RatingDistribution[r] = 0
	}
	sum := 0
	for _, row := range rows {
		stats.RatingDistribution[row.Rating] += row.Count
		stats.TotalReviews += int64(row.Count)
		sum += row.Rating * row.Count
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalReviews)
	}
	return stats, nil
}

func (s *ReviewService) find(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).First(&review, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Review not found")
	}
	if err != nil {
		return nil, s.storeErr("Failed to load review", err)
	}
	return &review, nil
}

func (s *ReviewService) load(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).Preload("Property").Preload("Tenant").First(&review, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Review not found")
	}
	if err != nil {
		return nil, s.storeErr("Failed to load review", err)
	}
	return &review, nil
}

func (s *ReviewService) storeErr(msg string, err error) error {
	s.log.Error(msg, "error", err)
	return apperr.Store(msg, err)
}

func checkRating(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return apperr.Validationf("Rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	return nil
}

// reviewOrder turns "-createdAt" style keys into an ORDER BY clause.
func reviewOrder(sort string) (string, error) {
	if sort == "" {
		sort = "-createdAt"
	}
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}
	col, ok := reviewSortColumns[sort]
	if !ok {
		return "", apperr.Validationf("Unsupported sort key %q", sort)
	}
	return col + " " + dir + ", id " + dir, nil
}
