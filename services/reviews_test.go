package services

import (
	"context"
	"testing"

	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prop := f.listing(t, flatInput("Flat", "2bhk", 12000), true)

	review, err := f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: prop.ID, Rating: 4, Comment: " Quiet street "})
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, "Quiet street", review.Comment)
	assert.False(t, review.Verified, "no approved booking")
	assert.Zero(t, review.Helpful)
	require.NotNil(t, review.Tenant)
	assert.Equal(t, f.tenant.ID, review.Tenant.ID)

	_, err = f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: prop.ID, Rating: 5})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "one review per tenant and property")
}

func TestAddReviewErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prop := f.listing(t, flatInput("Flat", "2bhk", 12000), true)

	_, err := f.reviews.Add(ctx, nil, ReviewInput{PropertyID: prop.ID, Rating: 3})
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
	_, err = f.reviews.Add(ctx, f.owner, ReviewInput{PropertyID: prop.ID, Rating: 3})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	_, err = f.reviews.Add(ctx, f.tenant, ReviewInput{Rating: 3})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	for _, rating := range []int{0, 6, -1} {
		_, err = f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: prop.ID, Rating: rating})
		assert.True(t, apperr.Is(err, apperr.KindValidation), "rating %d", rating)
	}
	_, err = f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: 9999, Rating: 3})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestReviewVerifiedByApprovedBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prop := f.listing(t, flatInput("Flat", "2bhk", 12000), true)

	booking, err := f.bookings.Create(ctx, f.tenant, bookingFor(prop.ID))
	require.NoError(t, err)
	_, err = f.bookings.UpdateStatus(ctx, f.owner, booking.ID, models.BookingApproved, "")
	require.NoError(t, err)

	review, err := f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: prop.ID, Rating: 5})
	require.NoError(t, err)
	assert.True(t, review.Verified)
}

func TestReviewVerifiedIsFixedAtWriteTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prop := f.listing(t, flatInput("Flat", "2bhk", 12000), true)

	review, err := f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: prop.ID, Rating: 4})
	require.NoError(t, err)
	assert.False(t, review.Verified)

	booking, err := f.bookings.Create(ctx, f.tenant, bookingFor(prop.ID))
	require.NoError(t, err)
	_, err = f.bookings.UpdateStatus(ctx, f.owner, booking.ID, models.BookingApproved, "")
	require.NoError(t, err)

	updated, err := f.reviews.Update(ctx, f.tenant, review.ID, nil, strPtr("Still lovely"))
	require.NoError(t, err)
	assert.False(t, updated.Verified, "a later approval does not verify an existing review")

	page, err := f.reviews.ListForProperty(ctx, prop.ID, ReviewQuery{})
	require.NoError(t, err)
	require.Len(t, page.Reviews, 1)
	assert.False(t, page.Reviews[0].Verified)
}

func TestReviewStatsCoverEveryPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prop := f.listing(t, flatInput("Flat", "2bhk", 12000), true)

	ratings := []int{5, 4, 4}
	for i, rating := range ratings {
		tenant := f.user(t, "Tenant", models.RoleTenant)
		_, err := f.reviews.Add(ctx, tenant, ReviewInput{PropertyID: prop.ID, Rating: rating})
		require.NoError(t, err, "review %d", i)
	}

	page, err := f.reviews.ListForProperty(ctx, prop.ID, ReviewQuery{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Reviews, 1)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(3), page.Stats.TotalReviews)
	assert.InDelta(t, 13.0/3.0, page.Stats.AverageRating, 1e-9)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 2, 5: 1}, page.Stats.RatingDistribution)

	last, err := f.reviews.ListForProperty(ctx, prop.ID, ReviewQuery{Page: 3, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, last.Reviews, 1)
	assert.Equal(t, page.Stats, last.Stats)

	none, err := f.reviews.ListForProperty(ctx, prop.ID, ReviewQuery{Page: 4, Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, none.Reviews)
}

func TestListReviewsDefaultsAndSort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prop := f.listing(t, flatInput("Flat", "2bhk", 12000), true)

	var ids []uint
	for _, rating := range []int{2, 5, 3} {
		tenant := f.user(t, "Tenant", models.RoleTenant)
		r, err := f.reviews.Add(ctx, tenant, ReviewInput{PropertyID: prop.ID, Rating: rating})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	ratingsOf := func(q ReviewQuery) []int {
		t.Helper()
		page, err := f.reviews.ListForProperty(ctx, prop.ID, q)
		require.NoError(t, err)
		out := []int{}
		for _, r := range page.Reviews {
			out = append(out, r.Rating)
		}
		return out
	}

	page, err := f.reviews.ListForProperty(ctx, prop.ID, ReviewQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, ids[2], page.Reviews[0].ID, "newest first by default")

	assert.Equal(t, []int{2, 5, 3}, ratingsOf(ReviewQuery{Sort: "createdAt"}))
	assert.Equal(t, []int{5, 3, 2}, ratingsOf(ReviewQuery{Sort: "-rating"}))
	assert.Equal(t, []int{2, 3, 5}, ratingsOf(ReviewQuery{Sort: "rating"}))

	_, err = f.reviews.ListForProperty(ctx, prop.ID, ReviewQuery{Sort: "comment; DROP TABLE reviews"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.reviews.ListForProperty(ctx, 9999, ReviewQuery{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	capped, err := f.reviews.ListForProperty(ctx, prop.ID, ReviewQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, capped.Limit)
}

func TestEmptyReviewStats(t *testing.T) {
	f := newFixture(t)
	prop := f.listing(t, flatInput("Flat", "2bhk", 12000), true)

	page, err := f.reviews.ListForProperty(context.Background(), prop.ID, ReviewQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Reviews)
	assert.Zero(t, page.Stats.AverageRating)
	assert.Zero(t, page.Stats.TotalReviews)
	assert.Len(t, page.Stats.RatingDistribution, 5)
}

func TestUpdateAndDeleteReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prop := f.listing(t, flatInput("Flat", "2bhk", 12000), true)
	review, err := f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: prop.ID, Rating: 2, Comment: "Noisy"})
	require.NoError(t, err)
	other := f.user(t, "Other Tenant", models.RoleTenant)

	_, err = f.reviews.Update(ctx, other, review.ID, intPtr(5), nil)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	_, err = f.reviews.Update(ctx, f.admin, review.ID, intPtr(5), nil)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	_, err = f.reviews.Update(ctx, f.tenant, review.ID, intPtr(9), nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	updated, err := f.reviews.Update(ctx, f.tenant, review.ID, intPtr(3), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rating)
	assert.Equal(t, "Noisy", updated.Comment, "comment kept when omitted")

	updated, err = f.reviews.Update(ctx, f.tenant, review.ID, nil, strPtr(""))
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rating)
	assert.Empty(t, updated.Comment)

	assert.True(t, apperr.Is(f.reviews.Delete(ctx, other, review.ID), apperr.KindAuthorization))
	require.NoError(t, f.reviews.Delete(ctx, f.admin, review.ID))
	assert.True(t, apperr.Is(f.reviews.Delete(ctx, f.tenant, review.ID), apperr.KindNotFound))

	_, err = f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: prop.ID, Rating: 4})
	assert.NoError(t, err, "deleting frees the tenant's review slot")
}

func TestMarkHelpful(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prop := f.listing(t, flatInput("Flat", "2bhk", 12000), true)
	review, err := f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: prop.ID, Rating: 4})
	require.NoError(t, err)

	n, err := f.reviews.MarkHelpful(ctx, f.owner, review.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.reviews.MarkHelpful(ctx, f.owner, review.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.reviews.MarkHelpful(ctx, f.owner, 9999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.reviews.MarkHelpful(ctx, nil, review.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	sorted, err := f.reviews.ListForProperty(ctx, prop.ID, ReviewQuery{Sort: "-helpful"})
	require.NoError(t, err)
	assert.Equal(t, 2, sorted.Reviews[0].Helpful)
}

func TestListReviewsForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.listing(t, flatInput("A", "2bhk", 12000), true)
	b := f.listing(t, flatInput("B", "2bhk", 12000), true)

	_, err := f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: a.ID, Rating: 4})
	require.NoError(t, err)
	_, err = f.reviews.Add(ctx, f.tenant, ReviewInput{PropertyID: b.ID, Rating: 2})
	require.NoError(t, err)

	reviews, err := f.reviews.ListForUser(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, b.ID, reviews[0].PropertyID)
	require.NotNil(t, reviews[0].Property)
	assert.Equal(t, "B", reviews[0].Property.Title)

	none, err := f.reviews.ListForUser(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}
