package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/middleware"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/sidhant-sriv/smart-renter/response"
	"github.com/sidhant-sriv/smart-renter/services"
)

// ReviewRoutes sets up review routes. Listing a property's reviews is
// public.
func ReviewRoutes(api *gin.RouterGroup, reviews *services.ReviewService, auth middleware.TokenAuthenticator) {
	authed := middleware.AuthMiddleware(auth)

	group := api.Group("/reviews")
	{
		group.GET("/property/:id", GetPropertyReviews(reviews))
		group.POST("", authed, middleware.RequireRole(models.RoleTenant), AddReview(reviews))
		group.PUT("/:id", authed, UpdateReview(reviews))
		group.DELETE("/:id", authed, DeleteReview(reviews))
		group.POST("/:id/helpful", authed, MarkReviewHelpful(reviews))
	}
}

func AddReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PropertyID uint   `json:"propertyId"`
			Rating     int    `json:"rating"`
			Comment    string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, asValidation(err))
			return
		}
		review, err := reviews.Add(c.Request.Context(), middleware.GetPrincipal(c), services.ReviewInput{
			PropertyID: req.PropertyID,
			Rating:     req.Rating,
			Comment:    req.Comment,
		})
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, "Review added", review)
	}
}

func UpdateReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Review not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		var req struct {
			Rating  *int    `json:"rating"`
			Comment *string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, asValidation(err))
			return
		}
		review, err := reviews.Update(c.Request.Context(), middleware.GetPrincipal(c), id, req.Rating, req.Comment)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Review updated", review)
	}
}

func DeleteReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Review not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		if err := reviews.Delete(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Review deleted", nil)
	}
}

func MarkReviewHelpful(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Review not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		helpful, err := reviews.MarkHelpful(c.Request.Context(), middleware.GetPrincipal(c), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"helpful": helpful})
	}
}

// GetPropertyReviews returns one page of reviews and statistics over all
// of them.
func GetPropertyReviews(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Property not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		q := services.ReviewQuery{Sort: c.Query("sort")}
		for key, dst := range map[string]*int{"page": &q.Page, "limit": &q.Limit} {
			n, err := queryInt(c, key)
			if err != nil {
				response.Error(c, err)
				return
			}
			if n != nil {
				*dst = *n
			}
		}

		page, err := reviews.ListForProperty(c.Request.Context(), id, q)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Page(c, page, page.Page, page.Limit, page.Total)
	}
}
