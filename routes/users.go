package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/middleware"
	"github.com/sidhant-sriv/smart-renter/response"
	"github.com/sidhant-sriv/smart-renter/services"
)

// UserRoutes sets up routes about the authenticated user.
func UserRoutes(api *gin.RouterGroup, auth *services.AuthService, reviews *services.ReviewService) {
	group := api.Group("/users")
	group.Use(middleware.AuthMiddleware(auth))
	{
		group.GET("/me", Me(auth))
		group.GET("/me/reviews", GetMyReviews(reviews))
	}
}

// GetMyReviews lists the reviews written by the caller, newest first.
func GetMyReviews(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := reviews.ListForUser(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, list)
	}
}
