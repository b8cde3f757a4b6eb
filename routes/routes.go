package routes

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/response"
	"github.com/sidhant-sriv/smart-renter/services"
)

// defaultPageSize applies when a search asks for a page without a limit.
const defaultPageSize = 20

// Deps are the services the API is served from.
type Deps struct {
	Auth       *services.AuthService
	Properties *services.PropertyService
	Bookings   *services.BookingService
	Reviews    *services.ReviewService
	Photos     *PhotoStore
}

// Register mounts every API route under /api and the uploaded photos
// under /uploads.
func Register(router *gin.Engine, d Deps) {
	api := router.Group("/api")
	api.GET("/health", Health())

	AuthRoutes(api, d.Auth)
	UserRoutes(api, d.Auth, d.Reviews)
	PropertyRoutes(api, d.Properties, d.Photos, d.Auth)
	BookingRoutes(api, d.Bookings, d.Auth)
	ReviewRoutes(api, d.Reviews, d.Auth)

	router.Static(PhotoURLPrefix, d.Photos.Dir)
}

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.OK(c, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}

// asValidation reports binding failures as validation errors, keeping
// errors that are already classified.
func asValidation(err error) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e
	}
	return apperr.Validationf("Invalid request body: %v", err)
}
