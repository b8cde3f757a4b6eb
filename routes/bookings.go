package routes

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/middleware"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/sidhant-sriv/smart-renter/response"
	"github.com/sidhant-sriv/smart-renter/services"
)

// BookingRoutes sets up the reservation workflow routes. Every route needs
// an authenticated caller.
func BookingRoutes(api *gin.RouterGroup, bookings *services.BookingService, auth middleware.TokenAuthenticator) {
	group := api.Group("/bookings")
	group.Use(middleware.AuthMiddleware(auth))
	{
		group.POST("", middleware.RequireRole(models.RoleTenant), CreateBooking(bookings))
		group.GET("", GetBookings(bookings))
		group.GET("/:id", GetBooking(bookings))
		group.PUT("/:id/status", UpdateBookingStatus(bookings))
		group.PUT("/:id/cancel", CancelBooking(bookings))
	}
}

// bookingDate accepts a calendar date or an RFC 3339 timestamp.
type bookingDate struct{ time.Time }

func (d *bookingDate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return apperr.Validationf("Invalid date %q", s)
}

func CreateBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PropertyID uint        `json:"propertyId"`
			FromDate   bookingDate `json:"fromDate"`
			ToDate     bookingDate `json:"toDate"`
			Message    string      `json:"message"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, asValidation(err))
			return
		}

		booking, err := bookings.Create(c.Request.Context(), middleware.GetPrincipal(c), services.BookingInput{
			PropertyID: req.PropertyID,
			FromDate:   req.FromDate.Time,
			ToDate:     req.ToDate.Time,
			Message:    req.Message,
		})
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, "Booking request sent", booking)
	}
}

// GetBookings lists a tenant's bookings, or the bookings on an owner's
// properties.
func GetBookings(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.ListForUser(c.Request.Context(), middleware.GetPrincipal(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, list)
	}
}

func GetBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Booking not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		booking, err := bookings.Get(c.Request.Context(), middleware.GetPrincipal(c), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, booking)
	}
}

func UpdateBookingStatus(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Booking not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		var req struct {
			Status        models.BookingStatus `json:"status"`
			OwnerResponse string               `json:"ownerResponse"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, asValidation(err))
			return
		}
		booking, err := bookings.UpdateStatus(c.Request.Context(), middleware.GetPrincipal(c), id, req.Status, req.OwnerResponse)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Booking "+string(booking.Status), booking)
	}
}

func CancelBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Booking not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		booking, err := bookings.Cancel(c.Request.Context(), middleware.GetPrincipal(c), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Booking cancelled", booking)
	}
}
