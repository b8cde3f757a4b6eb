package routes

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/middleware"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/sidhant-sriv/smart-renter/response"
	"github.com/sidhant-sriv/smart-renter/services"
)

const defaultNearbyRadiusKm = 10

// PropertyRoutes sets up the listing catalog, search and approval routes.
func PropertyRoutes(api *gin.RouterGroup, props *services.PropertyService, photos *PhotoStore, auth middleware.TokenAuthenticator) {
	authed := middleware.AuthMiddleware(auth)

	properties := api.Group("/properties")
	{
		properties.GET("", SearchProperties(props))
		properties.GET("/search", SearchProperties(props))
		properties.GET("/nearby", NearbyProperties(props))
		properties.GET("/owner/my-properties", authed, middleware.RequireRole(models.RoleOwner, models.RoleAdmin), GetOwnerProperties(props))
		properties.GET("/pending", authed, middleware.RequireRole(models.RoleAdmin), GetPendingProperties(props))
		properties.GET("/:id", middleware.OptionalAuth(auth), GetProperty(props))

		properties.POST("", authed, CreateProperty(props, photos))
		properties.PUT("/:id", authed, UpdateProperty(props, photos))
		properties.DELETE("/:id", authed, DeleteProperty(props))
		properties.PUT("/:id/approve", authed, middleware.RequireRole(models.RoleAdmin), SetApprovalStatus(props))
	}
}

// CreateProperty handles a new listing. Photos come from the multipart
// "photos" field.
func CreateProperty(props *services.PropertyService, photos *PhotoStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Reject before touching the disk.
		if err := services.RequireRole(middleware.GetPrincipal(c), models.RoleOwner); err != nil {
			response.Error(c, err)
			return
		}
		in, err := bindProperty(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		refs, err := photos.Save(c)
		if err != nil {
			response.Error(c, err)
			return
		}

		prop, err := props.Create(c.Request.Context(), middleware.GetPrincipal(c), in, refs)
		if err != nil {
			photos.Remove(refs)
			response.Error(c, err)
			return
		}
		response.Created(c, "Property created and awaiting approval", prop)
	}
}

// UpdateProperty merges the provided fields into the listing and appends
// uploaded photos.
func UpdateProperty(props *services.PropertyService, photos *PhotoStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Property not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		// Reject before touching the disk.
		if err := props.AuthorizeUpdate(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
			response.Error(c, err)
			return
		}
		in, err := bindProperty(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		refs, err := photos.Save(c)
		if err != nil {
			response.Error(c, err)
			return
		}

		prop, err := props.Update(c.Request.Context(), middleware.GetPrincipal(c), id, in, refs)
		if err != nil {
			photos.Remove(refs)
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Property updated", prop)
	}
}

func DeleteProperty(props *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Property not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		if err := props.Delete(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Property deleted", nil)
	}
}

// SearchProperties lists public listings. Without page and limit the whole
// matching set is returned.
func SearchProperties(props *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := searchFilter(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		found, total, err := props.Search(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		page := filter.Page
		if page < 1 {
			page = 1
		}
		response.Page(c, found, page, filter.Limit, total)
	}
}

func searchFilter(c *gin.Context) (services.SearchFilter, error) {
	f := services.SearchFilter{
		Location:     strings.TrimSpace(c.Query("location")),
		PropertyType: strings.TrimSpace(c.Query("propertyType")),
		Furnished:    queryBool(c, "furnished"),
		PetsAllowed:  queryBool(c, "petsAllowed"),
		Parking:      queryBool(c, "parking"),
	}
	var err error
	if f.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		return f, err
	}
	if f.Bedrooms, err = queryInt(c, "bedrooms"); err != nil {
		return f, err
	}

	for key, dst := range map[string]*int{"page": &f.Page, "limit": &f.Limit} {
		n, err := queryInt(c, key)
		if err != nil {
			return f, err
		}
		if n != nil {
			if *n < 0 {
				return f, apperr.Validationf("%s must not be negative", key)
			}
			*dst = *n
		}
	}
	if f.Page > 0 && f.Limit == 0 {
		f.Limit = defaultPageSize
	}

	if v := c.Query("ownerId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return f, apperr.Validation("ownerId must be a number")
		}
		f.OwnerID = uint(id)
	}
	return f, nil
}

// NearbyProperties returns public listings around lat/lng.
func NearbyProperties(props *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, err := queryFloat(c, "lat")
		if err != nil {
			response.Error(c, err)
			return
		}
		lng, err := queryFloat(c, "lng")
		if err != nil {
			response.Error(c, err)
			return
		}
		if lat == nil || lng == nil {
			response.Error(c, apperr.Validation("lat and lng are required"))
			return
		}
		radius, err := queryFloat(c, "radiusKm")
		if err != nil {
			response.Error(c, err)
			return
		}
		r := float64(defaultNearbyRadiusKm)
		if radius != nil {
			r = *radius
		}

		found, err := props.Nearby(c.Request.Context(), *lat, *lng, r)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, found)
	}
}

// GetProperty returns a listing; unapproved listings are only shown to
// their owner and admins.
func GetProperty(props *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Property not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		prop, err := props.Get(c.Request.Context(), middleware.GetPrincipal(c), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, prop)
	}
}

func GetOwnerProperties(props *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := props.ListByOwner(c.Request.Context(), middleware.GetPrincipal(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, found)
	}
}

func GetPendingProperties(props *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := props.ListPending(c.Request.Context(), middleware.GetPrincipal(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, found)
	}
}

func SetApprovalStatus(props *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id", "Property not found")
		if err != nil {
			response.Error(c, err)
			return
		}
		var req struct {
			Status models.ApprovalStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperr.Validation("Invalid status"))
			return
		}
		prop, err := props.SetApprovalStatus(c.Request.Context(), middleware.GetPrincipal(c), id, req.Status)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Property "+string(prop.ApprovalStatus), prop)
	}
}
