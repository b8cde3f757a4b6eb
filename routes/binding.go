package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/sidhant-sriv/smart-renter/services"
)

// Multipart forms carry every value as text, so listing fields accept
// both their JSON type and a string form.

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

type flexBool struct{ v *bool }

func (f *flexBool) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		f.v = &b
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a boolean")
	}
	return f.set(s)
}

func (f *flexBool) set(s string) error {
	b := strings.EqualFold(strings.TrimSpace(s), "true")
	f.v = &b
	return nil
}

type flexFloat struct{ v *float64 }

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.v = &n
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a number")
	}
	return f.set(s)
}

func (f *flexFloat) set(s string) error {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", s)
	}
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return fmt.Errorf("expected a finite number, got %q", s)
	}
	f.v = &n
	return nil
}

type flexInt struct{ v *int }

func (f *flexInt) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		f.v = &n
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected an integer")
	}
	return f.set(s)
}

func (f *flexInt) set(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("expected an integer, got %q", s)
	}
	f.v = &n
	return nil
}

// flexList accepts an array of strings or a single comma separated string.
type flexList struct{ v *[]string }

func (f *flexList) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		f.v = &list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a list of strings")
	}
	return f.set(s)
}

func (f *flexList) set(s string) error {
	list := []string{s}
	f.v = &list
	return nil
}

type propertyRequest struct {
	Title              *string          `json:"title"`
	Description        *string          `json:"description"`
	Address            *string          `json:"address"`
	Location           *models.Location `json:"location"`
	Price              flexFloat        `json:"price"`
	PropertyType       *string          `json:"propertyType"`
	Bedrooms           flexInt          `json:"bedrooms"`
	Bathrooms          flexInt          `json:"bathrooms"`
	Area               flexFloat        `json:"area"`
	Furnished          flexBool         `json:"furnished"`
	PetsAllowed        flexBool         `json:"petsAllowed"`
	Parking            flexBool         `json:"parking"`
	Amenities          flexList         `json:"amenities"`
	OwnerContactNumber *string          `json:"ownerContactNumber"`
	Available          flexBool         `json:"available"`
}

func (r *propertyRequest) input() services.PropertyInput {
	return services.PropertyInput{
		Title:              r.Title,
		Description:        r.Description,
		Address:            r.Address,
		Location:           r.Location,
		Price:              r.Price.v,
		PropertyType:       r.PropertyType,
		Bedrooms:           r.Bedrooms.v,
		Bathrooms:          r.Bathrooms.v,
		Area:               r.Area.v,
		Furnished:          r.Furnished.v,
		PetsAllowed:        r.PetsAllowed.v,
		Parking:            r.Parking.v,
		Amenities:          r.Amenities.v,
		OwnerContactNumber: r.OwnerContactNumber,
		Available:          r.Available.v,
	}
}

// bindProperty reads listing fields from a JSON body or from the text
// fields of a multipart form.
func bindProperty(c *gin.Context) (services.PropertyInput, error) {
	var req propertyRequest
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		if err := req.fromForm(c); err != nil {
			return services.PropertyInput{}, err
		}
		return req.input(), nil
	}

	body, err := c.GetRawData()
	if err != nil {
		return services.PropertyInput{}, apperr.Validation("Invalid request body")
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return services.PropertyInput{}, apperr.Validationf("Invalid request body: %v", err)
		}
	}
	return req.input(), nil
}

func (r *propertyRequest) fromForm(c *gin.Context) error {
	text := func(key string) *string {
		if v, ok := c.GetPostForm(key); ok {
			return &v
		}
		return nil
	}
	r.Title = text("title")
	r.Description = text("description")
	r.Address = text("address")
	r.PropertyType = text("propertyType")
	r.OwnerContactNumber = text("ownerContactNumber")

	setters := map[string]interface{ set(string) error }{
		"price":       &r.Price,
		"bedrooms":    &r.Bedrooms,
		"bathrooms":   &r.Bathrooms,
		"area":        &r.Area,
		"furnished":   &r.Furnished,
		"petsAllowed": &r.PetsAllowed,
		"parking":     &r.Parking,
		"available":   &r.Available,
	}
	for key, field := range setters {
		v, ok := c.GetPostForm(key)
		if !ok {
			continue
		}
		if err := field.set(v); err != nil {
			return apperr.Validationf("%s: %v", key, err)
		}
	}
	if list, ok := c.GetPostFormArray("amenities"); ok {
		r.Amenities.v = &list
	}

	lat, hasLat := c.GetPostForm("lat")
	lng, hasLng := c.GetPostForm("lng")
	if hasLat != hasLng {
		return apperr.Validation("lat and lng must be given together")
	}
	if hasLat {
		var la, ln flexFloat
		if la.set(lat) != nil || ln.set(lng) != nil {
			return apperr.Validation("lat and lng must be numbers")
		}
		r.Location = &models.Location{Lat: la.v, Lng: ln.v}
	}
	return nil
}

// Query parameters use the same text forms as multipart fields.

func queryFloat(c *gin.Context, key string) (*float64, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil, nil
	}
	var f flexFloat
	if err := f.set(v); err != nil {
		return nil, apperr.Validationf("%s: %v", key, err)
	}
	return f.v, nil
}

func queryInt(c *gin.Context, key string) (*int, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil, nil
	}
	var f flexInt
	if err := f.set(v); err != nil {
		return nil, apperr.Validationf("%s: %v", key, err)
	}
	return f.v, nil
}

func queryBool(c *gin.Context, key string) *bool {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil
	}
	var f flexBool
	f.set(v)
	return f.v
}

// idParam parses a numeric path parameter. Malformed ids cannot match any
// record and are reported as not found.
func idParam(c *gin.Context, key, notFound string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound(notFound)
	}
	return uint(id), nil
}
