package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// MaxPhotos caps the photo references a listing can hold.
const MaxPhotos = 5

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Location holds geocoded coordinates. Nil coordinates mean the address
// could not be resolved; such a location serializes as JSON null.
type Location struct {
	Lat *float64 `gorm:"column:lat" json:"lat"`
	Lng *float64 `gorm:"column:lng" json:"lng"`
}

func NewLocation(lat, lng float64) Location {
	return Location{Lat: &lat, Lng: &lng}
}

func (l Location) Known() bool {
	return l.Lat != nil && l.Lng != nil
}

func (l Location) MarshalJSON() ([]byte, error) {
	if !l.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}{*l.Lat, *l.Lng})
}

func (l *Location) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Location{}
		return nil
	}
	var raw struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Location{Lat: raw.Lat, Lng: raw.Lng}
	return nil
}

type Property struct {
	ID                 uint                        `gorm:"primaryKey" json:"id"`
	OwnerID            uint                        `gorm:"not null;index" json:"ownerId"`
	Owner              *User                       `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Title              string                      `gorm:"not null" json:"title"`
	Description        string                      `json:"description"`
	Address            string                      `gorm:"not null" json:"address"`
	Location           Location                    `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Price              float64                     `gorm:"not null;index" json:"price"`
	PropertyType       string                      `gorm:"type:varchar(32);not null;index" json:"propertyType"`
	Bedrooms           int                         `gorm:"not null" json:"bedrooms"`
	Bathrooms          int                         `gorm:"not null" json:"bathrooms"`
	Area               float64                     `gorm:"not null" json:"area"`
	Furnished          bool                        `gorm:"not null" json:"furnished"`
	PetsAllowed        bool                        `gorm:"not null" json:"petsAllowed"`
	Parking            bool                        `gorm:"not null" json:"parking"`
	Amenities          datatypes.JSONSlice[string] `json:"amenities"`
	OwnerContactNumber string                      `gorm:"not null" json:"ownerContactNumber"`
	Photos             datatypes.JSONSlice[string] `json:"photos"`
	Available          bool                        `gorm:"not null;index" json:"available"`
	ApprovalStatus     ApprovalStatus              `gorm:"type:varchar(16);not null;default:pending;index" json:"approvalStatus"`
	CreatedAt          time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time                   `json:"updatedAt"`
}

// Public reports whether the listing may be shown to anonymous callers.
func (p *Property) Public() bool {
	return p.Available && p.ApprovalStatus == ApprovalApproved
}
