package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PropertyID uint      `gorm:"not null;uniqueIndex:idx_reviews_tenant_property,priority:2;index:idx_reviews_property_created,priority:1" json:"propertyId"`
	Property   *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	TenantID   uint      `gorm:"not null;uniqueIndex:idx_reviews_tenant_property,priority:1" json:"tenantId"`
	Tenant     *User     `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Rating     int       `gorm:"not null" json:"rating"`
	Comment    string    `json:"comment"`
	Verified   bool      `gorm:"not null;default:false" json:"verified"`
	Helpful    int       `gorm:"not null;default:0" json:"helpful"`
	CreatedAt  time.Time `gorm:"index:idx_reviews_property_created,priority:2" json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
