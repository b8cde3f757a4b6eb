package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// ActiveBookingStatuses are the states that block a second booking by the
// same tenant for the same property.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingApproved}

type Booking struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	PropertyID    uint          `gorm:"not null;index" json:"propertyId"`
	Property      *Property     `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	TenantID      uint          `gorm:"not null;index" json:"tenantId"`
	Tenant        *User         `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	FromDate      time.Time     `gorm:"not null" json:"fromDate"`
	ToDate        time.Time     `gorm:"not null" json:"toDate"`
	Status        BookingStatus `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Message       string        `json:"message,omitempty"`
	OwnerResponse string        `json:"ownerResponse,omitempty"`
	CreatedAt     time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
