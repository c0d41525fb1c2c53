package models

import (
	"strings"
	"time"
)

type DiscountCode struct {
	ID         string     `json:"_id"`
	Code       string     `json:"code"`
	Percentage int        `json:"percentage"`
	Quantity   *int       `json:"quantity,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	MinOrder   *float64   `json:"minOrder,omitempty"`
	OwnerRef   *string    `json:"hotelOwner"`
	IsActive   bool       `json:"isActive"`
	UsedCount  int        `json:"usedCount"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// DiscountFields is the editable field set shared by create and update.
type DiscountFields struct {
	Code       string
	Percentage *int
	Quantity   *int
	StartDate  *time.Time
	EndDate    *time.Time
	MinOrder   *float64
}

// NormalizeCode is the canonical stored form of a discount code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// OwnedBy reports whether the record belongs to the given owner account.
// Global codes (no owner) belong to nobody.
func (d *DiscountCode) OwnedBy(ownerID string) bool {
	return d.OwnerRef != nil && *d.OwnerRef == ownerID
}
