package models

import "gorm.io/datatypes"

// Order records a completed purchase reported by the commerce platform,
// including the purchaser snapshot used on grants. UserID is nil for guest
// checkouts.
type Order struct {
	BaseModel

	Ref       string  `gorm:"uniqueIndex;not null" json:"ref"`
	UserID    *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	FirstName string  `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string  `gorm:"type:varchar(100)" json:"last_name"`
	Email     string  `gorm:"type:varchar(100);not null" json:"email"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is a single purchased line item.
type OrderItem struct {
	BaseModel

	OrderID   string         `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID string         `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity  int            `gorm:"default:1" json:"quantity"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
}
