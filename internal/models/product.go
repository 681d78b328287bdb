package models

// Product is a catalog entry mirrored from the commerce platform. A product
// flagged AccessControlled with a bound page produces one grant per purchase.
// The issuance path reads this mapping and never mutates it.
type Product struct {
	BaseModel

	SKU              string  `gorm:"uniqueIndex;not null" json:"sku"`
	Name             string  `gorm:"type:varchar(255);not null" json:"name"`
	AccessControlled bool    `gorm:"default:false;index" json:"access_controlled"`
	PageID           *string `gorm:"type:uuid;index" json:"page_id,omitempty"`
}
