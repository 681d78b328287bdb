package models

import "time"

// Grant binds one bearer token to one purchaser/order/product/page tuple.
// Rows are immutable after creation: no update, no delete, no expiry.
//
// The composite unique index on (order_id, product_id) makes issuance
// idempotent when the payment-completed and order-completed webhooks both
// fire for the same order.
type Grant struct {
	BaseModel

	Token     string `gorm:"uniqueIndex:idx_grants_token;not null" json:"token"`
	OrderID   string `gorm:"type:uuid;not null;uniqueIndex:idx_grants_order_product;index" json:"order_id"`
	ProductID string `gorm:"type:uuid;not null;uniqueIndex:idx_grants_order_product" json:"product_id"`
	PageID    string `gorm:"type:uuid;not null;index" json:"page_id"`

	// Purchaser snapshot at issuance time. Intentionally denormalized: the
	// displayed identity reflects the purchase, not later account edits.
	PurchaserUserID *string `gorm:"type:uuid;index" json:"purchaser_user_id,omitempty"`
	FirstName       string  `gorm:"type:varchar(100)" json:"first_name"`
	LastName        string  `gorm:"type:varchar(100)" json:"last_name"`
	Email           string  `gorm:"type:varchar(100);not null" json:"email"`

	// RevokedAt is a reserved extension point. No revocation workflow exists;
	// the gate does not consult it.
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// PurchaserName returns the display name from the issuance-time snapshot.
func (g *Grant) PurchaserName() string {
	switch {
	case g.FirstName != "" && g.LastName != "":
		return g.FirstName + " " + g.LastName
	case g.FirstName != "":
		return g.FirstName
	default:
		return g.LastName
	}
}
