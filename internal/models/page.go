package models

import "gorm.io/datatypes"

// Page is a protected content resource. Body may contain personalization
// placeholders ({{first_name}}, {{last_name}}, {{full_name}}) expanded at
// render time from the validated grant's purchaser snapshot.
type Page struct {
	BaseModel

	Slug       string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`
	Body       string         `gorm:"type:text" json:"body"`
	Attributes datatypes.JSON `json:"attributes,omitempty"`
}
