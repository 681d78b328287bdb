package models

// User is an authenticated account: an administrator managing the catalog or a
// purchaser looking at their own grants. Purchaser identity on grants is a
// snapshot taken at issuance time and does not follow later edits here.
type User struct {
	BaseModel

	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	FirstName string `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string `gorm:"type:varchar(100)" json:"last_name"`
	IsAdmin   bool   `gorm:"default:false" json:"is_admin"`
}
