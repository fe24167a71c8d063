package models

import "gorm.io/gorm"

// Shop is a storefront owned by a shopowner user. One owner may run several
// shops, which is why owners join notification rooms per shop rather than
// per user.
type Shop struct {
	gorm.Model
	OwnerID     uint   `gorm:"not null;index" json:"owner_id"`
	Name        string `gorm:"size:255;not null;index" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Address     string `gorm:"size:255" json:"address"`
	Open        bool   `gorm:"default:true" json:"open"`
}
