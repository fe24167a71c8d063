package models

import "gorm.io/gorm"

// User roles. Shop owners manage one or more shops; couriers deliver orders.
const (
	RoleBuyer     = "buyer"
	RoleShopOwner = "shopowner"
	RoleCourier   = "courier"
	RoleAdmin     = "admin"
)

// User is the account model for every role.
type User struct {
	gorm.Model
	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // hashed, never serialised
	Role     string `gorm:"size:50;default:buyer;index" json:"role"`
}

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleBuyer, RoleShopOwner, RoleCourier, RoleAdmin:
		return true
	}
	return false
}
