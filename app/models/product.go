package models

import "gorm.io/gorm"

// Product belongs to a single shop. Price is the raw numeric amount;
// formatting and currency are a display concern.
type Product struct {
	gorm.Model
	ShopID      uint    `gorm:"not null;index" json:"shop_id"`
	Name        string  `gorm:"size:255;not null;index" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"not null;default:0" json:"price"`
	Stock       int     `gorm:"not null;default:0" json:"stock"`
	SKU         string  `gorm:"size:100;uniqueIndex" json:"sku"`
	ImageURL    string  `gorm:"size:512" json:"image_url"`
}
