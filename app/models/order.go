package models

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses in their normal lifecycle order.
const (
	StatusPending        = "pending"
	StatusAccepted       = "accepted"
	StatusPreparing      = "preparing"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

// statusTransitions maps each status to the statuses it may move to.
// Cancellation is allowed at any point before the order leaves the shop.
var statusTransitions = map[string][]string{
	StatusPending:        {StatusAccepted, StatusCancelled},
	StatusAccepted:       {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// ValidTransition reports whether an order may move from one status to
// another.
func ValidTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// Order is a single-shop purchase. A multi-shop cart produces one Order per
// shop at checkout.
type Order struct {
	gorm.Model
	Number          string      `gorm:"size:32;uniqueIndex" json:"number"`
	BuyerID         uint        `gorm:"not null;index" json:"buyer_id"`
	ShopID          uint        `gorm:"not null;index" json:"shop_id"`
	CourierID       *uint       `gorm:"index" json:"courier_id,omitempty"`
	Status          string      `gorm:"size:50;default:pending;index" json:"status"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	DeliveryAddress string      `gorm:"size:512" json:"delivery_address"`
	PaymentMethod   string      `gorm:"size:50" json:"payment_method"`
	Notes           string      `gorm:"type:text" json:"notes,omitempty"`
	EstimatedAt     *time.Time  `json:"estimated_delivery_time,omitempty"`
}

// OrderItem is one line of an order. UnitPrice is captured at purchase time
// so later catalogue edits do not rewrite history.
type OrderItem struct {
	gorm.Model
	OrderID   uint    `gorm:"not null;index" json:"order_id"`
	ProductID uint    `gorm:"not null;index" json:"product_id"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"`
}
