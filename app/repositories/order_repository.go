package repositories

import (
	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/orm"
)

// OrderRepository handles database operations for Order and its items.
type OrderRepository struct{}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

// Create persists a new order together with its items.
func (r *OrderRepository) Create(order *models.Order) error {
	return orm.DB().Create(order)
}

// FindByID loads an order with its items.
func (r *OrderRepository) FindByID(id uint) (models.Order, error) {
	var order models.Order
	err := orm.DB().Model(&models.Order{}).Preload("Items").Where("id = ?", id).First(&order)
	return order, err
}

// Save persists changes to an existing order.
func (r *OrderRepository) Save(order *models.Order) error {
	return orm.DB().Save(order)
}

// ByBuyer returns a buyer's orders, newest first.
func (r *OrderRepository) ByBuyer(buyerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := orm.DB().Model(&models.Order{}).Preload("Items").
		Where("buyer_id = ?", buyerID).Order("created_at DESC").Get(&orders)
	return orders, err
}

// ByShop returns a shop's orders, newest first.
func (r *OrderRepository) ByShop(shopID uint) ([]models.Order, error) {
	var orders []models.Order
	err := orm.DB().Model(&models.Order{}).Preload("Items").
		Where("shop_id = ?", shopID).Order("created_at DESC").Get(&orders)
	return orders, err
}

// ByCourier returns a courier's assigned orders, newest first.
func (r *OrderRepository) ByCourier(courierID uint) ([]models.Order, error) {
	var orders []models.Order
	err := orm.DB().Model(&models.Order{}).Preload("Items").
		Where("courier_id = ?", courierID).Order("created_at DESC").Get(&orders)
	return orders, err
}

// Count returns the total number of orders ever created, used for order
// number generation.
func (r *OrderRepository) Count() (int64, error) {
	var n int64
	err := orm.DB().Model(&models.Order{}).Count(&n)
	return n, err
}
