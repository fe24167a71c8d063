package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/app/repositories"
	"github.com/feirahub/feira/internal/cart"
	"github.com/feirahub/feira/pkg/collection"
	"github.com/feirahub/feira/pkg/event"
)

// In-process event topics fired by the order lifecycle. The realtime bridge
// listens on these and fans the payload out to websocket rooms.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusUpdated = "order.status_updated"
	TopicOrderAssigned      = "order.assigned"
)

var (
	ErrForbidden         = errors.New("order: not allowed")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	ErrShopClosed        = errors.New("order: shop is closed")
	ErrNotCourier        = errors.New("order: assignee is not a courier")
	ErrEmptyOrder        = errors.New("order: no items")
	ErrOrderClosed       = errors.New("order: already closed")
)

// numberMu serializes order-number allocation with the insert that claims
// it. Checkout places a multi-shop cart's orders concurrently, and without
// this two goroutines can read the same count and collide on the number
// column's unique index.
var numberMu sync.Mutex

// OrderService owns the order lifecycle: placement, status transitions and
// courier assignment. Every mutation fires an in-process event.
type OrderService struct {
	orders *repositories.OrderRepository
	shops  *repositories.ShopRepository
	users  *repositories.UserRepository
}

func NewOrderService(
	orders *repositories.OrderRepository,
	shops *repositories.ShopRepository,
	users *repositories.UserRepository,
) *OrderService {
	return &OrderService{orders: orders, shops: shops, users: users}
}

// PlaceOrder creates one order for a single shop from the given cart lines.
// Unit prices are captured from the lines so later catalogue edits do not
// rewrite the order.
func (s *OrderService) PlaceOrder(buyerID, shopID uint, lines []cart.Line, address, payment, notes string) (models.Order, error) {
	if len(lines) == 0 {
		return models.Order{}, ErrEmptyOrder
	}

	shop, err := s.shops.FindByID(shopID)
	if err != nil {
		return models.Order{}, err
	}
	if !shop.Open {
		return models.Order{}, ErrShopClosed
	}

	items := collection.Map(lines, func(l cart.Line) models.OrderItem {
		return models.OrderItem{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		}
	})
	total := collection.Sum(lines, func(l cart.Line) float64 { return l.Subtotal() })

	order := models.Order{
		BuyerID:         buyerID,
		ShopID:          shopID,
		Status:          models.StatusPending,
		Items:           items,
		Total:           total,
		DeliveryAddress: address,
		PaymentMethod:   payment,
		Notes:           notes,
	}

	numberMu.Lock()
	order.Number = s.nextNumber()
	err = s.orders.Create(&order)
	numberMu.Unlock()
	if err != nil {
		return models.Order{}, err
	}

	event.Fire(TopicOrderCreated, &order)
	return order, nil
}

// UpdateStatus moves an order to newStatus after checking the transition is
// valid and the actor may perform it. estimatedAt, when non-nil, updates the
// delivery estimate alongside the status.
func (s *OrderService) UpdateStatus(orderID uint, actorID uint, actorRole, newStatus string, estimatedAt *time.Time) (models.Order, error) {
	if !models.ValidStatus(newStatus) {
		return models.Order{}, ErrInvalidTransition
	}

	order, err := s.orders.FindByID(orderID)
	if err != nil {
		return models.Order{}, err
	}

	if !s.mayTransition(&order, actorID, actorRole, newStatus) {
		return models.Order{}, ErrForbidden
	}
	if !models.ValidTransition(order.Status, newStatus) {
		return models.Order{}, ErrInvalidTransition
	}

	order.Status = newStatus
	if estimatedAt != nil {
		order.EstimatedAt = estimatedAt
	}
	if err := s.orders.Save(&order); err != nil {
		return models.Order{}, err
	}

	event.Fire(TopicOrderStatusUpdated, &order)
	return order, nil
}

// mayTransition encodes who can drive which part of the lifecycle. Buyers
// only cancel their own orders, shop owners run the kitchen side, couriers
// close out their own deliveries, admins can do anything.
func (s *OrderService) mayTransition(order *models.Order, actorID uint, actorRole, newStatus string) bool {
	switch actorRole {
	case models.RoleAdmin:
		return true
	case models.RoleBuyer:
		return order.BuyerID == actorID && newStatus == models.StatusCancelled
	case models.RoleShopOwner:
		if !s.shops.OwnedBy(actorID, order.ShopID) {
			return false
		}
		return newStatus != models.StatusDelivered
	case models.RoleCourier:
		return order.CourierID != nil && *order.CourierID == actorID &&
			newStatus == models.StatusDelivered
	}
	return false
}

// AssignCourier attaches a courier to an order. Only the shop owner or an
// admin may assign, the order must still be in flight, and the assignee must
// actually be a courier.
func (s *OrderService) AssignCourier(orderID, courierID, actorID uint, actorRole string) (models.Order, error) {
	order, err := s.orders.FindByID(orderID)
	if err != nil {
		return models.Order{}, err
	}

	if actorRole != models.RoleAdmin {
		if actorRole != models.RoleShopOwner || !s.shops.OwnedBy(actorID, order.ShopID) {
			return models.Order{}, ErrForbidden
		}
	}
	if order.Status == models.StatusDelivered || order.Status == models.StatusCancelled {
		return models.Order{}, ErrOrderClosed
	}

	courier, err := s.users.FindByID(courierID)
	if err != nil {
		return models.Order{}, err
	}
	if courier.Role != models.RoleCourier {
		return models.Order{}, ErrNotCourier
	}

	order.CourierID = &courier.ID
	if err := s.orders.Save(&order); err != nil {
		return models.Order{}, err
	}

	event.Fire(TopicOrderAssigned, &order)
	return order, nil
}

// Find returns an order if the actor is a participant: its buyer, the owner
// of its shop, its courier, or an admin.
func (s *OrderService) Find(orderID, actorID uint, actorRole string) (models.Order, error) {
	order, err := s.orders.FindByID(orderID)
	if err != nil {
		return models.Order{}, err
	}

	switch actorRole {
	case models.RoleAdmin:
		return order, nil
	case models.RoleBuyer:
		if order.BuyerID == actorID {
			return order, nil
		}
	case models.RoleShopOwner:
		if s.shops.OwnedBy(actorID, order.ShopID) {
			return order, nil
		}
	case models.RoleCourier:
		if order.CourierID != nil && *order.CourierID == actorID {
			return order, nil
		}
	}
	return models.Order{}, ErrForbidden
}

// ForBuyer lists a buyer's orders.
func (s *OrderService) ForBuyer(buyerID uint) ([]models.Order, error) {
	return s.orders.ByBuyer(buyerID)
}

// ForShop lists a shop's orders after verifying the actor owns the shop.
func (s *OrderService) ForShop(shopID, actorID uint, actorRole string) ([]models.Order, error) {
	if actorRole != models.RoleAdmin && !s.shops.OwnedBy(actorID, shopID) {
		return nil, ErrForbidden
	}
	return s.orders.ByShop(shopID)
}

// ForCourier lists a courier's assigned orders.
func (s *OrderService) ForCourier(courierID uint) ([]models.Order, error) {
	return s.orders.ByCourier(courierID)
}

// nextNumber generates a human-readable order number. Callers must hold
// numberMu across this and the insert; the column's unique index backstops
// anything that slips through (a second process, a manual insert).
func (s *OrderService) nextNumber() string {
	n, err := s.orders.Count()
	if err != nil {
		n = 0
	}
	return fmt.Sprintf("FEI-%s-%05d", time.Now().Format("20060102"), n+1)
}
