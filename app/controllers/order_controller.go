package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/app/resources"
	"github.com/feirahub/feira/app/services"
	"github.com/feirahub/feira/pkg/ctx"
	"github.com/feirahub/feira/pkg/event"
	"github.com/feirahub/feira/pkg/middleware"
	"github.com/feirahub/feira/pkg/realtime"
	"github.com/feirahub/feira/pkg/resource"
	"github.com/feirahub/feira/pkg/sse"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// Show returns one order. Only participants may see it.
func (oc *OrderController) Show(c *ctx.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	claims, _ := middleware.ClaimsFromCtx(c.R)
	order, err := oc.orders.Find(id, claims.UserID, claims.Role)
	if err != nil {
		oc.fail(c, err)
		return
	}
	c.Success(order)
}

// Mine lists the authenticated buyer's orders.
func (oc *OrderController) Mine(c *ctx.Context) {
	userID, _ := middleware.UserIDFromCtx(c.R)

	orders, err := oc.orders.ForBuyer(userID)
	if err != nil {
		c.Error(http.StatusInternalServerError, "Could not load orders")
		return
	}
	oc.respondList(c, orders)
}

// ForShop lists a shop's orders for its owner.
func (oc *OrderController) ForShop(c *ctx.Context) {
	shopID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	claims, _ := middleware.ClaimsFromCtx(c.R)
	orders, err := oc.orders.ForShop(shopID, claims.UserID, claims.Role)
	if err != nil {
		oc.fail(c, err)
		return
	}
	oc.respondList(c, orders)
}

// Deliveries lists the authenticated courier's assigned orders.
func (oc *OrderController) Deliveries(c *ctx.Context) {
	userID, _ := middleware.UserIDFromCtx(c.R)

	orders, err := oc.orders.ForCourier(userID)
	if err != nil {
		c.Error(http.StatusInternalServerError, "Could not load orders")
		return
	}
	oc.respondList(c, orders)
}

// respondList renders order collections as compact summaries; the full item
// rows come from the single-order endpoint.
func (oc *OrderController) respondList(c *ctx.Context, orders []models.Order) {
	resource.CollectionOf(&resources.OrderResource{}, orders).Respond(c.W)
}

type statusInput struct {
	Status      string     `json:"status" validate:"required,in=pending,accepted,preparing,out_for_delivery,delivered,cancelled"`
	EstimatedAt *time.Time `json:"estimated_delivery_time"`
}

// UpdateStatus moves an order along its lifecycle. The participants hear
// about it on the notification channel.
func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var in statusInput
	if !c.BindJSON(&in) {
		return
	}

	claims, _ := middleware.ClaimsFromCtx(c.R)
	order, err := oc.orders.UpdateStatus(id, claims.UserID, claims.Role, in.Status, in.EstimatedAt)
	if err != nil {
		oc.fail(c, err)
		return
	}
	c.Success(order)
}

type assignInput struct {
	CourierID uint `json:"courier_id" validate:"required"`
}

// Assign attaches a courier to an order.
func (oc *OrderController) Assign(c *ctx.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var in assignInput
	if !c.BindJSON(&in) {
		return
	}

	claims, _ := middleware.ClaimsFromCtx(c.R)
	order, err := oc.orders.AssignCourier(id, in.CourierID, claims.UserID, claims.Role)
	if err != nil {
		oc.fail(c, err)
		return
	}
	c.Success(order)
}

// Events streams live status updates for one order over Server-Sent Events.
// An alternative to the websocket channel for clients that only care about a
// single order, e.g. an order-tracking page.
func (oc *OrderController) Events(c *ctx.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	claims, _ := middleware.ClaimsFromCtx(c.R)
	if _, err := oc.orders.Find(id, claims.UserID, claims.Role); err != nil {
		oc.fail(c, err)
		return
	}

	stream := sse.New(c.W, c.R)
	if stream == nil {
		return
	}

	updates := make(chan *models.Order, 8)
	cancel := event.Subscribe(services.TopicOrderStatusUpdated, func(payload interface{}) {
		order, ok := payload.(*models.Order)
		if !ok || order.ID != id {
			return
		}
		select {
		case updates <- order:
		default:
			// Slow client. Drop the frame rather than block the dispatcher.
		}
	})
	defer cancel()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.R.Context().Done():
			return
		case order := <-updates:
			stream.Send(realtime.EventOrderStatusUpdated, realtime.StatusUpdate{ //nolint:errcheck
				OrderID:     order.ID,
				OrderNumber: order.Number,
				Status:      order.Status,
				EstimatedAt: order.EstimatedAt,
			})
		case <-heartbeat.C:
			stream.Comment("keepalive")
		}
		if stream.IsClosed() {
			return
		}
	}
}

// fail maps service errors onto HTTP statuses.
func (oc *OrderController) fail(c *ctx.Context, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		c.Forbidden()
	case errors.Is(err, services.ErrInvalidTransition):
		c.Error(http.StatusUnprocessableEntity, "Invalid status transition")
	case errors.Is(err, services.ErrNotCourier):
		c.Error(http.StatusUnprocessableEntity, "Assignee is not a courier")
	case errors.Is(err, services.ErrShopClosed):
		c.Error(http.StatusConflict, "Shop is closed")
	case errors.Is(err, services.ErrOrderClosed):
		c.Error(http.StatusConflict, "Order is already closed")
	default:
		c.NotFound("Order not found")
	}
}
