// Package listeners bridges in-process order events onto the websocket hub.
// Registering the bridge is the only coupling between the order lifecycle and
// the notification channel.
package listeners

import (
	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/app/services"
	"github.com/feirahub/feira/pkg/event"
	"github.com/feirahub/feira/pkg/logger"
	"github.com/feirahub/feira/pkg/realtime"
	"github.com/feirahub/feira/pkg/ws"
)

// RegisterOrderEvents wires the order lifecycle topics to room emissions.
// Call once at startup, after the hub is running.
func RegisterOrderEvents(hub *ws.Hub) {
	event.Listen(services.TopicOrderCreated, func(payload interface{}) {
		order, ok := payload.(*models.Order)
		if !ok {
			logger.Error("listeners: unexpected payload for order.created")
			return
		}

		envelope := realtime.OrderEnvelope{Order: *order}
		hub.EmitToRoom(realtime.BuyerRoom(order.BuyerID), realtime.EventOrderCreated, envelope)
		hub.EmitToRoom(realtime.ShopRoom(order.ShopID), realtime.EventOrderCreated, envelope)
	})

	event.Listen(services.TopicOrderStatusUpdated, func(payload interface{}) {
		order, ok := payload.(*models.Order)
		if !ok {
			logger.Error("listeners: unexpected payload for order.status_updated")
			return
		}

		// Status updates go out flat; clients normalize either shape.
		update := realtime.StatusUpdate{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			Status:      order.Status,
			EstimatedAt: order.EstimatedAt,
		}
		emitToParticipants(hub, order, realtime.EventOrderStatusUpdated, update)
	})

	event.Listen(services.TopicOrderAssigned, func(payload interface{}) {
		order, ok := payload.(*models.Order)
		if !ok {
			logger.Error("listeners: unexpected payload for order.assigned")
			return
		}

		emitToParticipants(hub, order, realtime.EventOrderAssigned, realtime.OrderEnvelope{Order: *order})
	})
}

// emitToParticipants sends one event to every party of an order: its buyer,
// its shop, and its courier when one is assigned.
func emitToParticipants(hub *ws.Hub, order *models.Order, eventName string, payload interface{}) {
	hub.EmitToRoom(realtime.BuyerRoom(order.BuyerID), eventName, payload)
	hub.EmitToRoom(realtime.ShopRoom(order.ShopID), eventName, payload)
	if order.CourierID != nil {
		hub.EmitToRoom(realtime.CourierRoom(*order.CourierID), eventName, payload)
	}
}
