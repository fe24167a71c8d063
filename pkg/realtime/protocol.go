// Package realtime implements the order-notification protocol spoken between
// the Feira backend and its clients: the named-event frame format, the room
// naming scheme, and Channel, the client-side subscription service.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/feirahub/feira/app/models"
)

// Server→client event names.
const (
	EventOrderCreated       = "order-created"
	EventOrderStatusUpdated = "order-status-updated"
	EventOrderAssigned      = "order-assigned"
)

// Client→server event names.
const (
	EventJoinRoom = "join-room"
)

// Room role tags carried in join-room payloads.
const (
	RoomRoleBuyer   = "buyer"
	RoomRoleCourier = "courier"
	RoomRoleShop    = "shop"
)

// Frame is the envelope for every message in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals payload into a named-event frame.
func EncodeFrame(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("realtime: encode %s: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// JoinRoomRequest is the payload of a join-room frame.
type JoinRoomRequest struct {
	Role string `json:"role"`
	ID   string `json:"id"`
}

// Room returns the canonical room name for the request.
func (j JoinRoomRequest) Room() string {
	return j.Role + ":" + j.ID
}

// Room name helpers. Buyers and couriers have one room each; shops have one
// room per shop so an owner can watch several.
func BuyerRoom(userID uint) string   { return fmt.Sprintf("%s:%d", RoomRoleBuyer, userID) }
func CourierRoom(userID uint) string { return fmt.Sprintf("%s:%d", RoomRoleCourier, userID) }
func ShopRoom(shopID uint) string    { return fmt.Sprintf("%s:%d", RoomRoleShop, shopID) }

// OrderEnvelope wraps a full order, the payload shape of order-created and
// order-assigned frames.
type OrderEnvelope struct {
	Order models.Order `json:"order"`
}

// StatusUpdate is the canonical record handed to subscribers for
// order-status-updated frames. Order is non-nil only when the server sent the
// full-order envelope shape.
type StatusUpdate struct {
	OrderID     uint          `json:"order_id"`
	OrderNumber string        `json:"order_number,omitempty"`
	Status      string        `json:"status"`
	EstimatedAt *time.Time    `json:"estimated_delivery_time,omitempty"`
	Order       *models.Order `json:"order,omitempty"`
}

// NormalizeStatusUpdate accepts either payload shape the backend emits for
// order-status-updated — an {order: ...} envelope or a flat record — and
// folds both into one canonical StatusUpdate.
func NormalizeStatusUpdate(data json.RawMessage) (StatusUpdate, error) {
	var envelope OrderEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Order.ID != 0 {
		order := envelope.Order
		return StatusUpdate{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			Status:      order.Status,
			EstimatedAt: order.EstimatedAt,
			Order:       &order,
		}, nil
	}

	var flat StatusUpdate
	if err := json.Unmarshal(data, &flat); err != nil {
		return StatusUpdate{}, fmt.Errorf("realtime: malformed status update: %w", err)
	}
	if flat.OrderID == 0 {
		return StatusUpdate{}, fmt.Errorf("realtime: status update without order id")
	}
	flat.Order = nil
	return flat, nil
}
