// Package ws is the server side of the order-notification channel: a
// room-aware WebSocket hub built on gorilla/websocket.
//
// Every connected client is authenticated at upgrade time and may then ask to
// join rooms ("buyer:7", "shop:3", ...) by sending join-room frames. Order
// lifecycle events are fanned out to the clients of the relevant rooms:
//
//	var hub = ws.NewHub()
//	go hub.Run()
//
//	// In a route handler:
//	ws.Upgrade(c.W, c.R, hub)
//
//	// From anywhere:
//	hub.EmitToRoom(realtime.ShopRoom(3), realtime.EventOrderCreated, payload)
package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/config"
	"github.com/feirahub/feira/pkg/auth"
	"github.com/feirahub/feira/pkg/logger"
	"github.com/feirahub/feira/pkg/metrics"
	"github.com/feirahub/feira/pkg/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // inbound frames are tiny; 64 KB is generous
)

// ─── Prometheus metrics ───────────────────────────────────────────────────────

var (
	connectedClients = promauto.With(metrics.DefaultRegistry).NewGauge(prometheus.GaugeOpts{
		Namespace: "feira",
		Subsystem: "ws",
		Name:      "connected_clients",
		Help:      "Number of currently connected notification clients.",
	})

	emittedEvents = promauto.With(metrics.DefaultRegistry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "feira",
		Subsystem: "ws",
		Name:      "emitted_events_total",
		Help:      "Order events fanned out to rooms, by event name.",
	}, []string{"event"})
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		allowed := config.WSAllowedOrigin()
		return allowed == "" || r.Header.Get("Origin") == allowed
	},
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is one authenticated WebSocket connection. UserID and Role come
// from the validated JWT.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID uint
	Role   string
	rooms  map[string]bool // touched only by the hub goroutine
}

// readPump pumps frames from the connection into the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "error", err)
			}
			break
		}
		c.hub.inbound <- inboundMessage{client: c, data: msg}
	}
}

// writePump pumps frames from the hub to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

type inboundMessage struct {
	client *Client
	data   []byte
}

type emitRequest struct {
	room string
	data []byte
}

// Hub tracks connected clients and their room memberships and fans order
// events out to rooms. All bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage
	emits      chan emitRequest

	// ShopAccess reports whether a user may watch a shop's room. Nil denies
	// every non-admin shop join.
	ShopAccess func(userID uint, shopID uint) bool
}

// NewHub creates a Hub. Call hub.Run() in a goroutine at startup.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundMessage, 256),
		emits:      make(chan emitRequest, 256),
	}
}

// Run is the hub event loop. Must run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			connectedClients.Set(float64(len(h.clients)))
			logger.Info("ws: client connected",
				"user_id", client.UserID, "role", client.Role, "total", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
				logger.Info("ws: client disconnected",
					"user_id", client.UserID, "total", len(h.clients))
			}

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case req := <-h.emits:
			for client := range h.rooms[req.room] {
				select {
				case client.send <- req.data:
				default:
					// Slow consumer: drop the connection rather than block
					// the hub.
					h.dropClient(client)
				}
			}
		}
	}
}

func (h *Hub) dropClient(client *Client) {
	delete(h.clients, client)
	for room := range client.rooms {
		h.leaveRoom(client, room)
	}
	close(client.send)
	connectedClients.Set(float64(len(h.clients)))
}

// handleInbound decodes a client frame. join-room is the only inbound event
// the protocol defines; anything else is dropped with a log entry.
func (h *Hub) handleInbound(msg inboundMessage) {
	var frame realtime.Frame
	if err := json.Unmarshal(msg.data, &frame); err != nil {
		logger.Warn("ws: malformed frame", "user_id", msg.client.UserID, "error", err)
		return
	}

	if frame.Event != realtime.EventJoinRoom {
		logger.Debug("ws: ignoring inbound event", "event", frame.Event)
		return
	}

	var req realtime.JoinRoomRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		logger.Warn("ws: malformed join-room payload", "error", err)
		return
	}

	if !h.authorize(msg.client, req) {
		logger.Warn("ws: join-room denied",
			"user_id", msg.client.UserID, "role", msg.client.Role, "room", req.Room())
		return
	}

	h.joinRoom(msg.client, req.Room())
}

// authorize enforces the room policy: buyers and couriers only join their
// own room, shop owners join rooms of shops they own, admins join anything.
func (h *Hub) authorize(c *Client, req realtime.JoinRoomRequest) bool {
	if c.Role == models.RoleAdmin {
		return true
	}

	id, err := strconv.ParseUint(req.ID, 10, 64)
	if err != nil {
		return false
	}

	switch req.Role {
	case realtime.RoomRoleBuyer:
		return c.Role == models.RoleBuyer && uint(id) == c.UserID
	case realtime.RoomRoleCourier:
		return c.Role == models.RoleCourier && uint(id) == c.UserID
	case realtime.RoomRoleShop:
		return c.Role == models.RoleShopOwner && h.ShopAccess != nil && h.ShopAccess(c.UserID, uint(id))
	default:
		return false
	}
}

// joinRoom is idempotent: joining a room the client is already in is
// harmless.
func (h *Hub) joinRoom(c *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
	logger.Debug("ws: joined room", "user_id", c.UserID, "room", room)
}

func (h *Hub) leaveRoom(c *Client, room string) {
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// EmitToRoom encodes a named-event frame and queues it for every client in
// the room. Rooms with no members are a cheap no-op.
func (h *Hub) EmitToRoom(room, event string, payload interface{}) {
	data, err := realtime.EncodeFrame(event, payload)
	if err != nil {
		logger.Error("ws: encode failed", "event", event, "error", err)
		return
	}

	emittedEvents.WithLabelValues(event).Inc()

	select {
	case h.emits <- emitRequest{room: room, data: data}:
	default:
		logger.Warn("ws: emit queue full, dropping event", "event", event, "room", room)
	}
}

// ─── Upgrade ──────────────────────────────────────────────────────────────────

// Upgrade authenticates the request, upgrades it to a WebSocket, and
// registers the resulting client with the hub. The bearer token is read from
// the Authorization header, with a "token" query parameter fallback because
// browser WebSocket clients cannot set headers.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *Hub) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws: upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		UserID: claims.UserID,
		Role:   claims.Role,
		rooms:  make(map[string]bool),
	}
	hub.register <- client
	go client.writePump()
	go client.readPump()
}
