package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/feirahub/feira/app/models"
)

// Defaults for the connection policy.
const (
	DefaultReconnectAttempts = 3
	DefaultReconnectDelay    = 3 * time.Second
	DefaultReconnectDelayMax = 10 * time.Second
	DefaultHandshakeTimeout  = 20 * time.Second
	DefaultJoinRetryDelay    = 1 * time.Second
	defaultWriteTimeout      = 10 * time.Second
)

// ErrNotConnected is returned by emit when no live connection exists.
var ErrNotConnected = errors.New("realtime: not connected")

// TokenProvider supplies the bearer token used to authenticate the
// connection. Injected so the channel never reads token storage itself.
type TokenProvider func() (string, error)

// Identity is the authenticated session the channel subscribes for.
type Identity struct {
	UserID uint
	Role   string
}

// Handlers are the caller-supplied callbacks for server-pushed order events.
// Nil entries are skipped. Handlers run on the channel's read goroutine, in
// frame arrival order.
type Handlers struct {
	OrderCreated       func(models.Order)
	OrderStatusUpdated func(StatusUpdate)
	OrderAssigned      func(models.Order)
}

// Options configures a Channel. URL and Token are required; zero-valued
// policy fields fall back to the defaults above.
type Options struct {
	URL      string // ws:// or wss:// endpoint
	Token    TokenProvider
	Handlers Handlers
	Logger   *slog.Logger

	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	HandshakeTimeout  time.Duration
	JoinRetryDelay    time.Duration
}

func (o *Options) fillDefaults() {
	if o.ReconnectAttempts == 0 {
		o.ReconnectAttempts = DefaultReconnectAttempts
	}
	if o.ReconnectDelay == 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.ReconnectDelayMax == 0 {
		o.ReconnectDelayMax = DefaultReconnectDelayMax
	}
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.JoinRetryDelay == 0 {
		o.JoinRetryDelay = DefaultJoinRetryDelay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Channel maintains at most one live notification connection for an
// authenticated session. It is a session-scoped service object: construct it
// once at login, call Connect, and Disconnect at logout. It is not coupled to
// any UI or request lifecycle.
//
// Transport failures are logged, never surfaced as errors: the bounded
// reconnect policy absorbs transient loss, and once the attempt budget is
// spent the channel stays down until the next explicit Connect.
type Channel struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	identity *Identity
	conn     *websocket.Conn
	running  bool          // a run loop currently owns the connection
	live     bool          // handshake completed and read loop active
	stop     chan struct{} // closed by Disconnect to cancel the run loop

	// rooms holds the shop subscriptions to replay after a reconnect,
	// keyed by room name.
	rooms map[string]JoinRoomRequest

	writeMu sync.Mutex
}

// NewChannel creates a Channel. It does not connect.
func NewChannel(opts Options) *Channel {
	opts.fillDefaults()
	return &Channel{opts: opts, log: opts.Logger, rooms: map[string]JoinRoomRequest{}}
}

// SetIdentity installs the session identity. A nil identity (logout) tears
// the connection down; a changed identity reconnects under the new session.
// An unchanged identity is a no-op, so callers may invoke this on every
// session re-evaluation without reconnect churn.
func (c *Channel) SetIdentity(id *Identity) {
	c.mu.Lock()
	same := (id == nil && c.identity == nil) ||
		(id != nil && c.identity != nil && *id == *c.identity)
	c.mu.Unlock()
	if same {
		return
	}

	c.Disconnect()

	c.mu.Lock()
	c.identity = id
	// Room subscriptions belong to the old session; the new one joins afresh.
	c.rooms = map[string]JoinRoomRequest{}
	c.mu.Unlock()

	if id != nil {
		c.Connect()
	}
}

// Connect establishes the notification connection. Preconditions: an
// identity must be set and the token provider must yield a token — otherwise
// Connect logs and does nothing. When a connection is already live, or a
// reconnect loop is already running, Connect is a no-op.
func (c *Channel) Connect() {
	c.mu.Lock()
	id := c.identity
	if id == nil {
		c.mu.Unlock()
		c.log.Debug("realtime: connect skipped, no identity")
		return
	}
	if c.live || c.running {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	token, err := c.opts.Token()
	if err != nil || token == "" {
		c.log.Debug("realtime: connect skipped, no access token", "error", err)
		return
	}

	c.mu.Lock()
	if c.live || c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	stop := make(chan struct{})
	c.stop = stop
	ident := *id
	c.mu.Unlock()

	go c.run(ident, token, stop)
}

// Disconnect tears down the connection and cancels any in-flight reconnect
// loop. Safe to call when nothing is connected.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	stop := c.stop
	c.conn = nil
	c.stop = nil
	c.live = false
	c.running = false
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// Connected reports whether a live connection exists right now.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// JoinShopRoom subscribes to a shop's order events. Shop owners call this
// once per shop they manage; the server verifies ownership. The subscription
// is recorded and replayed after every reconnect, so a dropped connection
// does not silently unsubscribe the shop. When the connection is not live the
// initial join is retried exactly once after the configured delay, then
// abandoned with a log entry (the recorded subscription still replays if a
// connection comes up later).
func (c *Channel) JoinShopRoom(shopID uint) {
	req := JoinRoomRequest{Role: RoomRoleShop, ID: strconv.FormatUint(uint64(shopID), 10)}

	c.mu.Lock()
	c.rooms[req.Room()] = req
	c.mu.Unlock()

	if err := c.emit(EventJoinRoom, req); err == nil {
		return
	}

	c.log.Debug("realtime: join deferred, not connected", "room", req.Room())
	time.AfterFunc(c.opts.JoinRetryDelay, func() {
		if err := c.emit(EventJoinRoom, req); err != nil {
			c.log.Warn("realtime: join-room failed, giving up",
				"room", req.Room(), "error", err)
		}
	})
}

// ─── Connection loop ──────────────────────────────────────────────────────────

// run dials and services the connection until Disconnect, redialling after
// loss with a growing delay. The attempt budget resets after every
// successful handshake; spending it leaves the channel inert until the next
// explicit Connect.
func (c *Channel) run(ident Identity, token string, stop chan struct{}) {
	attempt := 0
	delay := c.opts.ReconnectDelay

	for {
		conn, err := c.dial(token)
		if err != nil {
			attempt++
			if attempt > c.opts.ReconnectAttempts {
				c.log.Error("realtime: reconnect attempts exhausted, staying offline",
					"attempts", c.opts.ReconnectAttempts, "error", err)
				c.finish(stop)
				return
			}

			c.log.Warn("realtime: connect failed, retrying",
				"attempt", attempt, "delay", delay.String(), "error", err)

			select {
			case <-time.After(delay):
			case <-stop:
				return
			}

			delay *= 2
			if delay > c.opts.ReconnectDelayMax {
				delay = c.opts.ReconnectDelayMax
			}
			continue
		}

		c.mu.Lock()
		select {
		case <-stop:
			// Disconnected while the handshake was in flight.
			c.mu.Unlock()
			_ = conn.Close()
			return
		default:
		}
		c.conn = conn
		c.live = true
		c.mu.Unlock()

		attempt = 0
		delay = c.opts.ReconnectDelay
		c.log.Info("realtime: connected", "user_id", ident.UserID, "role", ident.Role)

		c.joinRoleRoom(ident)
		c.rejoinShopRooms()
		c.readLoop(conn)

		c.mu.Lock()
		c.live = false
		c.conn = nil
		c.mu.Unlock()

		select {
		case <-stop:
			return
		default:
		}
		c.log.Warn("realtime: connection lost, reconnecting")
	}
}

func (c *Channel) dial(token string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	header := http.Header{"Authorization": []string{"Bearer " + token}}

	conn, resp, err := dialer.Dial(c.opts.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// finish releases the running flag unless Disconnect already replaced the
// loop's stop channel.
func (c *Channel) finish(stop chan struct{}) {
	c.mu.Lock()
	if c.stop == stop {
		c.running = false
		c.stop = nil
	}
	c.mu.Unlock()
}

// joinRoleRoom auto-joins the session's own room. Only buyers and couriers
// have exactly one room; shop owners and admins subscribe per shop through
// JoinShopRoom.
func (c *Channel) joinRoleRoom(ident Identity) {
	var role string
	switch ident.Role {
	case models.RoleBuyer:
		role = RoomRoleBuyer
	case models.RoleCourier:
		role = RoomRoleCourier
	default:
		return
	}

	req := JoinRoomRequest{Role: role, ID: strconv.FormatUint(uint64(ident.UserID), 10)}
	if err := c.emit(EventJoinRoom, req); err != nil {
		c.log.Warn("realtime: auto join failed", "room", req.Room(), "error", err)
	}
}

// rejoinShopRooms replays every recorded shop subscription on a fresh
// connection. The hub treats a repeated join as a no-op, so replaying a room
// the server already knows about is harmless.
func (c *Channel) rejoinShopRooms() {
	c.mu.Lock()
	reqs := make([]JoinRoomRequest, 0, len(c.rooms))
	for _, req := range c.rooms {
		reqs = append(reqs, req)
	}
	c.mu.Unlock()

	for _, req := range reqs {
		if err := c.emit(EventJoinRoom, req); err != nil {
			c.log.Warn("realtime: room rejoin failed", "room", req.Room(), "error", err)
		}
	}
}

// ─── I/O ──────────────────────────────────────────────────────────────────────

func (c *Channel) emit(event string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	live := c.live
	c.mu.Unlock()

	if !live || conn == nil {
		return ErrNotConnected
	}

	buf, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, buf)
}

// readLoop decodes frames until the connection dies. Frames are dispatched
// in arrival order; no reordering or deduplication happens here.
func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("realtime: read error", "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(msg, &frame); err != nil {
			c.log.Warn("realtime: dropping malformed frame", "error", err)
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Channel) dispatch(frame Frame) {
	switch frame.Event {
	case EventOrderCreated:
		if h := c.opts.Handlers.OrderCreated; h != nil {
			var env OrderEnvelope
			if err := json.Unmarshal(frame.Data, &env); err != nil {
				c.log.Warn("realtime: bad order-created payload", "error", err)
				return
			}
			h(env.Order)
		}

	case EventOrderStatusUpdated:
		if h := c.opts.Handlers.OrderStatusUpdated; h != nil {
			update, err := NormalizeStatusUpdate(frame.Data)
			if err != nil {
				c.log.Warn("realtime: bad status-updated payload", "error", err)
				return
			}
			h(update)
		}

	case EventOrderAssigned:
		if h := c.opts.Handlers.OrderAssigned; h != nil {
			var env OrderEnvelope
			if err := json.Unmarshal(frame.Data, &env); err != nil {
				c.log.Warn("realtime: bad order-assigned payload", "error", err)
				return
			}
			h(env.Order)
		}

	default:
		c.log.Debug("realtime: ignoring unknown event", "event", frame.Event)
	}
}
