package realtime_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/realtime"
)

const testToken = "test-token"

// wsServer is a minimal hub stand-in: it accepts upgrades, records inbound
// frames, and lets tests push frames to the most recent client.
type wsServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conn   *websocket.Conn
	frames chan realtime.Frame
}

func newWSServer(t *testing.T) *wsServer {
	s := &wsServer{t: t, frames: make(chan realtime.Frame, 16)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame realtime.Frame
			if json.Unmarshal(msg, &frame) == nil {
				s.frames <- frame
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) push(t *testing.T, event string, payload interface{}) {
	t.Helper()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	require.NotNil(t, conn, "no client connected")

	buf, err := realtime.EncodeFrame(event, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, buf))
}

// dropClient closes the current client connection server-side, simulating a
// network drop the channel has to recover from.
func (s *wsServer) dropClient(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	require.NotNil(t, conn, "no client connected")
	require.NoError(t, conn.Close())
}

func (s *wsServer) nextFrame(t *testing.T) realtime.Frame {
	t.Helper()
	select {
	case f := <-s.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return realtime.Frame{}
	}
}

func fastOptions(url string) realtime.Options {
	return realtime.Options{
		URL:               url,
		Token:             func() (string, error) { return testToken, nil },
		ReconnectAttempts: 3,
		ReconnectDelay:    10 * time.Millisecond,
		ReconnectDelayMax: 20 * time.Millisecond,
		HandshakeTimeout:  time.Second,
		JoinRetryDelay:    50 * time.Millisecond,
		Logger:            slog.New(slog.NewTextHandler(testWriter{}, nil)),
	}
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

// countingHandler records log messages so tests can observe behaviour that
// only shows up in the channel's logs, like abandoned join retries.
type countingHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *countingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.msgs = append(h.msgs, r.Message)
	h.mu.Unlock()
	return nil
}

func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }

func (h *countingHandler) count(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.msgs {
		if m == msg {
			n++
		}
	}
	return n
}

func roomOf(t *testing.T, frame realtime.Frame) string {
	t.Helper()
	require.Equal(t, realtime.EventJoinRoom, frame.Event)
	var join realtime.JoinRoomRequest
	require.NoError(t, json.Unmarshal(frame.Data, &join))
	return join.Room()
}

func waitConnected(t *testing.T, ch *realtime.Channel) {
	t.Helper()
	require.Eventually(t, ch.Connected, 2*time.Second, 5*time.Millisecond)
}

func TestConnectAutoJoinsBuyerRoom(t *testing.T) {
	server := newWSServer(t)

	ch := realtime.NewChannel(fastOptions(server.url()))
	defer ch.Disconnect()
	ch.SetIdentity(&realtime.Identity{UserID: 7, Role: models.RoleBuyer})

	waitConnected(t, ch)

	frame := server.nextFrame(t)
	assert.Equal(t, realtime.EventJoinRoom, frame.Event)

	var join realtime.JoinRoomRequest
	require.NoError(t, json.Unmarshal(frame.Data, &join))
	assert.Equal(t, "buyer:7", join.Room())
}

func TestEventDelivery(t *testing.T) {
	server := newWSServer(t)

	var (
		mu      sync.Mutex
		created []models.Order
		updates []realtime.StatusUpdate
	)
	gotUpdate := make(chan struct{}, 8)

	opts := fastOptions(server.url())
	opts.Handlers = realtime.Handlers{
		OrderCreated: func(o models.Order) {
			mu.Lock()
			created = append(created, o)
			mu.Unlock()
			gotUpdate <- struct{}{}
		},
		OrderStatusUpdated: func(u realtime.StatusUpdate) {
			mu.Lock()
			updates = append(updates, u)
			mu.Unlock()
			gotUpdate <- struct{}{}
		},
	}

	ch := realtime.NewChannel(opts)
	defer ch.Disconnect()
	ch.SetIdentity(&realtime.Identity{UserID: 1, Role: models.RoleBuyer})
	waitConnected(t, ch)
	server.nextFrame(t) // consume the auto join

	order := models.Order{
		Model:  gorm.Model{ID: 42},
		Number: "F-000042",
		Status: models.StatusPending,
	}
	server.push(t, realtime.EventOrderCreated, realtime.OrderEnvelope{Order: order})

	// Envelope shape.
	order.Status = models.StatusAccepted
	server.push(t, realtime.EventOrderStatusUpdated, realtime.OrderEnvelope{Order: order})

	// Flat shape.
	server.push(t, realtime.EventOrderStatusUpdated, map[string]interface{}{
		"order_id": 42, "status": models.StatusPreparing, "order_number": "F-000042",
	})

	for i := 0; i < 3; i++ {
		select {
		case <-gotUpdate:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, created, 1)
	assert.Equal(t, uint(42), created[0].ID)

	require.Len(t, updates, 2)
	assert.Equal(t, uint(42), updates[0].OrderID)
	assert.Equal(t, models.StatusAccepted, updates[0].Status)
	assert.NotNil(t, updates[0].Order, "envelope shape carries the full order")

	assert.Equal(t, uint(42), updates[1].OrderID)
	assert.Equal(t, models.StatusPreparing, updates[1].Status)
	assert.Nil(t, updates[1].Order, "flat shape carries no full order")
}

func TestJoinShopRoomRetriesExactlyOnce(t *testing.T) {
	// Never connected: the join is deferred, the single retry fires after the
	// delay and gives up. Both attempts are only visible in the logs, so
	// count the log messages.
	logs := &countingHandler{}
	opts := fastOptions("ws://127.0.0.1:0")
	opts.Logger = slog.New(logs)
	opts.JoinRetryDelay = 30 * time.Millisecond
	ch := realtime.NewChannel(opts)

	ch.JoinShopRoom(5)
	assert.Equal(t, 1, logs.count("realtime: join deferred, not connected"))

	require.Eventually(t, func() bool {
		return logs.count("realtime: join-room failed, giving up") == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Wait several retry windows: no further attempt is ever scheduled.
	time.Sleep(5 * opts.JoinRetryDelay)
	assert.Equal(t, 1, logs.count("realtime: join deferred, not connected"))
	assert.Equal(t, 1, logs.count("realtime: join-room failed, giving up"))
	assert.False(t, ch.Connected())
}

func TestShopRoomsRejoinedAfterReconnect(t *testing.T) {
	server := newWSServer(t)

	ch := realtime.NewChannel(fastOptions(server.url()))
	defer ch.Disconnect()
	ch.SetIdentity(&realtime.Identity{UserID: 3, Role: models.RoleShopOwner})
	waitConnected(t, ch)

	ch.JoinShopRoom(5)
	ch.JoinShopRoom(9)
	joined := map[string]bool{
		roomOf(t, server.nextFrame(t)): true,
		roomOf(t, server.nextFrame(t)): true,
	}
	require.Equal(t, map[string]bool{"shop:5": true, "shop:9": true}, joined)

	// Drop the connection out from under the channel. The reconnect must
	// replay both shop subscriptions without any new JoinShopRoom call.
	server.dropClient(t)

	rejoined := map[string]bool{}
	for len(rejoined) < 2 {
		rejoined[roomOf(t, server.nextFrame(t))] = true
	}
	assert.Equal(t, map[string]bool{"shop:5": true, "shop:9": true}, rejoined)
	waitConnected(t, ch)
}

func TestShopRoomsClearedOnIdentityChange(t *testing.T) {
	server := newWSServer(t)

	ch := realtime.NewChannel(fastOptions(server.url()))
	defer ch.Disconnect()
	ch.SetIdentity(&realtime.Identity{UserID: 3, Role: models.RoleShopOwner})
	waitConnected(t, ch)

	ch.JoinShopRoom(5)
	require.Equal(t, "shop:5", roomOf(t, server.nextFrame(t)))

	// A different session must not inherit the previous owner's rooms. The
	// buyer's auto join is the only frame the new connection sends.
	ch.SetIdentity(&realtime.Identity{UserID: 7, Role: models.RoleBuyer})
	waitConnected(t, ch)
	require.Equal(t, "buyer:7", roomOf(t, server.nextFrame(t)))

	select {
	case frame := <-server.frames:
		t.Fatalf("unexpected frame after identity change: %+v", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestJoinShopRoomRetrySucceedsAfterConnect(t *testing.T) {
	server := newWSServer(t)

	opts := fastOptions(server.url())
	opts.JoinRetryDelay = 300 * time.Millisecond
	ch := realtime.NewChannel(opts)
	defer ch.Disconnect()

	// Join while disconnected: the single retry is scheduled.
	ch.JoinShopRoom(5)

	// Connect before the retry fires.
	ch.SetIdentity(&realtime.Identity{UserID: 3, Role: models.RoleShopOwner})
	waitConnected(t, ch)

	frame := server.nextFrame(t)
	assert.Equal(t, realtime.EventJoinRoom, frame.Event)

	var join realtime.JoinRoomRequest
	require.NoError(t, json.Unmarshal(frame.Data, &join))
	assert.Equal(t, "shop:5", join.Room())
}

func TestReconnectAttemptBound(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ch := realtime.NewChannel(fastOptions("ws" + strings.TrimPrefix(srv.URL, "http")))
	defer ch.Disconnect()
	ch.SetIdentity(&realtime.Identity{UserID: 1, Role: models.RoleBuyer})

	// Initial dial plus exactly 3 reconnect attempts.
	require.Eventually(t, func() bool { return dials.Load() == 4 },
		2*time.Second, 5*time.Millisecond)

	// The channel is now inert: no further dials on their own.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(4), dials.Load())

	// An explicit Connect restarts the policy.
	ch.Connect()
	require.Eventually(t, func() bool { return dials.Load() > 4 },
		2*time.Second, 5*time.Millisecond)
}

func TestConnectWithoutIdentityIsNoOp(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
	}))
	defer srv.Close()

	ch := realtime.NewChannel(fastOptions("ws" + strings.TrimPrefix(srv.URL, "http")))
	ch.Connect()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), dials.Load())
}

func TestDisconnectIsSafeWhenNotConnected(t *testing.T) {
	ch := realtime.NewChannel(fastOptions("ws://127.0.0.1:0"))
	ch.Disconnect()
	ch.Disconnect()
	assert.False(t, ch.Connected())
}

func TestLogoutDisconnects(t *testing.T) {
	server := newWSServer(t)

	ch := realtime.NewChannel(fastOptions(server.url()))
	ch.SetIdentity(&realtime.Identity{UserID: 9, Role: models.RoleCourier})
	waitConnected(t, ch)

	ch.SetIdentity(nil)
	require.Eventually(t, func() bool { return !ch.Connected() },
		2*time.Second, 5*time.Millisecond)

	// Identity cleared: a bare Connect must not dial again.
	ch.Connect()
	time.Sleep(50 * time.Millisecond)
	assert.False(t, ch.Connected())
}

// Disconnect must return promptly even while a connect is in flight.
func TestChannelTeardownRace(t *testing.T) {
	server := newWSServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch := realtime.NewChannel(fastOptions(server.url()))
	ch.SetIdentity(&realtime.Identity{UserID: 2, Role: models.RoleBuyer})

	done := make(chan struct{})
	go func() {
		ch.Disconnect()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Disconnect blocked")
	}
}
