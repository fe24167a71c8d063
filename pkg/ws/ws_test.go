package ws_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/auth"
	"github.com/feirahub/feira/pkg/realtime"
	"github.com/feirahub/feira/pkg/ws"
)

func startHub(t *testing.T) (*ws.Hub, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.Upgrade(w, r, hub)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestUpgradeRejectsMissingToken(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// End to end: a buyer Channel against the real hub. The auto-joined buyer
// room must receive order events emitted for that buyer and nothing else.
func TestBuyerRoomDelivery(t *testing.T) {
	hub, srv := startHub(t)

	token, err := auth.GenerateToken(7, models.RoleBuyer)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []models.Order
	ch := realtime.NewChannel(realtime.Options{
		URL:   wsURL(srv),
		Token: func() (string, error) { return token, nil },
		Handlers: realtime.Handlers{
			OrderCreated: func(o models.Order) {
				mu.Lock()
				got = append(got, o)
				mu.Unlock()
			},
		},
		ReconnectDelay:   10 * time.Millisecond,
		HandshakeTimeout: time.Second,
	})
	defer ch.Disconnect()
	ch.SetIdentity(&realtime.Identity{UserID: 7, Role: models.RoleBuyer})

	require.Eventually(t, ch.Connected, 2*time.Second, 5*time.Millisecond)
	// Give the join-room frame time to land in the hub.
	time.Sleep(100 * time.Millisecond)

	order := models.Order{Model: gorm.Model{ID: 1}, BuyerID: 7, Status: models.StatusPending}
	hub.EmitToRoom(realtime.BuyerRoom(7), realtime.EventOrderCreated, realtime.OrderEnvelope{Order: order})
	// An event for a different buyer must not reach this client.
	hub.EmitToRoom(realtime.BuyerRoom(8), realtime.EventOrderCreated, realtime.OrderEnvelope{Order: order})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].ID)
}

// A buyer asking for someone else's room is denied, so events emitted there
// never reach them.
func TestJoinForeignRoomDenied(t *testing.T) {
	hub, srv := startHub(t)

	token, err := auth.GenerateToken(7, models.RoleBuyer)
	require.NoError(t, err)

	dialer := websocket.Dialer{HandshakeTimeout: time.Second}
	conn, resp, err := dialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	join, err := realtime.EncodeFrame(realtime.EventJoinRoom,
		realtime.JoinRoomRequest{Role: realtime.RoomRoleBuyer, ID: "8"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, join))
	time.Sleep(100 * time.Millisecond)

	hub.EmitToRoom(realtime.BuyerRoom(8), realtime.EventOrderCreated,
		realtime.OrderEnvelope{Order: models.Order{Model: gorm.Model{ID: 2}}})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "denied client must receive nothing")
}

// Shop rooms require the ownership check wired in by the server bootstrap.
func TestShopRoomOwnership(t *testing.T) {
	hub, srv := startHub(t)
	hub.ShopAccess = func(userID, shopID uint) bool {
		return userID == 3 && shopID == 5
	}

	token, err := auth.GenerateToken(3, models.RoleShopOwner)
	require.NoError(t, err)

	dialer := websocket.Dialer{HandshakeTimeout: time.Second}
	conn, resp, err := dialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	join, err := realtime.EncodeFrame(realtime.EventJoinRoom,
		realtime.JoinRoomRequest{Role: realtime.RoomRoleShop, ID: "5"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, join))
	time.Sleep(100 * time.Millisecond)

	hub.EmitToRoom(realtime.ShopRoom(5), realtime.EventOrderCreated,
		realtime.OrderEnvelope{Order: models.Order{Model: gorm.Model{ID: 3}, ShopID: 5}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), realtime.EventOrderCreated)
}
