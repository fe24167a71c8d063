package realtime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/realtime"
)

func TestNormalizeStatusUpdateEnvelope(t *testing.T) {
	eta := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	order := models.Order{
		Model:       gorm.Model{ID: 11},
		Number:      "F-000011",
		Status:      models.StatusOutForDelivery,
		EstimatedAt: &eta,
	}
	data, err := json.Marshal(realtime.OrderEnvelope{Order: order})
	require.NoError(t, err)

	update, err := realtime.NormalizeStatusUpdate(data)
	require.NoError(t, err)
	assert.Equal(t, uint(11), update.OrderID)
	assert.Equal(t, "F-000011", update.OrderNumber)
	assert.Equal(t, models.StatusOutForDelivery, update.Status)
	require.NotNil(t, update.EstimatedAt)
	assert.True(t, eta.Equal(*update.EstimatedAt))
	require.NotNil(t, update.Order)
	assert.Equal(t, uint(11), update.Order.ID)
}

func TestNormalizeStatusUpdateFlat(t *testing.T) {
	data := []byte(`{"order_id": 11, "status": "delivered", "order_number": "F-000011"}`)

	update, err := realtime.NormalizeStatusUpdate(data)
	require.NoError(t, err)
	assert.Equal(t, uint(11), update.OrderID)
	assert.Equal(t, models.StatusDelivered, update.Status)
	assert.Nil(t, update.Order)
}

func TestNormalizeStatusUpdateRejectsGarbage(t *testing.T) {
	_, err := realtime.NormalizeStatusUpdate([]byte(`"nope"`))
	assert.Error(t, err)

	_, err = realtime.NormalizeStatusUpdate([]byte(`{}`))
	assert.Error(t, err, "a status update without an order id is meaningless")
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "buyer:3", realtime.BuyerRoom(3))
	assert.Equal(t, "courier:4", realtime.CourierRoom(4))
	assert.Equal(t, "shop:5", realtime.ShopRoom(5))

	join := realtime.JoinRoomRequest{Role: realtime.RoomRoleShop, ID: "5"}
	assert.Equal(t, "shop:5", join.Room())
}
