package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feirahub/feira/app/models"
)

func TestValidTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{models.StatusPending, models.StatusAccepted},
		{models.StatusPending, models.StatusCancelled},
		{models.StatusAccepted, models.StatusPreparing},
		{models.StatusAccepted, models.StatusCancelled},
		{models.StatusPreparing, models.StatusOutForDelivery},
		{models.StatusPreparing, models.StatusCancelled},
		{models.StatusOutForDelivery, models.StatusDelivered},
	}
	for _, tc := range allowed {
		assert.True(t, models.ValidTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to string }{
		{models.StatusPending, models.StatusDelivered},
		{models.StatusPending, models.StatusPreparing},
		{models.StatusAccepted, models.StatusDelivered},
		{models.StatusOutForDelivery, models.StatusCancelled},
		{models.StatusDelivered, models.StatusCancelled},
		{models.StatusDelivered, models.StatusPending},
		{models.StatusCancelled, models.StatusAccepted},
		{models.StatusPending, models.StatusPending},
		{"bogus", models.StatusAccepted},
	}
	for _, tc := range denied {
		assert.False(t, models.ValidTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{
		models.StatusPending, models.StatusAccepted, models.StatusPreparing,
		models.StatusOutForDelivery, models.StatusDelivered, models.StatusCancelled,
	} {
		assert.True(t, models.ValidStatus(s), s)
	}
	assert.False(t, models.ValidStatus("shipped"))
	assert.False(t, models.ValidStatus(""))
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{models.RoleBuyer, models.RoleShopOwner, models.RoleCourier, models.RoleAdmin} {
		assert.True(t, models.ValidRole(r), r)
	}
	assert.False(t, models.ValidRole("vendor"))
}
