package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/internal/cart"
	"github.com/feirahub/feira/pkg/workerpool"
)

// fakePlacer records every placement and can be told to fail for a shop.
type fakePlacer struct {
	mu     sync.Mutex
	placed map[uint][]cart.Line
	fail   map[uint]error
	nextID uint
}

func newFakePlacer() *fakePlacer {
	return &fakePlacer{placed: map[uint][]cart.Line{}, fail: map[uint]error{}}
}

func (f *fakePlacer) PlaceOrder(buyerID, shopID uint, lines []cart.Line, address, payment, notes string) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail[shopID]; err != nil {
		return models.Order{}, err
	}

	f.placed[shopID] = lines
	f.nextID++
	return models.Order{
		Model:   gorm.Model{ID: f.nextID},
		Number:  fmt.Sprintf("FEI-TEST-%05d", f.nextID),
		BuyerID: buyerID,
		ShopID:  shopID,
		Status:  models.StatusPending,
	}, nil
}

func checkoutFixture(t *testing.T) (*CheckoutService, *fakePlacer, *cart.Store) {
	t.Helper()

	placer := newFakePlacer()
	carts := cart.NewStore()
	pool := workerpool.New(4)
	t.Cleanup(pool.Shutdown)

	return NewCheckoutService(placer, carts, pool), placer, carts
}

func testProduct(id, shopID uint, price float64) models.Product {
	return models.Product{Model: gorm.Model{ID: id}, ShopID: shopID, Price: price}
}

func testShop(id uint) models.Shop {
	return models.Shop{Model: gorm.Model{ID: id}}
}

func TestCheckoutPlacesOneOrderPerShop(t *testing.T) {
	svc, placer, carts := checkoutFixture(t)

	c := carts.Get(7)
	c.Add(testProduct(1, 10, 5), testShop(10), 2)
	c.Add(testProduct(2, 10, 3), testShop(10), 1)
	c.Add(testProduct(3, 20, 8), testShop(20), 4)

	orders, err := svc.Checkout(7, "Rua A 1", "pix", "")
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, uint(10), orders[0].ShopID)
	assert.Equal(t, uint(20), orders[1].ShopID)

	// Every cart line reached exactly one submission.
	assert.Len(t, placer.placed[10], 2)
	assert.Len(t, placer.placed[20], 1)

	// Full success clears the cart.
	assert.Zero(t, c.Len())
}

func TestCheckoutPartialFailureKeepsCart(t *testing.T) {
	svc, placer, carts := checkoutFixture(t)
	placer.fail[20] = ErrShopClosed

	c := carts.Get(7)
	c.Add(testProduct(1, 10, 5), testShop(10), 1)
	c.Add(testProduct(3, 20, 8), testShop(20), 1)

	orders, err := svc.Checkout(7, "Rua A 1", "pix", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShopClosed)

	// The other shop's order was still placed: there is no rollback.
	require.Len(t, orders, 1)
	assert.Equal(t, uint(10), orders[0].ShopID)

	// The cart keeps its lines so the buyer can retry.
	assert.Equal(t, 2, c.Len())
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _, _ := checkoutFixture(t)

	orders, err := svc.Checkout(7, "Rua A 1", "pix", "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, orders)
}

func TestCheckoutManyShopsConcurrently(t *testing.T) {
	svc, placer, carts := checkoutFixture(t)

	c := carts.Get(7)
	for i := uint(1); i <= 16; i++ {
		c.Add(testProduct(i, i, 1), testShop(i), 1)
	}

	orders, err := svc.Checkout(7, "Rua A 1", "card", "")
	require.NoError(t, err)
	assert.Len(t, orders, 16)
	assert.Len(t, placer.placed, 16)
	assert.Zero(t, c.Len())
}

func TestCheckoutJoinsAllFailures(t *testing.T) {
	svc, placer, carts := checkoutFixture(t)
	errA := errors.New("shop 10 rejected")
	errB := errors.New("shop 20 rejected")
	placer.fail[10] = errA
	placer.fail[20] = errB

	c := carts.Get(7)
	c.Add(testProduct(1, 10, 5), testShop(10), 1)
	c.Add(testProduct(2, 20, 5), testShop(20), 1)

	_, err := svc.Checkout(7, "Rua A 1", "pix", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}
