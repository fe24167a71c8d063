package cart_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/internal/cart"
)

func product(id uint, shopID uint, price float64) models.Product {
	return models.Product{
		Model:  gorm.Model{ID: id},
		ShopID: shopID,
		Price:  price,
	}
}

func shop(id uint) models.Shop {
	return models.Shop{Model: gorm.Model{ID: id}}
}

func TestAddMergesQuantities(t *testing.T) {
	c := cart.New()
	s1 := shop(1)
	p1 := product(1, 1, 1000)

	c.Add(p1, s1, 2)
	c.Add(p1, s1, 3)

	lines := c.Lines()
	require.Len(t, lines, 1, "same product must never produce two lines")
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, 5, c.TotalItems())
	assert.Equal(t, 5000.0, c.TotalPrice())
}

func TestAddMergeInterleavedWithOtherProducts(t *testing.T) {
	c := cart.New()
	s1 := shop(1)
	p1 := product(1, 1, 10)
	p2 := product(2, 1, 20)

	c.Add(p1, s1, 1)
	c.Add(p2, s1, 1)
	c.Add(p1, s1, 4)
	c.Add(p2, s1, 2)

	lines := c.Lines()
	require.Len(t, lines, 2)
	// Positions are stable: p1 was added first and stays first.
	assert.Equal(t, uint(1), lines[0].Product.ID)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, uint(2), lines[1].Product.ID)
	assert.Equal(t, 3, lines[1].Quantity)
}

func TestAddIgnoresNonPositiveQuantity(t *testing.T) {
	c := cart.New()
	c.Add(product(1, 1, 10), shop(1), 0)
	c.Add(product(1, 1, 10), shop(1), -2)
	assert.Equal(t, 0, c.Len())
}

func TestRemoveIsNoOpWhenAbsent(t *testing.T) {
	c := cart.New()
	c.Add(product(1, 1, 10), shop(1), 1)

	c.Remove(99)
	assert.Equal(t, 1, c.Len())

	c.Remove(1)
	assert.Equal(t, 0, c.Len())

	// Repeated removal of an already-absent product is harmless.
	c.Remove(1)
	assert.Equal(t, 0, c.Len())
}

func TestUpdateQuantityFloor(t *testing.T) {
	for _, q := range []int{0, -5} {
		c := cart.New()
		c.Add(product(1, 1, 10), shop(1), 3)

		c.UpdateQuantity(1, q)

		assert.Equalf(t, 0, c.Len(), "quantity %d must behave exactly like Remove", q)
		assert.Equal(t, 0, c.TotalItems())
	}
}

func TestUpdateQuantityReplacesInPlace(t *testing.T) {
	c := cart.New()
	s1 := shop(1)
	c.Add(product(1, 1, 10), s1, 1)
	c.Add(product(2, 1, 20), s1, 1)

	c.UpdateQuantity(1, 7)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, uint(1), lines[0].Product.ID, "updated line keeps its position")
	assert.Equal(t, 7, lines[0].Quantity)

	// Unknown product: no-op.
	c.UpdateQuantity(99, 3)
	assert.Equal(t, 2, c.Len())
}

func TestTotalsConsistency(t *testing.T) {
	c := cart.New()
	assert.Equal(t, 0, c.TotalItems())
	assert.Equal(t, 0.0, c.TotalPrice())

	c.Add(product(1, 1, 2.5), shop(1), 2)
	c.Add(product(2, 2, 10), shop(2), 1)
	assert.Equal(t, 3, c.TotalItems())
	assert.Equal(t, 15.0, c.TotalPrice())

	c.UpdateQuantity(2, 4)
	assert.Equal(t, 6, c.TotalItems())
	assert.Equal(t, 45.0, c.TotalPrice())

	c.Remove(1)
	assert.Equal(t, 4, c.TotalItems())
	assert.Equal(t, 40.0, c.TotalPrice())
}

func TestClearIsIdempotent(t *testing.T) {
	c := cart.New()
	c.Add(product(1, 1, 10), shop(1), 2)

	c.Clear()
	assert.Equal(t, 0, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0.0, c.TotalPrice())
}

func TestGroupByShopCompleteness(t *testing.T) {
	c := cart.New()
	s1, s2 := shop(1), shop(2)
	c.Add(product(1, 1, 10), s1, 1)
	c.Add(product(2, 1, 20), s1, 2)
	c.Add(product(3, 2, 30), s2, 3)

	groups := c.GroupByShop()
	require.Len(t, groups, 2)
	assert.Len(t, groups[1], 2)
	assert.Len(t, groups[2], 1)

	// Re-flattening the groups yields the original multiset of lines.
	seen := map[uint]int{}
	total := 0
	for _, lines := range groups {
		for _, l := range lines {
			seen[l.Product.ID] = l.Quantity
			total++
		}
	}
	assert.Equal(t, c.Len(), total)
	assert.Equal(t, map[uint]int{1: 1, 2: 2, 3: 3}, seen)
}

func TestStoreOneCartPerUser(t *testing.T) {
	store := cart.NewStore()

	a := store.Get(1)
	b := store.Get(1)
	assert.Same(t, a, b, "same user gets the same cart instance")

	other := store.Get(2)
	a.Add(product(1, 1, 10), shop(1), 1)
	assert.Equal(t, 0, other.Len(), "carts are not shared between users")

	store.Drop(1)
	assert.Equal(t, 0, store.Get(1).Len(), "dropped cart is recreated empty")
}

func TestStoreSweepRemovesIdleCarts(t *testing.T) {
	store := cart.NewStore()

	stale := store.Get(1)
	stale.Add(product(1, 1, 10), shop(1), 1)

	// Everything was touched just now, so a sweep with any positive window
	// removes nothing.
	assert.Equal(t, 0, store.Sweep(time.Minute))
	assert.Equal(t, 1, store.Get(1).Len())

	// A zero-idle sweep treats every cart as stale.
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, store.Sweep(0))
	assert.Equal(t, 0, store.Get(1).Len(), "swept cart is recreated empty")
}

func TestLastTouchedAdvancesOnMutation(t *testing.T) {
	c := cart.New()
	before := c.LastTouched()

	time.Sleep(5 * time.Millisecond)
	c.Add(product(1, 1, 10), shop(1), 1)

	assert.True(t, c.LastTouched().After(before))
}
