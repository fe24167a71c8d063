// Package cart holds the in-memory shopping cart for each session.
//
// A cart is a list of (product, shop, quantity) lines with at most one line
// per product: adding an existing product merges quantities instead of
// appending a duplicate. Carts are never persisted and never shared across
// sessions; checkout reads the grouped view and the caller clears the cart
// after every shop's order has been accepted.
package cart

import (
	"sync"
	"time"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/collection"
)

// Line is one cart entry. Quantity is always > 0 while the line exists.
type Line struct {
	Product  models.Product `json:"product"`
	Shop     models.Shop    `json:"shop"`
	Quantity int            `json:"quantity"`
}

// Subtotal returns quantity × unit price for this line.
func (l Line) Subtotal() float64 {
	return float64(l.Quantity) * l.Product.Price
}

// Cart is a session-scoped line list. All methods are safe for concurrent
// use: unlike a browser tab, two HTTP requests for the same session can
// mutate the cart at the same time.
type Cart struct {
	mu      sync.Mutex
	lines   []Line
	touched time.Time
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{touched: time.Now()}
}

// Add merges quantity into the existing line for product, or appends a new
// line at the end. Line order is otherwise preserved. quantity must be
// positive; non-positive values are ignored.
func (c *Cart) Add(product models.Product, shop models.Shop, quantity int) {
	if quantity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = time.Now()

	for i := range c.lines {
		if c.lines[i].Product.ID == product.ID {
			c.lines[i].Quantity += quantity
			return
		}
	}

	c.lines = append(c.lines, Line{Product: product, Shop: shop, Quantity: quantity})
}

// Remove deletes the line for productID. No-op when absent.
func (c *Cart) Remove(productID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = time.Now()
	c.removeLocked(productID)
}

func (c *Cart) removeLocked(productID uint) {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// UpdateQuantity replaces the quantity of the line for productID, keeping its
// position. A quantity <= 0 removes the line, exactly like Remove. No-op when
// no line matches.
func (c *Cart) UpdateQuantity(productID uint, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = time.Now()

	if quantity <= 0 {
		c.removeLocked(productID)
		return
	}

	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart. Idempotent.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = time.Now()
	c.lines = nil
}

// LastTouched returns the time of the most recent mutation.
func (c *Cart) LastTouched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// TotalItems returns the sum of quantities across all lines, not the number
// of distinct lines.
func (c *Cart) TotalItems() int {
	return collection.SumInt(c.Lines(), func(l Line) int { return l.Quantity })
}

// TotalPrice returns the raw numeric total across all lines. Rounding and
// currency formatting belong to the display layer.
func (c *Cart) TotalPrice() float64 {
	return collection.Sum(c.Lines(), Line.Subtotal)
}

// GroupByShop partitions the lines by shop ID. Each group feeds exactly one
// order submission at checkout; flattening the groups yields every line
// exactly once.
func (c *Cart) GroupByShop() map[uint][]Line {
	return collection.GroupBy(c.Lines(), func(l Line) uint { return l.Shop.ID })
}
