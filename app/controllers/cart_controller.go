package controllers

import (
	"net/http"

	"github.com/feirahub/feira/app/repositories"
	"github.com/feirahub/feira/internal/cart"
	"github.com/feirahub/feira/pkg/ctx"
	"github.com/feirahub/feira/pkg/middleware"
)

type CartController struct {
	carts    *cart.Store
	products *repositories.ProductRepository
	shops    *repositories.ShopRepository
}

func NewCartController(carts *cart.Store, products *repositories.ProductRepository, shops *repositories.ShopRepository) *CartController {
	return &CartController{carts: carts, products: products, shops: shops}
}

func (cc *CartController) cartOf(c *ctx.Context) *cart.Cart {
	userID, _ := middleware.UserIDFromCtx(c.R)
	return cc.carts.Get(userID)
}

// cartView is the JSON shape of a cart snapshot: the lines plus derived
// totals, grouped per shop the way checkout will split it.
func cartView(crt *cart.Cart) map[string]any {
	return map[string]any{
		"lines":       crt.Lines(),
		"total_items": crt.TotalItems(),
		"total_price": crt.TotalPrice(),
		"by_shop":     crt.GroupByShop(),
	}
}

// Show returns the current cart snapshot.
func (cc *CartController) Show(c *ctx.Context) {
	c.Success(cartView(cc.cartOf(c)))
}

type addItemInput struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gte=1"`
}

// Add puts a product in the cart, merging with an existing line for the same
// product.
func (cc *CartController) Add(c *ctx.Context) {
	var in addItemInput
	if !c.BindJSON(&in) {
		return
	}

	product, err := cc.products.FindByID(in.ProductID)
	if err != nil {
		c.NotFound("Product not found")
		return
	}
	shop, err := cc.shops.FindByID(product.ShopID)
	if err != nil {
		c.NotFound("Shop not found")
		return
	}
	if !shop.Open {
		c.Error(http.StatusConflict, "Shop is closed")
		return
	}

	crt := cc.cartOf(c)
	crt.Add(product, shop, in.Quantity)
	c.Success(cartView(crt))
}

type updateItemInput struct {
	Quantity int `json:"quantity" validate:"integer"`
}

// UpdateItem sets the quantity of one line. Zero or negative removes it.
func (cc *CartController) UpdateItem(c *ctx.Context) {
	productID, ok := paramUint(c, "productID")
	if !ok {
		return
	}

	var in updateItemInput
	if !c.BindJSON(&in) {
		return
	}

	crt := cc.cartOf(c)
	crt.UpdateQuantity(productID, in.Quantity)
	c.Success(cartView(crt))
}

// RemoveItem deletes one line from the cart.
func (cc *CartController) RemoveItem(c *ctx.Context) {
	productID, ok := paramUint(c, "productID")
	if !ok {
		return
	}

	crt := cc.cartOf(c)
	crt.Remove(productID)
	c.Success(cartView(crt))
}

// Clear empties the cart.
func (cc *CartController) Clear(c *ctx.Context) {
	crt := cc.cartOf(c)
	crt.Clear()
	c.Success(cartView(crt))
}
