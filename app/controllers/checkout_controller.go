package controllers

import (
	"errors"
	"net/http"

	"github.com/feirahub/feira/app/services"
	"github.com/feirahub/feira/pkg/ctx"
	"github.com/feirahub/feira/pkg/middleware"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

type checkoutInput struct {
	DeliveryAddress string `json:"delivery_address" validate:"required,max=512"`
	PaymentMethod   string `json:"payment_method" validate:"required,in=pix,card,cash"`
	Notes           string `json:"notes" validate:"nullable,max=1000"`
}

// Checkout turns the buyer's cart into one order per shop. A partial failure
// returns 207 with the orders that were placed; the cart keeps its lines so
// the buyer can retry the rest.
func (cc *CheckoutController) Checkout(c *ctx.Context) {
	var in checkoutInput
	if !c.BindJSON(&in) {
		return
	}

	userID, _ := middleware.UserIDFromCtx(c.R)
	orders, err := cc.checkout.Checkout(userID, in.DeliveryAddress, in.PaymentMethod, in.Notes)
	switch {
	case errors.Is(err, services.ErrEmptyCart):
		c.Error(http.StatusUnprocessableEntity, "Cart is empty")
		return
	case err != nil && len(orders) > 0:
		c.JSON(http.StatusMultiStatus, map[string]any{
			"status": http.StatusMultiStatus,
			"data":   map[string]any{"orders": orders},
			"errors": err.Error(),
		})
		return
	case err != nil:
		c.Error(http.StatusConflict, err.Error())
		return
	}

	c.Created(map[string]any{"orders": orders})
}
