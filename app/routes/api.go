// Package routes mounts the storefront API onto the router.
package routes

import (
	"time"

	"github.com/feirahub/feira/app/controllers"
	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/ctx"
	"github.com/feirahub/feira/pkg/middleware"
	"github.com/feirahub/feira/pkg/rbac"
	"github.com/feirahub/feira/pkg/router"
)

// Controllers bundles every controller the API mounts.
type Controllers struct {
	Auth     *controllers.AuthController
	Shops    *controllers.ShopController
	Products *controllers.ProductController
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Orders   *controllers.OrderController
	Realtime *controllers.RealtimeController
	GraphQL  *controllers.GraphQLController
}

// RegisterAPI mounts all routes under /api. Role gates sit at the route
// level; finer ownership checks live in the services.
func RegisterAPI(r *router.Router, c Controllers) {
	api := r.Group("/api")

	// Credential endpoints get a tighter rate limit than the rest of the API.
	loginLimit := middleware.RateLimit(10, time.Minute)
	api.Post("/register", "auth.register", ctx.Wrap(c.Auth.Register), loginLimit)
	api.Post("/login", "auth.login", ctx.Wrap(c.Auth.Login), loginLimit)
	api.Post("/refresh", "auth.refresh", ctx.Wrap(c.Auth.Refresh), loginLimit)

	// Public catalogue.
	api.Get("/shops", "shops.index", ctx.Wrap(c.Shops.Index))
	api.Get("/shops/{id}", "shops.show", ctx.Wrap(c.Shops.Show))
	api.Get("/shops/{id}/products", "products.index", ctx.Wrap(c.Products.Index))
	api.Post("/graphql", "graphql", ctx.Wrap(c.GraphQL.Query))

	// The websocket endpoint authenticates inside the upgrade.
	api.Get("/ws", "realtime.connect", c.Realtime.Connect)

	authed := api.Group("", middleware.AuthMiddleware)
	authed.Get("/me", "auth.me", ctx.Wrap(c.Auth.Me))
	authed.Get("/orders/{id}", "orders.show", ctx.Wrap(c.Orders.Show))
	authed.Get("/orders/{id}/events", "orders.events", ctx.Wrap(c.Orders.Events))
	authed.Patch("/orders/{id}/status", "orders.status", ctx.Wrap(c.Orders.UpdateStatus))

	buyer := authed.Group("", rbac.HasRole(models.RoleBuyer))
	buyer.Get("/cart", "cart.show", ctx.Wrap(c.Cart.Show))
	buyer.Post("/cart/items", "cart.add", ctx.Wrap(c.Cart.Add))
	buyer.Patch("/cart/items/{productID}", "cart.update", ctx.Wrap(c.Cart.UpdateItem))
	buyer.Delete("/cart/items/{productID}", "cart.remove", ctx.Wrap(c.Cart.RemoveItem))
	buyer.Delete("/cart", "cart.clear", ctx.Wrap(c.Cart.Clear))
	buyer.Post("/checkout", "checkout", ctx.Wrap(c.Checkout.Checkout))
	buyer.Get("/orders", "orders.mine", ctx.Wrap(c.Orders.Mine))

	owner := authed.Group("", rbac.HasRole(models.RoleShopOwner, models.RoleAdmin))
	owner.Get("/my/shops", "shops.mine", ctx.Wrap(c.Shops.Mine))
	owner.Post("/shops", "shops.create", ctx.Wrap(c.Shops.Create))
	owner.Put("/shops/{id}", "shops.update", ctx.Wrap(c.Shops.Update))
	owner.Post("/shops/{id}/products", "products.create", ctx.Wrap(c.Products.Create))
	owner.Put("/products/{id}", "products.update", ctx.Wrap(c.Products.Update))
	owner.Post("/products/{id}/image", "products.image", ctx.Wrap(c.Products.UploadImage))
	owner.Get("/shops/{id}/orders", "orders.for_shop", ctx.Wrap(c.Orders.ForShop))
	owner.Post("/orders/{id}/assign", "orders.assign", ctx.Wrap(c.Orders.Assign))

	courier := authed.Group("", rbac.HasRole(models.RoleCourier))
	courier.Get("/deliveries", "orders.deliveries", ctx.Wrap(c.Orders.Deliveries))
}
