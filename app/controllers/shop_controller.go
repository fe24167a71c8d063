package controllers

import (
	"net/http"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/app/repositories"
	"github.com/feirahub/feira/pkg/ctx"
	"github.com/feirahub/feira/pkg/middleware"
)

type ShopController struct {
	shops    *repositories.ShopRepository
	products *repositories.ProductRepository
}

func NewShopController(shops *repositories.ShopRepository, products *repositories.ProductRepository) *ShopController {
	return &ShopController{shops: shops, products: products}
}

// Index lists every open shop.
func (sc *ShopController) Index(c *ctx.Context) {
	shops, err := sc.shops.AllOpen()
	if err != nil {
		c.Error(http.StatusInternalServerError, "Could not load shops")
		return
	}
	c.Success(shops)
}

// Show returns one shop with its catalogue.
func (sc *ShopController) Show(c *ctx.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	shop, err := sc.shops.FindByID(id)
	if err != nil {
		c.NotFound("Shop not found")
		return
	}

	products, err := sc.products.ByShop(id)
	if err != nil {
		c.Error(http.StatusInternalServerError, "Could not load products")
		return
	}

	c.Success(map[string]any{"shop": shop, "products": products})
}

// Mine lists the shops owned by the authenticated shop owner.
func (sc *ShopController) Mine(c *ctx.Context) {
	userID, _ := middleware.UserIDFromCtx(c.R)

	shops, err := sc.shops.ByOwner(userID)
	if err != nil {
		c.Error(http.StatusInternalServerError, "Could not load shops")
		return
	}
	c.Success(shops)
}

type shopInput struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description" validate:"nullable,max=1000"`
	Address     string `json:"address" validate:"required,max=512"`
	Open        bool   `json:"open"`
}

// Create registers a new shop for the authenticated owner.
func (sc *ShopController) Create(c *ctx.Context) {
	var in shopInput
	if !c.BindJSON(&in) {
		return
	}

	userID, _ := middleware.UserIDFromCtx(c.R)
	shop := models.Shop{
		OwnerID:     userID,
		Name:        in.Name,
		Description: in.Description,
		Address:     in.Address,
		Open:        in.Open,
	}
	if err := sc.shops.Create(&shop); err != nil {
		c.Error(http.StatusInternalServerError, "Could not create shop")
		return
	}

	c.Created(shop)
}

// Update edits a shop the authenticated user owns, including the open flag.
func (sc *ShopController) Update(c *ctx.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var in shopInput
	if !c.BindJSON(&in) {
		return
	}

	userID, _ := middleware.UserIDFromCtx(c.R)
	shop, err := sc.shops.FindByID(id)
	if err != nil {
		c.NotFound("Shop not found")
		return
	}
	if shop.OwnerID != userID {
		c.Forbidden()
		return
	}

	shop.Name = in.Name
	shop.Description = in.Description
	shop.Address = in.Address
	shop.Open = in.Open
	if err := sc.shops.Save(&shop); err != nil {
		c.Error(http.StatusInternalServerError, "Could not update shop")
		return
	}

	c.Success(shop)
}
