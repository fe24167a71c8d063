package controllers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/app/repositories"
	"github.com/feirahub/feira/pkg/ctx"
	"github.com/feirahub/feira/pkg/middleware"
	"github.com/feirahub/feira/pkg/storage"
)

const maxImageBytes = 5 << 20 // 5 MB

type ProductController struct {
	products *repositories.ProductRepository
	shops    *repositories.ShopRepository
}

func NewProductController(products *repositories.ProductRepository, shops *repositories.ShopRepository) *ProductController {
	return &ProductController{products: products, shops: shops}
}

// Index lists a shop's catalogue.
func (pc *ProductController) Index(c *ctx.Context) {
	shopID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	products, err := pc.products.ByShop(shopID)
	if err != nil {
		c.Error(http.StatusInternalServerError, "Could not load products")
		return
	}
	c.Success(products)
}

type productInput struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Description string  `json:"description" validate:"nullable,max=1000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	SKU         string  `json:"sku" validate:"nullable,alpha_dash,max=64"`
}

// Create adds a product to a shop the authenticated user owns.
func (pc *ProductController) Create(c *ctx.Context) {
	shopID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if !pc.ownsShop(c, shopID) {
		return
	}

	var in productInput
	if !c.BindJSON(&in) {
		return
	}

	product := models.Product{
		ShopID:      shopID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		SKU:         in.SKU,
	}
	if err := pc.products.Create(&product); err != nil {
		c.Error(http.StatusInternalServerError, "Could not create product")
		return
	}

	c.Created(product)
}

// Update edits a product in a shop the authenticated user owns.
func (pc *ProductController) Update(c *ctx.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	product, err := pc.products.FindByID(id)
	if err != nil {
		c.NotFound("Product not found")
		return
	}
	if !pc.ownsShop(c, product.ShopID) {
		return
	}

	var in productInput
	if !c.BindJSON(&in) {
		return
	}

	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.Stock = in.Stock
	product.SKU = in.SKU
	if err := pc.products.Save(&product); err != nil {
		c.Error(http.StatusInternalServerError, "Could not update product")
		return
	}

	c.Success(product)
}

// UploadImage stores a product photo on the configured disk and records its
// public URL on the product.
func (pc *ProductController) UploadImage(c *ctx.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	product, err := pc.products.FindByID(id)
	if err != nil {
		c.NotFound("Product not found")
		return
	}
	if !pc.ownsShop(c, product.ShopID) {
		return
	}

	if err := c.R.ParseMultipartForm(maxImageBytes); err != nil {
		c.Error(http.StatusBadRequest, "Invalid upload")
		return
	}
	file, header, err := c.R.FormFile("image")
	if err != nil {
		c.Error(http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		c.Error(http.StatusUnprocessableEntity, "Unsupported image type")
		return
	}

	path := fmt.Sprintf("products/%d/%d%s", product.ID, time.Now().UnixNano(), ext)
	if err := storage.PutStream(path, io.LimitReader(file, maxImageBytes)); err != nil {
		c.Error(http.StatusInternalServerError, "Could not store image")
		return
	}

	product.ImageURL = storage.URL(path)
	if err := pc.products.Save(&product); err != nil {
		c.Error(http.StatusInternalServerError, "Could not update product")
		return
	}

	c.Success(product)
}

// ownsShop verifies the authenticated user owns shopID, replying 403
// otherwise.
func (pc *ProductController) ownsShop(c *ctx.Context, shopID uint) bool {
	userID, _ := middleware.UserIDFromCtx(c.R)
	role, _ := middleware.RoleFromCtx(c.R)
	if role == models.RoleAdmin {
		return true
	}
	if !pc.shops.OwnedBy(userID, shopID) {
		c.Forbidden()
		return false
	}
	return true
}
