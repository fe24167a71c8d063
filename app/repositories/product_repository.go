package repositories

import (
	"fmt"
	"time"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/cache"
	"github.com/feirahub/feira/pkg/orm"
)

func productCacheKey(shopID uint) string {
	return fmt.Sprintf("products:shop:%d", shopID)
}

// ProductRepository handles database operations for Product.
type ProductRepository struct{}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{}
}

// ByShop returns a shop's catalogue, served from redis when warm.
func (r *ProductRepository) ByShop(shopID uint) ([]models.Product, error) {
	var products []models.Product
	err := orm.DB().Model(&models.Product{}).Where("shop_id = ?", shopID).
		Cache(productCacheKey(shopID), time.Minute, &products)
	return products, err
}

// FindByID looks up a product by primary key.
func (r *ProductRepository) FindByID(id uint) (models.Product, error) {
	var product models.Product
	err := orm.DB().Model(&models.Product{}).Where("id = ?", id).First(&product)
	return product, err
}

// FindByIDs returns the products matching ids, in no particular order.
func (r *ProductRepository) FindByIDs(ids []uint) ([]models.Product, error) {
	var products []models.Product
	err := orm.DB().Model(&models.Product{}).Where("id IN ?", ids).Get(&products)
	return products, err
}

// Create persists a new product and invalidates its shop's catalogue cache.
func (r *ProductRepository) Create(product *models.Product) error {
	if err := orm.DB().Create(product); err != nil {
		return err
	}
	cache.Del(productCacheKey(product.ShopID))
	return nil
}

// Save persists changes to an existing product.
func (r *ProductRepository) Save(product *models.Product) error {
	if err := orm.DB().Save(product); err != nil {
		return err
	}
	cache.Del(productCacheKey(product.ShopID))
	return nil
}
