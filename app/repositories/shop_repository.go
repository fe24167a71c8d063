package repositories

import (
	"time"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/cache"
	"github.com/feirahub/feira/pkg/orm"
)

const shopListCacheKey = "shops:open"

// ShopRepository handles database operations for Shop.
type ShopRepository struct{}

func NewShopRepository() *ShopRepository {
	return &ShopRepository{}
}

// AllOpen returns every open shop, served from redis when warm.
func (r *ShopRepository) AllOpen() ([]models.Shop, error) {
	var shops []models.Shop
	err := orm.DB().Model(&models.Shop{}).Where("open = ?", true).
		Cache(shopListCacheKey, 5*time.Minute, &shops)
	return shops, err
}

// FindByID looks up a shop by primary key.
func (r *ShopRepository) FindByID(id uint) (models.Shop, error) {
	var shop models.Shop
	err := orm.DB().Model(&models.Shop{}).Where("id = ?", id).First(&shop)
	return shop, err
}

// ByOwner returns all shops belonging to one owner.
func (r *ShopRepository) ByOwner(ownerID uint) ([]models.Shop, error) {
	var shops []models.Shop
	err := orm.DB().Model(&models.Shop{}).Where("owner_id = ?", ownerID).Get(&shops)
	return shops, err
}

// OwnedBy reports whether shopID belongs to ownerID. Drives shop-room
// authorization on the notification hub.
func (r *ShopRepository) OwnedBy(ownerID, shopID uint) bool {
	var n int64
	err := orm.DB().Model(&models.Shop{}).
		Where("id = ? AND owner_id = ?", shopID, ownerID).Count(&n)
	return err == nil && n > 0
}

// Create persists a new shop and invalidates the shop listing cache.
func (r *ShopRepository) Create(shop *models.Shop) error {
	if err := orm.DB().Create(shop); err != nil {
		return err
	}
	cache.Del(shopListCacheKey)
	return nil
}

// Save persists changes to an existing shop.
func (r *ShopRepository) Save(shop *models.Shop) error {
	if err := orm.DB().Save(shop); err != nil {
		return err
	}
	cache.Del(shopListCacheKey)
	return nil
}
