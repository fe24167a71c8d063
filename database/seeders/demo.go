package seeders

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/pkg/auth"
)

func init() {
	Register("users", SeedUsers)
	Register("shops", SeedShops)
	Register("products", SeedProducts)
}

// SeedUsers creates one demo account per role. Password is "password" for
// all of them.
func SeedUsers(db *gorm.DB) error {
	hash, err := auth.HashPassword("password")
	if err != nil {
		return err
	}

	users := []models.User{
		{Name: "Ana Buyer", Email: "ana@feira.test", Password: hash, Role: models.RoleBuyer},
		{Name: "Bruno Owner", Email: "bruno@feira.test", Password: hash, Role: models.RoleShopOwner},
		{Name: "Carla Courier", Email: "carla@feira.test", Password: hash, Role: models.RoleCourier},
		{Name: "Dora Admin", Email: "dora@feira.test", Password: hash, Role: models.RoleAdmin},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&users).Error
}

// SeedShops creates two demo shops for the demo owner.
func SeedShops(db *gorm.DB) error {
	var owner models.User
	if err := db.Where("role = ?", models.RoleShopOwner).First(&owner).Error; err != nil {
		return err
	}

	shops := []models.Shop{
		{OwnerID: owner.ID, Name: "Quitanda da Esquina", Description: "Fruit and vegetables", Address: "Rua das Flores 12", Open: true},
		{OwnerID: owner.ID, Name: "Padaria Central", Description: "Bakery", Address: "Av. Principal 230", Open: true},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&shops).Error
}

// SeedProducts stocks the demo shops.
func SeedProducts(db *gorm.DB) error {
	var shops []models.Shop
	if err := db.Limit(2).Find(&shops).Error; err != nil {
		return err
	}
	if len(shops) < 2 {
		return nil
	}

	products := []models.Product{
		{ShopID: shops[0].ID, Name: "Banana prata (kg)", Price: 6.5, Stock: 120, SKU: "BAN-001"},
		{ShopID: shops[0].ID, Name: "Tomate (kg)", Price: 8.9, Stock: 80, SKU: "TOM-001"},
		{ShopID: shops[1].ID, Name: "Pão francês (unid)", Price: 1.2, Stock: 500, SKU: "PAO-001"},
		{ShopID: shops[1].ID, Name: "Bolo de fubá", Price: 22.0, Stock: 10, SKU: "BOL-001"},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&products).Error
}
