package services_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/app/repositories"
	"github.com/feirahub/feira/app/services"
	"github.com/feirahub/feira/internal/cart"
	"github.com/feirahub/feira/pkg/database"
)

// orderFixture points the shared gorm handle at a throwaway in-memory
// database and returns a service wired to it.
func orderFixture(t *testing.T) *services.OrderService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps sqlite happy under concurrent callers; the
	// statements of two goroutines still interleave.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Shop{}, &models.Product{},
		&models.Order{}, &models.OrderItem{},
	))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	return services.NewOrderService(
		repositories.NewOrderRepository(),
		repositories.NewShopRepository(),
		repositories.NewUserRepository(),
	)
}

func seedUser(t *testing.T, role string) models.User {
	t.Helper()
	u := models.User{Name: role, Email: role + "@feira.test", Password: "x", Role: role}
	require.NoError(t, database.DB.Create(&u).Error)
	return u
}

func seedShop(t *testing.T, ownerID uint, open bool) models.Shop {
	t.Helper()
	s := models.Shop{OwnerID: ownerID, Name: "shop", Open: open}
	require.NoError(t, database.DB.Create(&s).Error)
	return s
}

func line(productID uint, price float64) cart.Line {
	return cart.Line{
		Product:  models.Product{Model: gorm.Model{ID: productID}, Price: price},
		Quantity: 1,
	}
}

func TestConcurrentPlaceOrderNumbersUnique(t *testing.T) {
	svc := orderFixture(t)
	buyer := seedUser(t, models.RoleBuyer)
	owner := seedUser(t, models.RoleShopOwner)

	shops := make([]models.Shop, 8)
	for i := range shops {
		shops[i] = seedShop(t, owner.ID, true)
	}

	// A multi-shop checkout submits every shop's order concurrently. Each
	// submission must be accepted with its own number.
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
		errs    []error
	)
	for i, sh := range shops {
		wg.Add(1)
		go func(shopID, productID uint) {
			defer wg.Done()
			order, err := svc.PlaceOrder(buyer.ID, shopID,
				[]cart.Line{line(productID, 10)}, "Rua A 1", "pix", "")

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[order.Number] = true
		}(sh.ID, uint(i+1))
	}
	wg.Wait()

	require.Empty(t, errs, "every shop submission must be accepted")
	assert.Len(t, numbers, len(shops), "order numbers must not collide")
}

func TestPlaceOrderRejectsClosedShop(t *testing.T) {
	svc := orderFixture(t)
	buyer := seedUser(t, models.RoleBuyer)
	owner := seedUser(t, models.RoleShopOwner)
	shop := seedShop(t, owner.ID, false)

	_, err := svc.PlaceOrder(buyer.ID, shop.ID, []cart.Line{line(1, 10)}, "Rua A 1", "pix", "")
	assert.ErrorIs(t, err, services.ErrShopClosed)
}

func TestAssignCourierRejectsClosedOrders(t *testing.T) {
	svc := orderFixture(t)
	buyer := seedUser(t, models.RoleBuyer)
	owner := seedUser(t, models.RoleShopOwner)
	courier := seedUser(t, models.RoleCourier)
	shop := seedShop(t, owner.ID, true)

	order, err := svc.PlaceOrder(buyer.ID, shop.ID, []cart.Line{line(1, 10)}, "Rua A 1", "pix", "")
	require.NoError(t, err)

	setStatus := func(status string) {
		require.NoError(t, database.DB.Model(&models.Order{}).
			Where("id = ?", order.ID).Update("status", status).Error)
	}

	setStatus(models.StatusDelivered)
	_, err = svc.AssignCourier(order.ID, courier.ID, owner.ID, models.RoleShopOwner)
	assert.ErrorIs(t, err, services.ErrOrderClosed)

	setStatus(models.StatusCancelled)
	_, err = svc.AssignCourier(order.ID, courier.ID, owner.ID, models.RoleShopOwner)
	assert.ErrorIs(t, err, services.ErrOrderClosed)

	// An in-flight order still accepts assignment.
	setStatus(models.StatusAccepted)
	assigned, err := svc.AssignCourier(order.ID, courier.ID, owner.ID, models.RoleShopOwner)
	require.NoError(t, err)
	require.NotNil(t, assigned.CourierID)
	assert.Equal(t, courier.ID, *assigned.CourierID)
}

func TestAssignCourierRejectsNonCourier(t *testing.T) {
	svc := orderFixture(t)
	buyer := seedUser(t, models.RoleBuyer)
	owner := seedUser(t, models.RoleShopOwner)
	shop := seedShop(t, owner.ID, true)

	order, err := svc.PlaceOrder(buyer.ID, shop.ID, []cart.Line{line(1, 10)}, "Rua A 1", "pix", "")
	require.NoError(t, err)

	_, err = svc.AssignCourier(order.ID, buyer.ID, owner.ID, models.RoleShopOwner)
	assert.ErrorIs(t, err, services.ErrNotCourier)
}
