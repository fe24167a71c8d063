package services

import (
	"errors"
	"sort"
	"sync"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/internal/cart"
	"github.com/feirahub/feira/pkg/workerpool"
)

var ErrEmptyCart = errors.New("checkout: cart is empty")

// OrderPlacer is the slice of OrderService that checkout needs.
type OrderPlacer interface {
	PlaceOrder(buyerID, shopID uint, lines []cart.Line, address, payment, notes string) (models.Order, error)
}

// CheckoutService turns a multi-shop cart into one order per shop. Per-shop
// submissions run concurrently on a bounded pool and are awaited jointly.
//
// There is no cross-shop rollback: orders that were placed before another
// shop's submission failed stay placed. The cart is only cleared when every
// shop succeeded, so a partial failure leaves the remaining lines in place
// for the buyer to retry.
type CheckoutService struct {
	placer OrderPlacer
	carts  *cart.Store
	pool   *workerpool.Pool
}

func NewCheckoutService(placer OrderPlacer, carts *cart.Store, pool *workerpool.Pool) *CheckoutService {
	return &CheckoutService{placer: placer, carts: carts, pool: pool}
}

// Checkout places one order per shop represented in the buyer's cart and
// returns the orders that were successfully placed. The returned error joins
// every per-shop failure.
func (s *CheckoutService) Checkout(buyerID uint, address, payment, notes string) ([]models.Order, error) {
	c := s.carts.Get(buyerID)
	groups := c.GroupByShop()
	if len(groups) == 0 {
		return nil, ErrEmptyCart
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		orders []models.Order
		errs   []error
	)

	for shopID, lines := range groups {
		shopID, lines := shopID, lines
		wg.Add(1)
		task := func() {
			defer wg.Done()
			order, err := s.placer.PlaceOrder(buyerID, shopID, lines, address, payment, notes)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			orders = append(orders, order)
		}
		if err := s.pool.SubmitWait(task); err != nil {
			// Pool shut down mid-checkout; run inline so the buyer still
			// gets a definite outcome for this shop.
			task()
		}
	}
	wg.Wait()

	sort.Slice(orders, func(i, j int) bool { return orders[i].ShopID < orders[j].ShopID })

	if len(errs) > 0 {
		return orders, errors.Join(errs...)
	}

	c.Clear()
	return orders, nil
}
