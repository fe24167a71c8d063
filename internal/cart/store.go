package cart

import (
	"sync"
	"time"
)

// Store hands out one cart per user ID. Carts live only in process memory:
// a restart empties every cart, and two devices logged into the same account
// see the same cart only while they hit the same process.
type Store struct {
	mu    sync.Mutex
	carts map[uint]*Cart
}

// NewStore returns an empty cart store.
func NewStore() *Store {
	return &Store{carts: make(map[uint]*Cart)}
}

// Get returns the cart for userID, creating it on first use.
func (s *Store) Get(userID uint) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		c = New()
		s.carts[userID] = c
	}
	return c
}

// Drop discards the cart for userID, if any. Called on logout.
func (s *Store) Drop(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}

// Sweep discards carts that have not been touched within maxIdle and returns
// how many were removed. Run periodically so abandoned carts do not pin
// memory for the life of the process.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.carts {
		if c.LastTouched().Before(cutoff) {
			delete(s.carts, id)
			removed++
		}
	}
	return removed
}
