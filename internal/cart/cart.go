// Package cart implements the in-memory shopping cart for the current client
// process. The cart is deliberately ephemeral: it is not persisted across
// restarts and is cleared by checkout.
package cart

import (
	"sync"
	"time"

	"suitable-focus/internal/models"

	"github.com/google/uuid"
)

// Store owns the cart line items. All mutation goes through its methods;
// callers only ever see snapshots. Methods are safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	items []models.CartItem
}

// NewStore creates an empty cart store.
func NewStore() *Store {
	return &Store{}
}

// AddItem adds a purchasable line to the cart. If a line with the same ID
// already exists its quantity is incremented instead of adding a duplicate
// row. A zero or negative quantity on the candidate defaults to one. Always
// succeeds.
func (s *Store) AddItem(item models.CartItem) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Quantity += item.Quantity
			return
		}
	}

	s.items = append(s.items, item)
}

// RemoveItem deletes the line with the given ID. Removing an absent ID is a
// no-op, not an error.
func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
}

// SetQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line; an unknown ID leaves the cart unchanged.
func (s *Store) SetQuantity(id string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.remove(id)
		return
	}

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns a snapshot of the cart lines in insertion order. Mutating the
// returned slice does not affect the store.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]models.CartItem, len(s.items))
	copy(snapshot, s.items)
	return snapshot
}

// ItemCount returns the sum of all line quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// TotalPrice returns the sum of price times quantity over all lines, in
// cents. It is recomputed from the lines on every call so it can never drift
// from the cart contents.
func (s *Store) TotalPrice() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, item := range s.items {
		total += item.Subtotal()
	}
	return total
}

// Checkout produces an order summary from the current cart contents and
// clears the cart. There is no payment step; the order reference exists so
// the caller can show a confirmation. Returns models.ErrEmptyCart when there
// is nothing to check out.
func (s *Store) Checkout() (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil, models.ErrEmptyCart
	}

	order := &models.Order{
		Reference: uuid.NewString(),
		Items:     make([]models.CartItem, len(s.items)),
		PlacedAt:  time.Now(),
	}
	copy(order.Items, s.items)

	for _, item := range s.items {
		order.ItemCount += item.Quantity
		order.Total += item.Subtotal()
	}

	s.items = nil
	return order, nil
}

// remove deletes a line in place. Caller must hold s.mu.
func (s *Store) remove(id string) {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}
