package models

import "time"

// ItemKind tags a cart line as an event ticket or a service booking.
type ItemKind string

const (
	ItemKindEvent   ItemKind = "event"
	ItemKindService ItemKind = "service"
)

// CartItem represents one purchasable line in the shopping cart. Price is in
// cents so totals never accumulate floating-point drift.
type CartItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int      `json:"price"` // in cents
	Quantity int      `json:"quantity"`
	Kind     ItemKind `json:"kind"`
	ImageRef string   `json:"image_ref,omitempty"`
}

// Subtotal returns price times quantity for this line, in cents.
func (i CartItem) Subtotal() int {
	return i.Price * i.Quantity
}

// Order is the summary produced by a simulated checkout. No payment gateway
// is involved; the reference exists so the caller can present a confirmation.
type Order struct {
	Reference string     `json:"reference"`
	Items     []CartItem `json:"items"`
	ItemCount int        `json:"item_count"`
	Total     int        `json:"total"` // in cents
	PlacedAt  time.Time  `json:"placed_at"`
}
