package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
)

// Origin tells where an order was placed from.
type Origin string

const (
	OriginTable    Origin = "table"
	OriginDelivery Origin = "delivery"
)

// PaymentMethod is how a delivery order is paid on arrival.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit"
	PaymentDebit  PaymentMethod = "debit"
	PaymentPix    PaymentMethod = "pix"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCredit, PaymentDebit, PaymentPix:
		return true
	}
	return false
}

// Order is a persisted customer order.
type Order struct {
	ID           string
	RestaurantID string
	Number       int64
	Origin       Origin

	// Table orders.
	TableNumber   *int
	CustomerName  string
	CustomerPhone string

	// Delivery orders.
	CustomerID      string
	PaymentMethod   PaymentMethod
	DeliveryAddress *customer.Address

	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal

	Status         Status
	Version        int
	IdempotencyKey string

	// IdempotencyFingerprint identifies the submission that used
	// IdempotencyKey. See Submission.Fingerprint.
	IdempotencyFingerprint string

	CreatedAt   time.Time
	ConfirmedAt *time.Time
	CompletedAt *time.Time

	Items []Item
}

// Item is an immutable snapshot of a cart line taken at order time.
type Item struct {
	ID      string
	OrderID string
	// ProductID is empty once the product has been deleted from the catalog.
	ProductID    string
	ProductName  string
	ProductPrice decimal.Decimal
	Quantity     int
	Subtotal     decimal.Decimal
	Notes        string
}

// ListFilter narrows the dashboard order listing.
type ListFilter struct {
	Status Status
	Limit  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts o without items and assigns o.Number and o.CreatedAt.
	// It returns ErrDuplicateIdempotencyKey when the key is already taken.
	Create(ctx context.Context, o *Order) error
	// AddItems inserts all items of an order, all or nothing.
	AddItems(ctx context.Context, orderID string, items []Item) error
	// Delete removes an order together with its items.
	Delete(ctx context.Context, id string) error
	// Get returns the order with its items, or ErrNotFound.
	Get(ctx context.Context, id string) (*Order, error)
	// List returns orders of a restaurant, newest first, without items.
	List(ctx context.Context, restaurantID string, f ListFilter) ([]Order, error)
	// FindByIdempotencyKey returns the order created with key, or ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, restaurantID, key string) (*Order, error)
	// UpdateStatus persists status and lifecycle timestamps of o and bumps
	// its version. A non-zero expectedVersion must match the stored version,
	// otherwise ErrVersionConflict is returned.
	UpdateStatus(ctx context.Context, o *Order, expectedVersion int) error
}

// AtomicCreator is implemented by repositories that can store an order and
// its items in one transaction. It assigns o.Number and o.CreatedAt like
// Create and returns ErrDuplicateIdempotencyKey the same way.
type AtomicCreator interface {
	CreateWithItems(ctx context.Context, o *Order) error
}

// Events receives order lifecycle notifications.
type Events interface {
	OrderCreated(ctx context.Context, o *Order) error
	StatusChanged(ctx context.Context, o *Order, from Status) error
}

type nopEvents struct{}

func (nopEvents) OrderCreated(context.Context, *Order) error          { return nil }
func (nopEvents) StatusChanged(context.Context, *Order, Status) error { return nil }
