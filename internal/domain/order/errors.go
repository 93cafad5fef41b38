package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for order submission and status changes.
var (
	ErrRestaurantNotFound      = errors.New("restaurant not found")
	ErrRestaurantInactive      = errors.New("restaurant is not active")
	ErrNotFound                = errors.New("order not found")
	ErrTerminalStatus          = errors.New("order is already finished")
	ErrNoNextStatus            = errors.New("order has no next status")
	ErrVersionConflict         = errors.New("order was modified by someone else")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrIdempotencyKeyExpired   = errors.New("idempotency key expired")
	ErrIdempotencyKeyReused    = errors.New("idempotency key was already used for a different order")
)

// ValidationError reports the first field of a submission that violates the
// payload rules.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// InvalidStatusError is returned for an unknown status value.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Value)
}

// DeliveryAreaError indicates the delivery city is outside the restaurant's
// service city.
type DeliveryAreaError struct {
	RestaurantCity string
	DeliveryCity   string
}

func (e *DeliveryAreaError) Error() string {
	return fmt.Sprintf("we do not deliver to %s, this restaurant only serves %s", e.DeliveryCity, e.RestaurantCity)
}

// StaleCartError indicates the cart references products that no longer exist.
type StaleCartError struct {
	ProductIDs []string
}

func (e *StaleCartError) Error() string {
	return fmt.Sprintf("cart is out of date: products %s are no longer available, refresh the menu and rebuild the cart",
		strings.Join(e.ProductIDs, ", "))
}

// PersistenceError wraps a storage failure during order creation. Any order
// row written before the failure has been removed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
