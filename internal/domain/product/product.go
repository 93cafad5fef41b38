package product

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is a menu item of a restaurant.
type Product struct {
	ID           string
	RestaurantID string
	Name         string
	Price        decimal.Decimal
	Active       bool
}

// Repository defines read operations for a restaurant's catalog.
type Repository interface {
	// GetByIDs returns the products of restaurantID whose id is in ids.
	// Unknown ids are silently skipped.
	GetByIDs(ctx context.Context, restaurantID string, ids []string) ([]Product, error)
}
