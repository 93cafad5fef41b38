package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Kmzf777/foodshorts/internal/domain/product"
)

const getProductsByIDsSQL = `SELECT id, restaurant_id, name, price, is_active
	FROM products WHERE restaurant_id = $1 AND id = ANY($2::uuid[])`

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByIDs returns the products of a restaurant matching any of the given
// IDs, active or not.
func (r *ProductRepository) GetByIDs(ctx context.Context, restaurantID string, ids []string) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, getProductsByIDsSQL, restaurantID, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.RestaurantID, &p.Name, &p.Price, &p.Active)
	return p, err
}
