package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/Kmzf777/foodshorts/internal/domain/restaurant"
)

const (
	restaurantColumns = `id, owner_id, slug, name, plan_status, city`

	getRestaurantBySlugSQL  = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE slug = $1`
	getRestaurantByOwnerSQL = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE owner_id = $1`
)

var _ restaurant.Repository = (*RestaurantRepository)(nil)

// RestaurantRepository implements restaurant.Repository backed by PostgreSQL.
type RestaurantRepository struct {
	db DB
}

// NewRestaurantRepository returns a RestaurantRepository that uses the given pool.
func NewRestaurantRepository(db DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

// GetBySlug returns the restaurant published under slug.
func (r *RestaurantRepository) GetBySlug(ctx context.Context, slug string) (*restaurant.Restaurant, error) {
	return r.queryOne(ctx, getRestaurantBySlugSQL, slug)
}

// GetByOwner returns the restaurant owned by the user ownerID.
func (r *RestaurantRepository) GetByOwner(ctx context.Context, ownerID string) (*restaurant.Restaurant, error) {
	return r.queryOne(ctx, getRestaurantByOwnerSQL, ownerID)
}

func (r *RestaurantRepository) queryOne(ctx context.Context, query string, arg string) (*restaurant.Restaurant, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting restaurant %q: %w", arg, err)
	}
	rest, err := pgx.CollectExactlyOneRow(rows, scanRestaurant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, restaurant.ErrNotFound
		}
		return nil, fmt.Errorf("getting restaurant %q: %w", arg, err)
	}
	return &rest, nil
}

func scanRestaurant(row pgx.CollectableRow) (restaurant.Restaurant, error) {
	var (
		rest       restaurant.Restaurant
		planStatus string
		city       *string
	)
	err := row.Scan(&rest.ID, &rest.OwnerID, &rest.Slug, &rest.Name, &planStatus, &city)
	rest.PlanStatus = restaurant.PlanStatus(planStatus)
	rest.City = deref(city)
	return rest, err
}
