package repository

import (
	"context"
	"fmt"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
)

const updateCustomerAddressSQL = `UPDATE customers
	SET address_street = $2, address_number = $3, address_complement = $4, address_neighborhood = $5,
		address_city = $6, address_state = $7, address_zipcode = $8, updated_at = now()
	WHERE id = $1`

var _ customer.AddressWriter = (*CustomerRepository)(nil)

// CustomerRepository persists delivery customers' saved addresses.
type CustomerRepository struct {
	db DB
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(db DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// UpdateAddress replaces the saved address of a customer.
func (r *CustomerRepository) UpdateAddress(ctx context.Context, customerID string, a customer.Address) error {
	tag, err := r.db.Exec(ctx, updateCustomerAddressSQL, customerID,
		a.Street, a.Number, nullable(a.Complement), a.Neighborhood,
		a.City, a.State, nullable(a.Zipcode),
	)
	if err != nil {
		return fmt.Errorf("updating address of customer %q: %w", customerID, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}
