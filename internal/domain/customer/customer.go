// Package customer holds the delivery customer identity and address types.
package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Address is a postal address. It is used both as a customer's saved address
// and as the delivery snapshot embedded in an order.
type Address struct {
	Street       string
	Number       string
	Complement   string
	Neighborhood string
	City         string
	State        string
	Zipcode      string
}

// Customer is an authenticated delivery customer.
type Customer struct {
	ID       string
	Name     string
	CPF      string
	Phone    string
	WhatsApp string
	Email    string
	Address  *Address
}

// AddressWriter persists a customer's saved address.
type AddressWriter interface {
	UpdateAddress(ctx context.Context, customerID string, addr Address) error
}
