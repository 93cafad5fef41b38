package client

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kmzf777/foodshorts/internal/cart"
	"github.com/Kmzf777/foodshorts/internal/domain/customer"
	"github.com/Kmzf777/foodshorts/internal/domain/order"
	"github.com/Kmzf777/foodshorts/internal/session"
)

// Sentinel checkout errors. Both are detected before any request is sent.
var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNotAuthenticated = errors.New("log in to place a delivery order")
)

// CheckoutInput is what the checkout form adds to the cart.
type CheckoutInput struct {
	// Table orders.
	CustomerName  string
	CustomerPhone string

	// Delivery orders. A nil Address falls back to the customer's saved one.
	PaymentMethod order.PaymentMethod
	Address       *customer.Address
	SaveAddress   bool

	// IdempotencyKey identifies this attempt. Reuse it when retrying after a
	// timeout; empty generates a fresh key.
	IdempotencyKey string
}

// Checkout submits the cart. The cart is cleared only after the server
// accepted the order. For delivery orders with SaveAddress set, the session
// customer's address is updated too.
func Checkout(ctx context.Context, c *Client, crt *cart.Cart, sess *session.Session, in CheckoutInput) (order.Receipt, error) {
	sub, err := buildSubmission(crt.Snapshot(), crt.Lines(), sess, in)
	if err != nil {
		return order.Receipt{}, err
	}
	key := in.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	receipt, err := c.SubmitOrder(ctx, sub, key)
	if err != nil {
		return order.Receipt{}, err
	}

	lg := zctx.From(ctx)
	if err := crt.Clear(); err != nil {
		lg.Warn("Clear cart after checkout", zap.Error(err))
	}
	if d, ok := sub.Details.(order.DeliveryDetails); ok && d.SaveAddress {
		addr := d.Address
		if err := sess.UpdateCustomer(session.Patch{Address: &addr}); err != nil {
			lg.Warn("Save address to session", zap.Error(err))
		}
	}
	return receipt, nil
}

func buildSubmission(state cart.State, lines []order.Line, sess *session.Session, in CheckoutInput) (order.Submission, error) {
	if len(lines) == 0 {
		return order.Submission{}, ErrEmptyCart
	}
	sub := order.Submission{
		RestaurantSlug: state.RestaurantSlug,
		Items:          lines,
	}
	switch state.Origin {
	case order.OriginTable:
		d := order.TableDetails{
			CustomerName:  in.CustomerName,
			CustomerPhone: in.CustomerPhone,
		}
		if state.TableNumber != nil {
			d.TableNumber = *state.TableNumber
		}
		sub.Details = d
	case order.OriginDelivery:
		cust := sess.Customer()
		if !sess.IsAuthenticated() || cust == nil {
			return order.Submission{}, ErrNotAuthenticated
		}
		addr := in.Address
		if addr == nil {
			addr = cust.Address
		}
		if addr == nil {
			return order.Submission{}, &order.ValidationError{Field: "deliveryAddress", Message: "is required"}
		}
		sub.Details = order.DeliveryDetails{
			CustomerID:    cust.ID,
			PaymentMethod: in.PaymentMethod,
			Address:       *addr,
			SaveAddress:   in.SaveAddress,
		}
	default:
		return order.Submission{}, errors.Errorf("unknown cart origin %q", state.Origin)
	}
	if err := sub.Validate(); err != nil {
		return order.Submission{}, err
	}
	return sub, nil
}
