package client

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/Kmzf777/foodshorts/internal/domain/order"
)

// ErrUnknownOrder is returned for orders the board has not loaded.
var ErrUnknownOrder = errors.New("order is not on the board")

// Board is the dashboard view of a restaurant's orders. A displayed status
// changes only after the server acknowledged the update.
type Board struct {
	client *Client

	mu     sync.RWMutex
	orders []order.Order
	index  map[string]int
}

// NewBoard returns an empty board backed by c.
func NewBoard(c *Client) *Board {
	return &Board{client: c, index: map[string]int{}}
}

// Refresh reloads the board from the server.
func (b *Board) Refresh(ctx context.Context, f order.ListFilter) error {
	orders, err := b.client.ListOrders(ctx, f)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		index[o.ID] = i
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders, b.index = orders, index
	return nil
}

// Orders returns the displayed orders, newest first.
func (b *Board) Orders() []order.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]order.Order(nil), b.orders...)
}

// Order returns the displayed order with id.
func (b *Board) Order(id string) (order.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i, ok := b.index[id]
	if !ok {
		return order.Order{}, false
	}
	return b.orders[i], true
}

// SetStatus asks the server to move the order to status, guarded by the
// displayed version. On failure the displayed order is left as it was.
func (b *Board) SetStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	cur, ok := b.Order(id)
	if !ok {
		return order.Order{}, ErrUnknownOrder
	}
	updated, err := b.client.UpdateStatus(ctx, id, status, cur.Version)
	if err != nil {
		return cur, errors.Wrapf(err, "set order %d to %s", cur.Number, status)
	}
	return b.replace(updated), nil
}

// Advance moves the order to its next status in the flow.
func (b *Board) Advance(ctx context.Context, id string) (order.Order, error) {
	cur, ok := b.Order(id)
	if !ok {
		return order.Order{}, ErrUnknownOrder
	}
	updated, err := b.client.Advance(ctx, id, cur.Version)
	if err != nil {
		return cur, errors.Wrapf(err, "advance order %d", cur.Number)
	}
	return b.replace(updated), nil
}

// replace swaps in the acknowledged order. Items are kept when the response
// carries none.
func (b *Board) replace(o *order.Order) order.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[o.ID]
	if !ok {
		b.index[o.ID] = len(b.orders)
		b.orders = append(b.orders, *o)
		return *o
	}
	if len(o.Items) == 0 {
		o.Items = b.orders[i].Items
	}
	b.orders[i] = *o
	return *o
}
