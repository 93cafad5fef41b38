package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
	"github.com/Kmzf777/foodshorts/internal/domain/order"
)

const (
	orderColumns = `id, restaurant_id, order_number, origin, table_number, customer_name, customer_phone,
		customer_id, payment_method, delivery_street, delivery_number, delivery_complement,
		delivery_neighborhood, delivery_city, delivery_state, delivery_zipcode,
		subtotal, delivery_fee, total, status, version, idempotency_key, request_fingerprint,
		created_at, confirmed_at, completed_at`

	nextOrderNumberSQL = `INSERT INTO restaurant_order_sequence (restaurant_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (restaurant_id)
		DO UPDATE SET last_number = restaurant_order_sequence.last_number + 1
		RETURNING last_number`

	insertOrderSQL = `INSERT INTO orders (id, restaurant_id, order_number, origin, table_number,
		customer_name, customer_phone, customer_id, payment_method,
		delivery_street, delivery_number, delivery_complement, delivery_neighborhood,
		delivery_city, delivery_state, delivery_zipcode,
		subtotal, delivery_fee, total, status, version, idempotency_key, request_fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23)
		RETURNING created_at`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, position, product_id, product_name, product_price,
		quantity, subtotal, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT id, order_id, product_id, product_name, product_price, quantity, subtotal, notes
		FROM order_items WHERE order_id = $1 ORDER BY position`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE restaurant_id = $1 AND ($2::text = '' OR status = $2)
		ORDER BY created_at DESC, order_number DESC
		LIMIT $3`

	findByIdempotencyKeySQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE restaurant_id = $1 AND idempotency_key = $2`

	updateOrderStatusSQL = `UPDATE orders
		SET status = $2,
			confirmed_at = COALESCE(confirmed_at, $3),
			completed_at = COALESCE(completed_at, $4),
			version = version + 1
		WHERE id = $1 AND ($5::int = 0 OR version = $5)
		RETURNING version, confirmed_at, completed_at`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	idempotencyKeyIndex = "orders_idempotency_key_idx"
)

var (
	_ order.Repository    = (*OrderRepository)(nil)
	_ order.AtomicCreator = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order row and assigns the next per-restaurant order
// number in the same transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.inTx(ctx, "create order", func(tx pgx.Tx) error {
		return insertOrder(ctx, tx, o)
	})
}

// AddItems inserts all items in one transaction.
func (r *OrderRepository) AddItems(ctx context.Context, orderID string, items []order.Item) error {
	return r.inTx(ctx, "add items", func(tx pgx.Tx) error {
		return insertItems(ctx, tx, orderID, items)
	})
}

// CreateWithItems inserts the order row, its number and all of its items in
// one transaction.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *order.Order) error {
	number, createdAt := o.Number, o.CreatedAt
	err := r.inTx(ctx, "create order", func(tx pgx.Tx) error {
		if err := insertOrder(ctx, tx, o); err != nil {
			return err
		}
		return insertItems(ctx, tx, o.ID, o.Items)
	})
	if err != nil {
		// Nothing was stored.
		o.Number, o.CreatedAt = number, createdAt
		return err
	}
	return nil
}

func (r *OrderRepository) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}

// insertOrder assigns the order number and inserts the order row. o.Number
// and o.CreatedAt are set on success.
func insertOrder(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	var number int64
	if err := tx.QueryRow(ctx, nextOrderNumberSQL, o.RestaurantID).Scan(&number); err != nil {
		return fmt.Errorf("next order number: %w", err)
	}

	var addr customer.Address
	if o.DeliveryAddress != nil {
		addr = *o.DeliveryAddress
	}
	var createdAt time.Time
	err := tx.QueryRow(ctx, insertOrderSQL,
		o.ID, o.RestaurantID, number, string(o.Origin), o.TableNumber,
		nullable(o.CustomerName), nullable(o.CustomerPhone), nullable(o.CustomerID), nullable(string(o.PaymentMethod)),
		nullable(addr.Street), nullable(addr.Number), nullable(addr.Complement), nullable(addr.Neighborhood),
		nullable(addr.City), nullable(addr.State), nullable(addr.Zipcode),
		o.Subtotal, o.DeliveryFee, o.Total, string(o.Status), o.Version, nullable(o.IdempotencyKey),
		nullable(o.IdempotencyFingerprint),
	).Scan(&createdAt)
	if err != nil {
		if isUniqueViolation(err, idempotencyKeyIndex) {
			return order.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	o.Number = number
	o.CreatedAt = createdAt
	return nil
}

func insertItems(ctx context.Context, tx pgx.Tx, orderID string, items []order.Item) error {
	for i, it := range items {
		_, err := tx.Exec(ctx, insertOrderItemSQL,
			it.ID, orderID, i, nullable(it.ProductID), it.ProductName, it.ProductPrice,
			it.Quantity, it.Subtotal, nullable(it.Notes),
		)
		if err != nil {
			return fmt.Errorf("inserting item %q of order %q: %w", it.ID, orderID, err)
		}
	}
	return nil
}

// Delete removes an order. Items go with it through ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, deleteOrderSQL, id); err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	return nil
}

// Get returns an order with its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := r.queryOne(ctx, getOrderSQL, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", id, err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", id, err)
	}
	o.Items = items
	return o, nil
}

// List returns the newest orders of a restaurant without their items.
func (r *OrderRepository) List(ctx context.Context, restaurantID string, f order.ListFilter) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL, restaurantID, string(f.Status), f.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// FindByIdempotencyKey returns the order a restaurant created with key.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, restaurantID, key string) (*order.Order, error) {
	return r.queryOne(ctx, findByIdempotencyKeySQL, restaurantID, key)
}

// UpdateStatus writes status and lifecycle timestamps. Stored timestamps are
// never overwritten.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order, expectedVersion int) error {
	var (
		version               int
		confirmedAt, complete *time.Time
	)
	err := r.db.QueryRow(ctx, updateOrderStatusSQL,
		o.ID, string(o.Status), o.ConfirmedAt, o.CompletedAt, expectedVersion,
	).Scan(&version, &confirmedAt, &complete)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missingOrConflict(ctx, o.ID, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", o.ID, err)
	}
	o.Version = version
	o.ConfirmedAt = confirmedAt
	o.CompletedAt = complete
	return nil
}

func (r *OrderRepository) missingOrConflict(ctx context.Context, id string, expectedVersion int) error {
	if expectedVersion == 0 {
		return order.ErrNotFound
	}
	var exists bool
	if err := r.db.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrVersionConflict
}

func (r *OrderRepository) queryOne(ctx context.Context, query string, args ...any) (*order.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                            order.Order
		origin, status                               string
		customerName, customerPhone, customerID, pay *string
		street, number, complement, neighborhood     *string
		city, state, zipcode, idempotencyKey         *string
		fingerprint                                  *string
	)
	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.Number, &origin, &o.TableNumber,
		&customerName, &customerPhone, &customerID, &pay,
		&street, &number, &complement, &neighborhood, &city, &state, &zipcode,
		&o.Subtotal, &o.DeliveryFee, &o.Total, &status, &o.Version, &idempotencyKey, &fingerprint,
		&o.CreatedAt, &o.ConfirmedAt, &o.CompletedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	o.Origin = order.Origin(origin)
	o.Status = order.Status(status)
	o.CustomerName = deref(customerName)
	o.CustomerPhone = deref(customerPhone)
	o.CustomerID = deref(customerID)
	o.PaymentMethod = order.PaymentMethod(deref(pay))
	o.IdempotencyKey = deref(idempotencyKey)
	o.IdempotencyFingerprint = deref(fingerprint)
	if street != nil {
		o.DeliveryAddress = &customer.Address{
			Street:       deref(street),
			Number:       deref(number),
			Complement:   deref(complement),
			Neighborhood: deref(neighborhood),
			City:         deref(city),
			State:        deref(state),
			Zipcode:      deref(zipcode),
		}
	}
	return o, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it               order.Item
		productID, notes *string
	)
	err := row.Scan(
		&it.ID, &it.OrderID, &productID, &it.ProductName, &it.ProductPrice,
		&it.Quantity, &it.Subtotal, &notes,
	)
	it.ProductID = deref(productID)
	it.Notes = deref(notes)
	return it, err
}
