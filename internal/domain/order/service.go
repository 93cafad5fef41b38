package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
	"github.com/Kmzf777/foodshorts/internal/domain/product"
	"github.com/Kmzf777/foodshorts/internal/domain/restaurant"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Config holds order policy settings.
type Config struct {
	// DeliveryFee is added to every delivery order.
	DeliveryFee decimal.Decimal
	// TrustClientPrices makes the service total orders from submitted prices.
	// When false, names and prices are taken from the catalog.
	TrustClientPrices bool
	// IdempotencyWindow bounds how long an idempotency key replays its order.
	// Zero disables expiry.
	IdempotencyWindow time.Duration
}

// Options carries optional collaborators. Zero values fall back to no-ops.
type Options struct {
	Events Events
	Tracer trace.Tracer
	Meter  metric.Meter
	Now    func() time.Time
}

// Receipt is the result of a successful submission.
type Receipt struct {
	OrderID     string
	OrderNumber int64
	// Replayed is set when the receipt belongs to an earlier submission with
	// the same idempotency key.
	Replayed bool
}

// StatusChange requests a direct status selection on an order.
type StatusChange struct {
	RestaurantID    string
	OrderID         string
	Status          Status
	ExpectedVersion int
}

// Service owns order submission and the status lifecycle.
type Service struct {
	cfg         Config
	restaurants restaurant.Repository
	products    product.Repository
	orders      Repository
	customers   customer.AddressWriter
	events      Events
	tracer      trace.Tracer
	now         func() time.Time

	submitted     metric.Int64Counter
	rejected      metric.Int64Counter
	statusChanges metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	cfg Config,
	restaurants restaurant.Repository,
	products product.Repository,
	orders Repository,
	customers customer.AddressWriter,
	opts Options,
) (*Service, error) {
	if opts.Events == nil {
		opts.Events = nopEvents{}
	}
	if opts.Tracer == nil {
		opts.Tracer = tracenoop.NewTracerProvider().Tracer("")
	}
	if opts.Meter == nil {
		opts.Meter = metricnoop.NewMeterProvider().Meter("")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		cfg:         cfg,
		restaurants: restaurants,
		products:    products,
		orders:      orders,
		customers:   customers,
		events:      opts.Events,
		tracer:      opts.Tracer,
		now:         opts.Now,
	}

	var err error
	if s.submitted, err = opts.Meter.Int64Counter("foodshorts.orders.submitted",
		metric.WithDescription("Orders accepted by origin")); err != nil {
		return nil, errors.Wrap(err, "submitted counter")
	}
	if s.rejected, err = opts.Meter.Int64Counter("foodshorts.orders.rejected",
		metric.WithDescription("Order submissions rejected by reason")); err != nil {
		return nil, errors.Wrap(err, "rejected counter")
	}
	if s.statusChanges, err = opts.Meter.Int64Counter("foodshorts.orders.status_changes",
		metric.WithDescription("Persisted order status changes by target status")); err != nil {
		return nil, errors.Wrap(err, "status changes counter")
	}
	return s, nil
}

// Submit validates a submission against restaurant and catalog state and
// persists the order with its items. Either both the order and all of its
// items are stored or neither is.
func (s *Service) Submit(ctx context.Context, sub Submission) (_ *Receipt, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit")
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(rerr))))
		}
		span.End()
	}()

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	origin := sub.Details.Origin()
	span.SetAttributes(
		attribute.String("restaurant.slug", sub.RestaurantSlug),
		attribute.String("order.origin", string(origin)),
	)

	r, err := s.restaurants.GetBySlug(ctx, sub.RestaurantSlug)
	if err != nil {
		if errors.Is(err, restaurant.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, errors.Wrap(err, "get restaurant")
	}
	if !r.Active() {
		return nil, ErrRestaurantInactive
	}

	var fingerprint string
	if sub.IdempotencyKey != "" {
		fingerprint = sub.Fingerprint()
		rec, err := s.replay(ctx, r.ID, sub.IdempotencyKey, fingerprint)
		if err != nil || rec != nil {
			return rec, err
		}
	}

	if d, ok := sub.Details.(DeliveryDetails); ok && !r.Delivers(d.Address.City) {
		return nil, &DeliveryAreaError{RestaurantCity: r.City, DeliveryCity: d.Address.City}
	}

	items, err := s.snapshotItems(ctx, r.ID, sub.Items)
	if err != nil {
		return nil, err
	}

	o := s.newOrder(r.ID, sub, items)
	o.IdempotencyFingerprint = fingerprint
	if err := checkAmounts(o); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			// Lost a race against a concurrent retry carrying the same key.
			rec, replayErr := s.replay(ctx, r.ID, sub.IdempotencyKey, fingerprint)
			if rec == nil && replayErr == nil {
				return nil, &PersistenceError{Op: "create order", Err: err}
			}
			return rec, replayErr
		}
		return nil, err
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID), zap.Int64("order_number", o.Number))

	if d, ok := sub.Details.(DeliveryDetails); ok && d.SaveAddress {
		if err := s.customers.UpdateAddress(ctx, d.CustomerID, d.Address); err != nil {
			lg.Warn("Save customer address failed", zap.String("customer_id", d.CustomerID), zap.Error(err))
		}
	}
	if err := s.events.OrderCreated(ctx, o); err != nil {
		lg.Warn("Publish order created failed", zap.Error(err))
	}

	s.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", string(origin))))
	lg.Info("Order created", zap.String("origin", string(origin)), zap.String("total", o.Total.StringFixed(2)))

	return &Receipt{OrderID: o.ID, OrderNumber: o.Number}, nil
}

// persist stores o with its items. Repositories implementing AtomicCreator
// write both in one transaction. Otherwise the order row is removed again
// when its items cannot be stored. Errors other than
// ErrDuplicateIdempotencyKey are *PersistenceError.
func (s *Service) persist(ctx context.Context, o *Order) error {
	if ac, ok := s.orders.(AtomicCreator); ok {
		if err := ac.CreateWithItems(ctx, o); err != nil {
			if errors.Is(err, ErrDuplicateIdempotencyKey) {
				return err
			}
			return &PersistenceError{Op: "create order", Err: err}
		}
		return nil
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			return err
		}
		return &PersistenceError{Op: "create order", Err: err}
	}
	if err := s.orders.AddItems(ctx, o.ID, o.Items); err != nil {
		if delErr := s.orders.Delete(context.WithoutCancel(ctx), o.ID); delErr != nil {
			zctx.From(ctx).Error("Compensating order delete failed",
				zap.String("order_id", o.ID), zap.Error(delErr))
		}
		return &PersistenceError{Op: "create order items", Err: err}
	}
	return nil
}

// replay returns the receipt of an earlier order created with key, nil when
// there is none. A key reused for a different submission is rejected.
func (s *Service) replay(ctx context.Context, restaurantID, key, fingerprint string) (*Receipt, error) {
	o, err := s.orders.FindByIdempotencyKey(ctx, restaurantID, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find by idempotency key")
	}
	if s.cfg.IdempotencyWindow > 0 && s.now().Sub(o.CreatedAt) > s.cfg.IdempotencyWindow {
		return nil, ErrIdempotencyKeyExpired
	}
	if o.IdempotencyFingerprint != "" && o.IdempotencyFingerprint != fingerprint {
		return nil, ErrIdempotencyKeyReused
	}
	return &Receipt{OrderID: o.ID, OrderNumber: o.Number, Replayed: true}, nil
}

// checkAmounts rejects orders whose totals do not fit the store. Submitted
// lines are bounded by Validate; catalog prices and the delivery fee can
// still push the totals over.
func checkAmounts(o *Order) error {
	for i, it := range o.Items {
		if it.Subtotal.GreaterThan(MaxAmount) {
			return invalid(fmt.Sprintf("items[%d].quantity", i), "line total must not exceed "+MaxAmount.String())
		}
	}
	if o.Total.GreaterThan(MaxAmount) {
		return invalid("items", "order total must not exceed "+MaxAmount.String())
	}
	return nil
}

// snapshotItems checks every line against the live catalog and freezes the
// values that go into order items.
func (s *Service) snapshotItems(ctx context.Context, restaurantID string, lines []Line) ([]Item, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}

	fetched, err := s.products.GetByIDs(ctx, restaurantID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	catalog := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		catalog[p.ID] = p
	}

	var missing []string
	for _, id := range ids {
		if _, ok := catalog[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &StaleCartError{ProductIDs: missing}
	}

	items := make([]Item, len(lines))
	for i, l := range lines {
		name, price := l.Name, l.Price
		if !s.cfg.TrustClientPrices {
			p := catalog[l.ProductID]
			name, price = p.Name, p.Price
		}
		items[i] = Item{
			ID:           uuid.New().String(),
			ProductID:    l.ProductID,
			ProductName:  name,
			ProductPrice: price,
			Quantity:     l.Quantity,
			Subtotal:     price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2),
			Notes:        l.Notes,
		}
	}
	return items, nil
}

func (s *Service) newOrder(restaurantID string, sub Submission, items []Item) *Order {
	o := &Order{
		ID:             uuid.New().String(),
		RestaurantID:   restaurantID,
		Origin:         sub.Details.Origin(),
		Status:         StatusPending,
		Version:        1,
		IdempotencyKey: sub.IdempotencyKey,
		DeliveryFee:    decimal.Zero,
		Items:          items,
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}

	switch d := sub.Details.(type) {
	case TableDetails:
		table := d.TableNumber
		o.TableNumber = &table
		o.CustomerName = d.CustomerName
		o.CustomerPhone = d.CustomerPhone
	case DeliveryDetails:
		addr := d.Address
		o.CustomerID = d.CustomerID
		o.PaymentMethod = d.PaymentMethod
		o.DeliveryAddress = &addr
		o.DeliveryFee = s.cfg.DeliveryFee.Round(2)
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.DeliveryFee)
	return o
}

// Get returns an order of restaurantID with its items.
func (s *Service) Get(ctx context.Context, restaurantID, orderID string) (*Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.RestaurantID != restaurantID {
		return nil, ErrNotFound
	}
	return o, nil
}

// List returns the most recent orders of restaurantID.
func (s *Service) List(ctx context.Context, restaurantID string, f ListFilter) ([]Order, error) {
	if f.Status != "" {
		if _, err := ParseStatus(string(f.Status)); err != nil {
			return nil, err
		}
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	orders, err := s.orders.List(ctx, restaurantID, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus moves an order directly to the requested status.
func (s *Service) UpdateStatus(ctx context.Context, req StatusChange) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.String("order.status", string(req.Status)),
	))
	defer span.End()

	if _, err := ParseStatus(string(req.Status)); err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, req.RestaurantID, req.OrderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, req.Status, req.ExpectedVersion)
}

// Advance moves an order to the status following its current one.
func (s *Service) Advance(ctx context.Context, restaurantID, orderID string, expectedVersion int) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Advance", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	o, err := s.Get(ctx, restaurantID, orderID)
	if err != nil {
		return nil, err
	}
	next, ok := o.Status.Next()
	if !ok {
		return nil, ErrNoNextStatus
	}
	return s.transition(ctx, o, next, expectedVersion)
}

func (s *Service) transition(ctx context.Context, o *Order, target Status, expectedVersion int) (*Order, error) {
	if expectedVersion != 0 && expectedVersion != o.Version {
		return nil, ErrVersionConflict
	}

	from := o.Status
	changed, err := o.ApplyStatus(target, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}

	if err := s.orders.UpdateStatus(ctx, o, expectedVersion); err != nil {
		return nil, errors.Wrapf(err, "update order %s status", o.ID)
	}

	s.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(target))))
	lg := zctx.From(ctx)
	if err := s.events.StatusChanged(ctx, o, from); err != nil {
		lg.Warn("Publish status change failed", zap.String("order_id", o.ID), zap.Error(err))
	}
	lg.Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	return o, nil
}

func rejectReason(err error) string {
	var (
		validationErr *ValidationError
		areaErr       *DeliveryAreaError
		staleErr      *StaleCartError
		persistErr    *PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.Is(err, ErrRestaurantNotFound):
		return "restaurant_not_found"
	case errors.Is(err, ErrRestaurantInactive):
		return "restaurant_inactive"
	case errors.As(err, &areaErr):
		return "delivery_area"
	case errors.As(err, &staleErr):
		return "stale_cart"
	case errors.Is(err, ErrIdempotencyKeyExpired):
		return "idempotency_key_expired"
	case errors.Is(err, ErrIdempotencyKeyReused):
		return "idempotency_key_reused"
	case errors.As(err, &persistErr):
		return "persistence"
	default:
		return "internal"
	}
}
