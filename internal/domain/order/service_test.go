package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
	"github.com/Kmzf777/foodshorts/internal/domain/product"
	"github.com/Kmzf777/foodshorts/internal/domain/restaurant"
)

// --- Fakes ---

type fakeRestaurants struct {
	bySlug map[string]*restaurant.Restaurant
	err    error
}

func (f *fakeRestaurants) GetBySlug(_ context.Context, slug string) (*restaurant.Restaurant, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.bySlug[slug]
	if !ok {
		return nil, restaurant.ErrNotFound
	}
	return r, nil
}

func (f *fakeRestaurants) GetByOwner(_ context.Context, ownerID string) (*restaurant.Restaurant, error) {
	for _, r := range f.bySlug {
		if r.OwnerID == ownerID {
			return r, nil
		}
	}
	return nil, restaurant.ErrNotFound
}

type fakeProducts struct {
	products []product.Product
}

func (f *fakeProducts) GetByIDs(_ context.Context, restaurantID string, ids []string) ([]product.Product, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []product.Product
	for _, p := range f.products {
		if p.RestaurantID == restaurantID && want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeOrders is an in-memory Repository. It mimics the storage contract:
// Create assigns numbers per restaurant and AddItems is all-or-nothing.
type fakeOrders struct {
	mu        sync.Mutex
	orders    map[string]*Order
	seq       map[string]int64
	itemsErr  error
	updateErr error
	deleted   []string
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*Order{}, seq: map[string]int64{}}
}

func (f *fakeOrders) Create(_ context.Context, o *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.IdempotencyKey != "" {
		for _, existing := range f.orders {
			if existing.RestaurantID == o.RestaurantID && existing.IdempotencyKey == o.IdempotencyKey {
				return ErrDuplicateIdempotencyKey
			}
		}
	}
	f.seq[o.RestaurantID]++
	o.Number = f.seq[o.RestaurantID]
	o.CreatedAt = time.Now()
	o.Version = 1
	stored := *o
	stored.Items = nil
	f.orders[o.ID] = &stored
	return nil
}

func (f *fakeOrders) AddItems(_ context.Context, orderID string, items []Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.itemsErr != nil {
		return f.itemsErr
	}
	f.orders[orderID].Items = append([]Item(nil), items...)
	return nil
}

func (f *fakeOrders) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.orders, id)
	return nil
}

func (f *fakeOrders) Get(_ context.Context, id string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) List(_ context.Context, restaurantID string, filter ListFilter) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Order
	for _, o := range f.orders {
		if o.RestaurantID == restaurantID && (filter.Status == "" || o.Status == filter.Status) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) FindByIdempotencyKey(_ context.Context, restaurantID, key string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.RestaurantID == restaurantID && o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeOrders) UpdateStatus(_ context.Context, o *Order, expectedVersion int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored := f.orders[o.ID]
	if expectedVersion != 0 && stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	o.Version = stored.Version + 1
	items := stored.Items
	*stored = *o
	stored.Items = items
	return nil
}

func (f *fakeOrders) count(restaurantID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.orders {
		if o.RestaurantID == restaurantID {
			n++
		}
	}
	return n
}

type fakeCustomers struct {
	saved map[string]customer.Address
	err   error
}

func (f *fakeCustomers) UpdateAddress(_ context.Context, id string, addr customer.Address) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string]customer.Address{}
	}
	f.saved[id] = addr
	return nil
}

type fakeEvents struct {
	created []string
	changes []Status
}

func (f *fakeEvents) OrderCreated(_ context.Context, o *Order) error {
	f.created = append(f.created, o.ID)
	return nil
}

func (f *fakeEvents) StatusChanged(_ context.Context, o *Order, _ Status) error {
	f.changes = append(f.changes, o.Status)
	return nil
}

// atomicOrders stores an order and its items in one step, the way the
// PostgreSQL repository does in a single transaction.
type atomicOrders struct {
	*fakeOrders
	err   error
	calls int
}

func (a *atomicOrders) Create(context.Context, *Order) error {
	return errors.New("unexpected Create call")
}

func (a *atomicOrders) CreateWithItems(ctx context.Context, o *Order) error {
	a.calls++
	if a.err != nil {
		return a.err
	}
	if err := a.fakeOrders.Create(ctx, o); err != nil {
		return err
	}
	return a.AddItems(ctx, o.ID, o.Items)
}

// --- Helpers ---

type fixture struct {
	svc       *Service
	orders    *fakeOrders
	customers *fakeCustomers
	events    *fakeEvents
	rest      *restaurant.Restaurant
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	return newFixtureWith(t, cfg, func(f *fakeOrders) Repository { return f })
}

// newFixtureWith lets a test wrap the order store the service sees.
func newFixtureWith(t *testing.T, cfg Config, repo func(*fakeOrders) Repository) *fixture {
	t.Helper()
	rest := &restaurant.Restaurant{
		ID:         testRestID,
		OwnerID:    "owner-1",
		Slug:       testSlug,
		PlanStatus: restaurant.PlanActive,
		City:       "São Paulo",
	}
	f := &fixture{
		orders:    newFakeOrders(),
		customers: &fakeCustomers{},
		events:    &fakeEvents{},
		rest:      rest,
	}
	products := &fakeProducts{products: []product.Product{
		{ID: testProductA, RestaurantID: testRestID, Name: "Coxinha", Price: decimal.RequireFromString("9.00"), Active: true},
		{ID: testProductB, RestaurantID: testRestID, Name: "Guaraná Antarctica", Price: decimal.RequireFromString("6.50"), Active: true},
	}}
	svc, err := NewService(cfg,
		&fakeRestaurants{bySlug: map[string]*restaurant.Restaurant{testSlug: rest}},
		products,
		repo(f.orders),
		f.customers,
		Options{Events: f.events},
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func trusting() Config {
	return Config{TrustClientPrices: true, DeliveryFee: decimal.Zero}
}

// --- Submission ---

func TestSubmit_TableOrder(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()

	rec, err := f.svc.Submit(ctx, tableSubmission())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.OrderNumber)
	assert.False(t, rec.Replayed)

	o, err := f.orders.Get(ctx, rec.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, OriginTable, o.Origin)
	require.NotNil(t, o.TableNumber)
	assert.Equal(t, 7, *o.TableNumber)
	assert.Equal(t, "Ana", o.CustomerName)
	assert.Empty(t, o.CustomerID)
	assert.Nil(t, o.DeliveryAddress)

	// 2 x 8.50 + 1 x 6.00 from submitted prices.
	assert.True(t, decimal.RequireFromString("23.00").Equal(o.Subtotal), o.Subtotal.String())
	assert.True(t, o.Total.Equal(o.Subtotal.Add(o.DeliveryFee)))

	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal)
		assert.Equal(t, o.ID, it.OrderID)
	}
	assert.True(t, sum.Equal(o.Subtotal))
	assert.Equal(t, []string{rec.OrderID}, f.events.created)

	rec2, err := f.svc.Submit(ctx, tableSubmission())
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec2.OrderNumber)
}

func TestSubmit_DeliveryFeeAndSnapshot(t *testing.T) {
	cfg := trusting()
	cfg.DeliveryFee = decimal.RequireFromString("5")
	f := newFixture(t, cfg)
	ctx := context.Background()

	sub := deliverySubmission("sao  paulo ")
	rec, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)

	o, err := f.orders.Get(ctx, rec.OrderID)
	require.NoError(t, err)
	assert.Equal(t, OriginDelivery, o.Origin)
	assert.Equal(t, PaymentPix, o.PaymentMethod)
	assert.Equal(t, testCustomer, o.CustomerID)
	assert.Nil(t, o.TableNumber)
	require.NotNil(t, o.DeliveryAddress)
	assert.Equal(t, "Rua Augusta", o.DeliveryAddress.Street)
	assert.True(t, decimal.RequireFromString("25.50").Equal(o.Subtotal))
	assert.True(t, decimal.RequireFromString("5.00").Equal(o.DeliveryFee))
	assert.True(t, decimal.RequireFromString("30.50").Equal(o.Total))

	// No saved address unless requested.
	assert.Empty(t, f.customers.saved)
}

func TestSubmit_RestaurantChecks(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()

	sub := tableSubmission()
	sub.RestaurantSlug = "unknown"
	_, err := f.svc.Submit(ctx, sub)
	require.ErrorIs(t, err, ErrRestaurantNotFound)

	f.rest.PlanStatus = restaurant.PlanExpired
	_, err = f.svc.Submit(ctx, tableSubmission())
	require.ErrorIs(t, err, ErrRestaurantInactive)
	assert.Equal(t, 0, f.orders.count(testRestID))
}

func TestSubmit_ValidationBeforeLookups(t *testing.T) {
	f := newFixture(t, trusting())
	sub := tableSubmission()
	sub.Items[0].Quantity = 0

	_, err := f.svc.Submit(context.Background(), sub)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items[0].quantity", vErr.Field)
	assert.Equal(t, 0, f.orders.count(testRestID))
}

func TestSubmit_CityCheck(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, deliverySubmission("SAO PAULO"))
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, deliverySubmission("Rio de Janeiro"))
	var areaErr *DeliveryAreaError
	require.ErrorAs(t, err, &areaErr)
	assert.Contains(t, err.Error(), "Rio de Janeiro")
	assert.Contains(t, err.Error(), "São Paulo")
	assert.Equal(t, 1, f.orders.count(testRestID))

	// Table orders ignore the delivery city.
	f.rest.City = "Curitiba"
	_, err = f.svc.Submit(ctx, tableSubmission())
	require.NoError(t, err)

	// Restaurants without a city accept any delivery city.
	f.rest.City = ""
	_, err = f.svc.Submit(ctx, deliverySubmission("Manaus"))
	require.NoError(t, err)
}

func TestSubmit_StaleCart(t *testing.T) {
	f := newFixture(t, trusting())
	sub := tableSubmission()
	deleted := "8a4c8f5e-3a1b-4a59-9d1e-2f5f8f0a0099"
	sub.Items = append(sub.Items, Line{ProductID: deleted, Name: "Pastel", Price: decimal.NewFromInt(7), Quantity: 1})

	_, err := f.svc.Submit(context.Background(), sub)
	var staleErr *StaleCartError
	require.ErrorAs(t, err, &staleErr)
	assert.Equal(t, []string{deleted}, staleErr.ProductIDs)
	assert.Contains(t, err.Error(), "refresh")
	assert.Equal(t, 0, f.orders.count(testRestID))
}

func TestSubmit_ItemsFailureRemovesOrder(t *testing.T) {
	f := newFixture(t, trusting())
	f.orders.itemsErr = errors.New("insert order_items: connection reset")
	before := f.orders.count(testRestID)

	_, err := f.svc.Submit(context.Background(), tableSubmission())
	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "create order items", pErr.Op)
	assert.Len(t, f.orders.deleted, 1)
	assert.Equal(t, before, f.orders.count(testRestID))
	assert.Empty(t, f.events.created)
}

func TestSubmit_SaveAddress(t *testing.T) {
	f := newFixture(t, trusting())
	sub := deliverySubmission("São Paulo")
	d := sub.Details.(DeliveryDetails)
	d.SaveAddress = true
	sub.Details = d

	_, err := f.svc.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "Rua Augusta", f.customers.saved[testCustomer].Street)
}

func TestSubmit_SaveAddressFailureKeepsOrder(t *testing.T) {
	f := newFixture(t, trusting())
	f.customers.err = errors.New("customers table locked")
	sub := deliverySubmission("São Paulo")
	d := sub.Details.(DeliveryDetails)
	d.SaveAddress = true
	sub.Details = d

	rec, err := f.svc.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.OrderID)
	assert.Equal(t, 1, f.orders.count(testRestID))
}

func TestSubmit_CatalogPricing(t *testing.T) {
	cfg := trusting()
	cfg.TrustClientPrices = false
	f := newFixture(t, cfg)
	ctx := context.Background()

	rec, err := f.svc.Submit(ctx, tableSubmission())
	require.NoError(t, err)

	o, err := f.orders.Get(ctx, rec.OrderID)
	require.NoError(t, err)
	// 2 x 9.00 + 1 x 6.50 from the catalog.
	assert.True(t, decimal.RequireFromString("24.50").Equal(o.Subtotal), o.Subtotal.String())
	assert.Equal(t, "Guaraná Antarctica", o.Items[1].ProductName)
}

func TestSubmit_IdempotencyKey(t *testing.T) {
	cfg := trusting()
	cfg.IdempotencyWindow = time.Hour
	f := newFixture(t, cfg)
	ctx := context.Background()

	sub := tableSubmission()
	sub.IdempotencyKey = "attempt-1"
	first, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)

	again, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.OrderID, again.OrderID)
	assert.Equal(t, first.OrderNumber, again.OrderNumber)
	assert.Equal(t, 1, f.orders.count(testRestID))

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.svc.Submit(ctx, sub)
	require.ErrorIs(t, err, ErrIdempotencyKeyExpired)
}

func TestSubmit_IdempotencyKeyReusedForDifferentCart(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()

	sub := tableSubmission()
	sub.IdempotencyKey = "attempt-1"
	_, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)

	changed := tableSubmission()
	changed.IdempotencyKey = "attempt-1"
	changed.Items[0].Quantity = 5
	_, err = f.svc.Submit(ctx, changed)
	require.ErrorIs(t, err, ErrIdempotencyKeyReused)
	assert.Equal(t, 1, f.orders.count(testRestID))

	// Same lines with a differently scaled price are the same submission.
	same := tableSubmission()
	same.IdempotencyKey = "attempt-1"
	same.Items[0].Price = decimal.RequireFromString("8.5")
	rec, err := f.svc.Submit(ctx, same)
	require.NoError(t, err)
	assert.True(t, rec.Replayed)
}

func TestSubmit_ItemAmountsMatchPrices(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()

	sub := tableSubmission()
	sub.Items[0].Price = decimal.RequireFromString("10.005")
	sub.Items[0].Quantity = 3
	_, err := f.svc.Submit(ctx, sub)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items[0].price", vErr.Field)
	assert.Equal(t, 0, f.orders.count(testRestID))

	sub.Items[0].Price = decimal.RequireFromString("10.01")
	rec, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)
	o, err := f.orders.Get(ctx, rec.OrderID)
	require.NoError(t, err)

	cartTotal := decimal.Zero
	for i, it := range o.Items {
		assert.True(t, it.ProductPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.Subtotal),
			"item %d: %s x %d != %s", i, it.ProductPrice, it.Quantity, it.Subtotal)
		cartTotal = cartTotal.Add(sub.Items[i].Subtotal())
	}
	assert.True(t, decimal.RequireFromString("30.03").Equal(o.Items[0].Subtotal), o.Items[0].Subtotal.String())
	assert.True(t, cartTotal.Equal(o.Subtotal), "%s != %s", cartTotal, o.Subtotal)
}

func TestSubmit_TotalAboveStorableWithFee(t *testing.T) {
	cfg := trusting()
	cfg.DeliveryFee = decimal.RequireFromString("1.00")
	f := newFixture(t, cfg)

	sub := deliverySubmission("São Paulo")
	sub.Items[0].Price = decimal.RequireFromString("99999999.50")
	sub.Items[0].Quantity = 1
	_, err := f.svc.Submit(context.Background(), sub)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items", vErr.Field)
	assert.Equal(t, 0, f.orders.count(testRestID))
}

func TestSubmit_SingleTransactionStore(t *testing.T) {
	var store *atomicOrders
	f := newFixtureWith(t, trusting(), func(o *fakeOrders) Repository {
		store = &atomicOrders{fakeOrders: o}
		return store
	})
	ctx := context.Background()

	rec, err := f.svc.Submit(ctx, tableSubmission())
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
	o, err := f.orders.Get(ctx, rec.OrderID)
	require.NoError(t, err)
	assert.Len(t, o.Items, 2)

	store.err = errors.New("insert order_items: connection reset")
	_, err = f.svc.Submit(ctx, tableSubmission())
	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "create order", pErr.Op)
	assert.Empty(t, f.orders.deleted)
	assert.Equal(t, 1, f.orders.count(testRestID))
	assert.Len(t, f.events.created, 1)
}

// --- Status machine ---

func submitPending(t *testing.T, f *fixture) string {
	t.Helper()
	rec, err := f.svc.Submit(context.Background(), tableSubmission())
	require.NoError(t, err)
	return rec.OrderID
}

func TestAdvance_FullSequence(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()
	id := submitPending(t, f)

	var (
		confirmedAt *time.Time
		statuses    []Status
	)
	for range 4 {
		o, err := f.svc.Advance(ctx, testRestID, id, 0)
		require.NoError(t, err)
		statuses = append(statuses, o.Status)
		if o.Status == StatusConfirmed {
			confirmedAt = o.ConfirmedAt
		}
	}
	assert.Equal(t, []Status{StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered}, statuses)

	o, err := f.svc.Get(ctx, testRestID, id)
	require.NoError(t, err)
	require.NotNil(t, confirmedAt)
	assert.Equal(t, *confirmedAt, *o.ConfirmedAt)
	assert.NotNil(t, o.CompletedAt)
	assert.Equal(t, 5, o.Version)

	_, err = f.svc.Advance(ctx, testRestID, id, 0)
	require.ErrorIs(t, err, ErrNoNextStatus)
	assert.Equal(t, statuses, f.events.changes)
}

func TestUpdateStatus_CancelFromPreparing(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()
	id := submitPending(t, f)

	_, err := f.svc.UpdateStatus(ctx, StatusChange{RestaurantID: testRestID, OrderID: id, Status: StatusPreparing})
	require.NoError(t, err)

	o, err := f.svc.UpdateStatus(ctx, StatusChange{RestaurantID: testRestID, OrderID: id, Status: StatusCanceled})
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, o.Status)

	_, err = f.svc.Advance(ctx, testRestID, id, 0)
	require.ErrorIs(t, err, ErrNoNextStatus)

	_, err = f.svc.UpdateStatus(ctx, StatusChange{RestaurantID: testRestID, OrderID: id, Status: StatusReady})
	require.ErrorIs(t, err, ErrTerminalStatus)
}

func TestUpdateStatus_VersionCheck(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()
	id := submitPending(t, f)

	o, err := f.svc.UpdateStatus(ctx, StatusChange{RestaurantID: testRestID, OrderID: id, Status: StatusConfirmed, ExpectedVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, o.Version)

	_, err = f.svc.UpdateStatus(ctx, StatusChange{RestaurantID: testRestID, OrderID: id, Status: StatusReady, ExpectedVersion: 1})
	require.ErrorIs(t, err, ErrVersionConflict)

	// Without a version the last write wins.
	o, err = f.svc.UpdateStatus(ctx, StatusChange{RestaurantID: testRestID, OrderID: id, Status: StatusReady})
	require.NoError(t, err)
	assert.Equal(t, StatusReady, o.Status)
}

func TestUpdateStatus_PersistenceFailureKeepsStatus(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()
	id := submitPending(t, f)
	f.orders.updateErr = errors.New("deadlock detected")

	_, err := f.svc.Advance(ctx, testRestID, id, 0)
	require.Error(t, err)

	o, err := f.svc.Get(ctx, testRestID, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Nil(t, o.ConfirmedAt)
	assert.Empty(t, f.events.changes)
}

func TestUpdateStatus_OtherRestaurant(t *testing.T) {
	f := newFixture(t, trusting())
	id := submitPending(t, f)

	_, err := f.svc.UpdateStatus(context.Background(), StatusChange{RestaurantID: "rest-2", OrderID: id, Status: StatusConfirmed})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.UpdateStatus(context.Background(), StatusChange{RestaurantID: testRestID, OrderID: id, Status: "shipped"})
	var statusErr *InvalidStatusError
	require.ErrorAs(t, err, &statusErr)
}

func TestList_FilterAndLimit(t *testing.T) {
	f := newFixture(t, trusting())
	ctx := context.Background()
	id := submitPending(t, f)
	submitPending(t, f)

	_, err := f.svc.Advance(ctx, testRestID, id, 0)
	require.NoError(t, err)

	confirmed, err := f.svc.List(ctx, testRestID, ListFilter{Status: StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, id, confirmed[0].ID)

	_, err = f.svc.List(ctx, testRestID, ListFilter{Status: "unknown"})
	require.Error(t, err)
}
