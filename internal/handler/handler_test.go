package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kmzf777/foodshorts/internal/domain/order"
	"github.com/Kmzf777/foodshorts/internal/domain/restaurant"
	"github.com/Kmzf777/foodshorts/pkg/health"
)

const (
	secret    = "test-secret"
	ownerID   = "owner-1"
	restID    = "0b9e3c6a-1f2d-4c5b-8a7e-000000000001"
	orderID   = "0b9e3c6a-1f2d-4c5b-8a7e-0000000000a1"
	productID = "0b9e3c6a-1f2d-4c5b-8a7e-0000000000c1"
)

type fakeService struct {
	submitted  order.Submission
	statusReq  order.StatusChange
	advanceVer int
	listFilter order.ListFilter
	restaurant string
	receipt    *order.Receipt
	order      *order.Order
	err        error
}

func (f *fakeService) Submit(_ context.Context, sub order.Submission) (*order.Receipt, error) {
	f.submitted = sub
	return f.receipt, f.err
}

func (f *fakeService) Get(_ context.Context, restaurantID, _ string) (*order.Order, error) {
	f.restaurant = restaurantID
	return f.order, f.err
}

func (f *fakeService) List(_ context.Context, restaurantID string, filter order.ListFilter) ([]order.Order, error) {
	f.restaurant = restaurantID
	f.listFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return []order.Order{*f.order}, nil
}

func (f *fakeService) UpdateStatus(_ context.Context, req order.StatusChange) (*order.Order, error) {
	f.statusReq = req
	return f.order, f.err
}

func (f *fakeService) Advance(_ context.Context, restaurantID, _ string, expectedVersion int) (*order.Order, error) {
	f.restaurant = restaurantID
	f.advanceVer = expectedVersion
	return f.order, f.err
}

type fakeRestaurants struct{}

func (fakeRestaurants) GetBySlug(context.Context, string) (*restaurant.Restaurant, error) {
	return nil, restaurant.ErrNotFound
}

func (fakeRestaurants) GetByOwner(_ context.Context, owner string) (*restaurant.Restaurant, error) {
	switch owner {
	case ownerID:
		return &restaurant.Restaurant{ID: restID, OwnerID: ownerID}, nil
	case "broken":
		return nil, errors.New("connection reset")
	}
	return nil, restaurant.ErrNotFound
}

func token(t *testing.T, subject, key string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func testOrder() *order.Order {
	table := 3
	return &order.Order{
		ID:           orderID,
		RestaurantID: restID,
		Number:       7,
		Origin:       order.OriginTable,
		TableNumber:  &table,
		Subtotal:     decimal.RequireFromString("17"),
		DeliveryFee:  decimal.Zero,
		Total:        decimal.RequireFromString("17"),
		Status:       order.StatusConfirmed,
		Version:      2,
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

type env struct {
	svc    *fakeService
	server http.Handler
	bearer string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	svc := &fakeService{order: testOrder(), receipt: &order.Receipt{OrderID: orderID, OrderNumber: 7}}
	hc := health.New()
	hc.SetReady(true)
	router := NewRouter(NewHandler(svc), RouterConfig{
		Health:   hc,
		Security: NewSecurityHandler(fakeRestaurants{}, []byte(secret)),
	})
	return &env{
		svc:    svc,
		server: router,
		bearer: "Bearer " + token(t, ownerID, secret, time.Now().Add(time.Hour)),
	}
}

func (e *env) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

const tableBody = `{"restaurantSlug":"cantina","origin":"table","tableNumber":3,
	"customerName":"Ana","customerPhone":"11987654321",
	"items":[{"productId":"` + productID + `","name":"Coxinha","price":8.5,"quantity":2}]}`

func TestSubmitOrder(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/orders", tableBody, IdempotencyKeyHeader, "retry-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"orderId":"`+orderID+`","orderNumber":7}`, w.Body.String())
	assert.Empty(t, w.Header().Get(ReplayedHeader))

	assert.Equal(t, "retry-1", e.svc.submitted.IdempotencyKey)
	assert.Equal(t, order.TableDetails{TableNumber: 3, CustomerName: "Ana", CustomerPhone: "11987654321"},
		e.svc.submitted.Details)

	e.svc.receipt.Replayed = true
	w = e.do(http.MethodPost, "/api/orders", tableBody)
	assert.Equal(t, "true", w.Header().Get(ReplayedHeader))
}

func TestSubmitOrder_BadPayload(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/orders", `{"tableNumber":"3"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "tableNumber")

	w = e.do(http.MethodPost, "/api/orders", `{"x":"`+strings.Repeat("a", maxBodyBytes)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, w.Body.String())
}

func TestSubmitOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", &order.ValidationError{Field: "items", Message: "add at least one item"}, 400, "items: add at least one item"},
		{"city", &order.DeliveryAreaError{RestaurantCity: "São Paulo", DeliveryCity: "Rio de Janeiro"}, 400, ""},
		{"stale cart", &order.StaleCartError{ProductIDs: []string{productID}}, 400, ""},
		{"inactive", order.ErrRestaurantInactive, 403, "restaurant is not accepting orders"},
		{"unknown restaurant", order.ErrRestaurantNotFound, 404, "restaurant not found"},
		{"expired key", order.ErrIdempotencyKeyExpired, 409, "idempotency key expired"},
		{"reused key", order.ErrIdempotencyKeyReused, 409, "idempotency key was already used for a different order"},
		{"persistence", &order.PersistenceError{Op: "create order items", Err: errors.New("fk violation")}, 500,
			"could not save the order, please try again"},
		{"unexpected", errors.New("boom"), 500, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.svc.err = tt.err

			w := e.do(http.MethodPost, "/api/orders", tableBody)
			assert.Equal(t, tt.status, w.Code)
			msg := tt.msg
			if msg == "" {
				msg = tt.err.Error()
			}
			assert.JSONEq(t, `{"error":`+quote(msg)+`}`, w.Body.String())
		})
	}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func TestOperatorAuth(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong key", "Bearer " + token(t, ownerID, "other", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + token(t, ownerID, secret, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"no subject", "Bearer " + token(t, "", secret, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"no restaurant", "Bearer " + token(t, "stranger", secret, time.Now().Add(time.Hour)), http.StatusForbidden},
		{"lookup failure", "Bearer " + token(t, "broken", secret, time.Now().Add(time.Hour)), http.StatusInternalServerError},
		{"ok", e.bearer, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(http.MethodGet, "/api/orders/"+orderID, "", "Authorization", tt.header)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestListOrders(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/orders?status=pending&limit=20", "", "Authorization", e.bearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"orders":[`)
	assert.Equal(t, restID, e.svc.restaurant)
	assert.Equal(t, order.ListFilter{Status: order.StatusPending, Limit: 20}, e.svc.listFilter)

	w = e.do(http.MethodGet, "/api/orders?limit=many", "", "Authorization", e.bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"limit: must be a non-negative integer"}`, w.Body.String())
}

func TestGetOrder(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/orders/"+orderID, "", "Authorization", e.bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"confirmed"`)

	e.svc.err = order.ErrNotFound
	w = e.do(http.MethodGet, "/api/orders/"+orderID, "", "Authorization", e.bearer)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"order not found"}`, w.Body.String())
}

func TestUpdateOrderStatus(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPatch, "/api/orders/"+orderID, `{"status":"ready","version":2}`, "Authorization", e.bearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, order.StatusChange{
		RestaurantID: restID, OrderID: orderID, Status: order.StatusReady, ExpectedVersion: 2,
	}, e.svc.statusReq)

	w = e.do(http.MethodPatch, "/api/orders/"+orderID, `{}`, "Authorization", e.bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"status: is required"}`, w.Body.String())

	for err, status := range map[error]int{
		&order.InvalidStatusError{Value: "lost"}: http.StatusBadRequest,
		order.ErrTerminalStatus:                  http.StatusConflict,
		order.ErrVersionConflict:                 http.StatusConflict,
		order.ErrNotFound:                        http.StatusNotFound,
	} {
		e.svc.err = err
		w = e.do(http.MethodPatch, "/api/orders/"+orderID, `{"status":"lost"}`, "Authorization", e.bearer)
		assert.Equal(t, status, w.Code, err.Error())
	}
}

func TestAdvanceOrder(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/orders/"+orderID+"/advance", "", "Authorization", e.bearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, e.svc.advanceVer)

	w = e.do(http.MethodPost, "/api/orders/"+orderID+"/advance", `{"version":4}`, "Authorization", e.bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, e.svc.advanceVer)

	e.svc.err = order.ErrNoNextStatus
	w = e.do(http.MethodPost, "/api/orders/"+orderID+"/advance", "", "Authorization", e.bearer)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_Fallbacks(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())

	w = e.do(http.MethodDelete, "/api/orders", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = e.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
