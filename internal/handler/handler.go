// Package handler exposes the order service over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/Kmzf777/foodshorts/internal/api"
	"github.com/Kmzf777/foodshorts/internal/domain/order"
	"github.com/Kmzf777/foodshorts/pkg/health"
	"github.com/Kmzf777/foodshorts/pkg/httpmiddleware"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// OrderService is implemented by *order.Service.
type OrderService interface {
	Submit(ctx context.Context, sub order.Submission) (*order.Receipt, error)
	Get(ctx context.Context, restaurantID, orderID string) (*order.Order, error)
	List(ctx context.Context, restaurantID string, f order.ListFilter) ([]order.Order, error)
	UpdateStatus(ctx context.Context, req order.StatusChange) (*order.Order, error)
	Advance(ctx context.Context, restaurantID, orderID string, expectedVersion int) (*order.Order, error)
}

var _ OrderService = (*order.Service)(nil)

// Handler serves the order endpoints.
type Handler struct {
	orders OrderService
}

// NewHandler returns a Handler backed by orders.
func NewHandler(orders OrderService) *Handler {
	return &Handler{orders: orders}
}

// RouterConfig carries the collaborators mounted next to the order routes.
type RouterConfig struct {
	Health   *health.Health
	Security *SecurityHandler
	// SubmitLimit guards the public order submission endpoint. Optional.
	SubmitLimit httpmiddleware.Middleware
}

// NewRouter builds the API routes. Dashboard routes require an operator
// token; order submission is public.
func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if cfg.Health != nil {
		r.Get("/livez", cfg.Health.LiveEndpoint)
		r.Get("/readyz", cfg.Health.ReadyEndpoint)
	}

	r.Route("/api/orders", func(r chi.Router) {
		submit := r
		if cfg.SubmitLimit != nil {
			submit = r.With(cfg.SubmitLimit)
		}
		submit.Post("/", h.SubmitOrder)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Security.Authenticate)
			r.Get("/", h.ListOrders)
			r.Get("/{orderId}", h.GetOrder)
			r.Patch("/{orderId}", h.UpdateOrderStatus)
			r.Post("/{orderId}/advance", h.AdvanceOrder)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) { api.EncodeError(e, msg) })
}
