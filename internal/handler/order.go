package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Kmzf777/foodshorts/internal/api"
	"github.com/Kmzf777/foodshorts/internal/domain/auth"
	"github.com/Kmzf777/foodshorts/internal/domain/order"
)

// IdempotencyKeyHeader lets clients retry a submission safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// ReplayedHeader is set on responses that return an earlier order.
const ReplayedHeader = "Idempotent-Replayed"

// SubmitOrder handles POST /api/orders.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sub, err := api.DecodeSubmission(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sub.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)

	receipt, err := h.orders.Submit(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if receipt.Replayed {
		w.Header().Set(ReplayedHeader, "true")
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { api.EncodeReceipt(e, *receipt) })
}

// ListOrders handles GET /api/orders?status=&limit=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	op := operator(r)
	q := r.URL.Query()
	f := order.ListFilter{Status: order.Status(q.Get("status"))}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			h.fail(w, r, &order.ValidationError{Field: "limit", Message: "must be a non-negative integer"})
			return
		}
		f.Limit = limit
	}

	orders, err := h.orders.List(r.Context(), op.RestaurantID, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { api.EncodeOrderList(e, orders) })
}

// GetOrder handles GET /api/orders/{orderId}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), operator(r).RestaurantID, chi.URLParam(r, "orderId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { api.EncodeOrder(e, o) })
}

// UpdateOrderStatus handles PATCH /api/orders/{orderId}.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := h.statusRequest(w, r)
	if !ok {
		return
	}
	if req.Status == "" {
		h.fail(w, r, &order.ValidationError{Field: "status", Message: "is required"})
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), order.StatusChange{
		RestaurantID:    operator(r).RestaurantID,
		OrderID:         chi.URLParam(r, "orderId"),
		Status:          order.Status(req.Status),
		ExpectedVersion: req.Version,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { api.EncodeOrder(e, o) })
}

// AdvanceOrder handles POST /api/orders/{orderId}/advance.
func (h *Handler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.statusRequest(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Advance(r.Context(), operator(r).RestaurantID, chi.URLParam(r, "orderId"), req.Version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { api.EncodeOrder(e, o) })
}

func (h *Handler) statusRequest(w http.ResponseWriter, r *http.Request) (api.StatusRequest, bool) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return api.StatusRequest{}, false
	}
	req, err := api.DecodeStatusRequest(body)
	if err != nil {
		h.fail(w, r, err)
		return api.StatusRequest{}, false
	}
	return req, true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &order.ValidationError{Message: "request body too large"}
		}
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}

// operator returns the operator placed in the context by Authenticate.
func operator(r *http.Request) auth.Operator {
	op, _ := auth.OperatorFromContext(r.Context())
	return op
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapOrderError(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeError(w, status, msg)
}

// mapOrderError converts domain errors to an HTTP status and a user-facing
// message.
func mapOrderError(err error) (int, string) {
	var (
		validationErr *order.ValidationError
		statusErr     *order.InvalidStatusError
		areaErr       *order.DeliveryAreaError
		staleErr      *order.StaleCartError
		persistErr    *order.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &statusErr),
		errors.As(err, &areaErr),
		errors.As(err, &staleErr):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, order.ErrRestaurantInactive):
		return http.StatusForbidden, "restaurant is not accepting orders"
	case errors.Is(err, order.ErrRestaurantNotFound),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, order.ErrTerminalStatus),
		errors.Is(err, order.ErrNoNextStatus),
		errors.Is(err, order.ErrVersionConflict),
		errors.Is(err, order.ErrIdempotencyKeyExpired),
		errors.Is(err, order.ErrIdempotencyKeyReused):
		return http.StatusConflict, err.Error()
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError, "could not save the order, please try again"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
