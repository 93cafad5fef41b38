// Package client talks to the FoodShorts order API on behalf of the menu and
// the dashboard.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Kmzf777/foodshorts/internal/api"
	"github.com/Kmzf777/foodshorts/internal/domain/order"
	"github.com/Kmzf777/foodshorts/internal/handler"
	"github.com/Kmzf777/foodshorts/pkg/httpmiddleware"
)

const maxResponseBytes = 4 << 20

// APIError is a non-2xx response of the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// Client is an HTTP client of the order API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the operator bearer token sent to dashboard endpoints.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a Client for the API served at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse base url %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// SubmitOrder posts sub. A non-empty idempotencyKey makes retries of the same
// submission return the original receipt.
func (c *Client) SubmitOrder(ctx context.Context, sub order.Submission, idempotencyKey string) (order.Receipt, error) {
	var e jx.Encoder
	api.EncodeSubmission(&e, sub)

	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(handler.IdempotencyKeyHeader, idempotencyKey)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/orders", nil, e.Bytes(), header)
	if err != nil {
		return order.Receipt{}, err
	}
	r, err := api.DecodeReceipt(resp.body)
	if err != nil {
		return order.Receipt{}, err
	}
	r.Replayed = resp.header.Get(handler.ReplayedHeader) == "true"
	return r, nil
}

// ListOrders returns the operator's orders, newest first.
func (c *Client) ListOrders(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/orders", q, nil, nil)
	if err != nil {
		return nil, err
	}
	return api.DecodeOrderList(resp.body)
}

// GetOrder returns one order with its items.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return api.DecodeOrder(resp.body)
}

// UpdateStatus sets the order status. A zero version skips the conflict
// check.
func (c *Client) UpdateStatus(ctx context.Context, orderID string, status order.Status, version int) (*order.Order, error) {
	var e jx.Encoder
	api.StatusRequest{Status: string(status), Version: version}.Encode(&e)
	resp, err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(orderID), nil, e.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	return api.DecodeOrder(resp.body)
}

// Advance moves the order to its next status.
func (c *Client) Advance(ctx context.Context, orderID string, version int) (*order.Order, error) {
	var e jx.Encoder
	api.StatusRequest{Version: version}.Encode(&e)
	resp, err := c.do(ctx, http.MethodPost, "/api/orders/"+url.PathEscape(orderID)+"/advance", nil, e.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	return api.DecodeOrder(resp.body)
}

type response struct {
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, header http.Header) (*response, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: q.Encode()})

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	for k, vv := range header {
		req.Header[k] = vv
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := httpmiddleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(httpmiddleware.RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: api.DecodeError(data)}
	}
	return &response{header: resp.Header, body: data}, nil
}
