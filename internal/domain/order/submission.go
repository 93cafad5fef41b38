package order

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
)

// Submission is a client-asserted order. Details holds exactly one of
// TableDetails or DeliveryDetails.
type Submission struct {
	RestaurantSlug string
	Items          []Line
	Details        Details
	// IdempotencyKey is optional. Retries carrying the same key replay the
	// original result.
	IdempotencyKey string
}

// Line is one cart line as submitted by the client.
type Line struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Notes     string
}

// Details is the origin-specific part of a submission.
type Details interface {
	Origin() Origin
}

// TableDetails identifies a dine-in order.
type TableDetails struct {
	TableNumber   int
	CustomerName  string
	CustomerPhone string
}

func (TableDetails) Origin() Origin { return OriginTable }

// DeliveryDetails identifies a delivery order of an authenticated customer.
type DeliveryDetails struct {
	CustomerID    string
	PaymentMethod PaymentMethod
	Address       customer.Address
	SaveAddress   bool
}

func (DeliveryDetails) Origin() Origin { return OriginDelivery }

const (
	minCustomerNameLen = 2
	minPhoneDigits     = 10

	// Bounds of the INTEGER and NUMERIC(10, 2) columns orders are stored in.
	maxInt4     = math.MaxInt32
	moneyPlaces = 2
)

// MaxAmount is the largest price, line total or order total that can be
// stored.
var MaxAmount = decimal.RequireFromString("99999999.99")

// Validate checks the payload rules and returns a *ValidationError naming the
// first offending field.
func (s *Submission) Validate() error {
	if strings.TrimSpace(s.RestaurantSlug) == "" {
		return invalid("restaurantSlug", "is required")
	}

	switch d := s.Details.(type) {
	case TableDetails:
		if err := d.validate(); err != nil {
			return err
		}
	case DeliveryDetails:
		if err := d.validate(); err != nil {
			return err
		}
	case nil:
		return invalid("origin", "is required")
	default:
		return invalid("origin", fmt.Sprintf("unsupported origin %q", d.Origin()))
	}

	if len(s.Items) == 0 {
		return invalid("items", "add at least one item")
	}
	total := decimal.Zero
	for i, l := range s.Items {
		if err := l.validate(fmt.Sprintf("items[%d]", i)); err != nil {
			return err
		}
		total = total.Add(l.Subtotal())
	}
	if total.GreaterThan(MaxAmount) {
		return invalid("items", "order total must not exceed "+MaxAmount.String())
	}
	return nil
}

func (d TableDetails) validate() error {
	if d.TableNumber <= 0 || d.TableNumber > maxInt4 {
		return invalid("tableNumber", "must be a positive integer")
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.CustomerName)) < minCustomerNameLen {
		return invalid("customerName", "must have at least 2 characters")
	}
	if countDigits(d.CustomerPhone) < minPhoneDigits {
		return invalid("customerPhone", "must have at least 10 digits")
	}
	return nil
}

func (d DeliveryDetails) validate() error {
	if _, err := uuid.Parse(d.CustomerID); err != nil {
		return invalid("customerId", "must be a valid identifier")
	}
	if !d.PaymentMethod.Valid() {
		return invalid("paymentMethod", "must be one of cash, credit, debit, pix")
	}
	a := d.Address
	required := []struct{ field, value string }{
		{"deliveryAddress.street", a.Street},
		{"deliveryAddress.number", a.Number},
		{"deliveryAddress.neighborhood", a.Neighborhood},
		{"deliveryAddress.city", a.City},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid(r.field, "is required")
		}
	}
	if !isStateCode(a.State) {
		return invalid("deliveryAddress.state", "must be a 2-letter state code")
	}
	return nil
}

// Fingerprint is a digest of everything that shapes the order created from
// s. Retries of the same submission share it. The idempotency key itself is
// not part of it.
func (s *Submission) Fingerprint() string {
	h := sha256.New()
	field := func(v string) {
		h.Write([]byte(v))
		h.Write([]byte{0})
	}
	field(s.RestaurantSlug)
	switch d := s.Details.(type) {
	case TableDetails:
		field(string(OriginTable))
		field(fmt.Sprint(d.TableNumber))
		field(d.CustomerName)
		field(d.CustomerPhone)
	case DeliveryDetails:
		a := d.Address
		field(string(OriginDelivery))
		field(d.CustomerID)
		field(string(d.PaymentMethod))
		for _, v := range []string{a.Street, a.Number, a.Complement, a.Neighborhood, a.City, a.State, a.Zipcode} {
			field(v)
		}
	}
	for _, l := range s.Items {
		field(l.ProductID)
		field(l.Name)
		field(l.Price.StringFixed(moneyPlaces))
		field(fmt.Sprint(l.Quantity))
		field(l.Notes)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (l Line) validate(field string) error {
	if _, err := uuid.Parse(l.ProductID); err != nil {
		return invalid(field+".productId", "must be a valid identifier")
	}
	if strings.TrimSpace(l.Name) == "" {
		return invalid(field+".name", "is required")
	}
	if !l.Price.IsPositive() {
		return invalid(field+".price", "must be greater than zero")
	}
	if !l.Price.Equal(l.Price.Truncate(moneyPlaces)) {
		return invalid(field+".price", "must have at most 2 decimal places")
	}
	if l.Price.GreaterThan(MaxAmount) {
		return invalid(field+".price", "must not exceed "+MaxAmount.String())
	}
	if l.Quantity <= 0 || l.Quantity > maxInt4 {
		return invalid(field+".quantity", "must be a positive integer")
	}
	if l.Subtotal().GreaterThan(MaxAmount) {
		return invalid(field+".quantity", "line total must not exceed "+MaxAmount.String())
	}
	return nil
}

// Subtotal is Price times Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func isStateCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
