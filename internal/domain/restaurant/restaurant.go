package restaurant

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when no restaurant matches the lookup.
var ErrNotFound = errors.New("restaurant not found")

// PlanStatus is the subscription state of a restaurant.
type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanCanceled PlanStatus = "canceled"
	PlanExpired  PlanStatus = "expired"
	PlanPending  PlanStatus = "pending"
)

// Restaurant is the subset of restaurant data the order core needs.
type Restaurant struct {
	ID         string
	OwnerID    string
	Slug       string
	Name       string
	PlanStatus PlanStatus
	// City is the configured delivery city. Empty means no restriction.
	City string
}

// Active reports whether the restaurant has an active subscription.
func (r *Restaurant) Active() bool {
	return r.PlanStatus == PlanActive
}

// Delivers reports whether the restaurant delivers to city. Restaurants
// without a configured city deliver anywhere.
func (r *Restaurant) Delivers(city string) bool {
	if strings.TrimSpace(r.City) == "" {
		return true
	}
	return NormalizeCity(r.City) == NormalizeCity(city)
}

// Repository looks up restaurants.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*Restaurant, error)
	GetByOwner(ctx context.Context, ownerID string) (*Restaurant, error)
}

// NormalizeCity folds a city name for comparison: accents are stripped after
// NFD decomposition, letters are lower-cased and runs of whitespace collapse
// into a single space.
func NormalizeCity(city string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, city)
	if err != nil {
		folded = city
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
