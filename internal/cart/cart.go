// Package cart implements the client-side shopping cart. The cart is scoped
// to one restaurant and one origin and is written through to a local store on
// every mutation.
package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Kmzf777/foodshorts/internal/domain/order"
	"github.com/Kmzf777/foodshorts/internal/localstore"
)

// RecordName is the local store record holding the cart.
const RecordName = "foodshorts-cart"

// Item is one cart line. A cart holds at most one Item per product.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Notes     string
}

// Subtotal is Price times Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemInput is a product being added to the cart.
type ItemInput struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Notes     string
}

// State is the persisted cart record.
type State struct {
	RestaurantSlug string
	// Origin is empty until the cart is initialized.
	Origin order.Origin
	// TableNumber is set only for table carts.
	TableNumber *int
	Items       []Item
}

// Cart is the cart store. It is not safe for concurrent use.
type Cart struct {
	store localstore.Store
	state State
}

// Open loads the cart from store. A missing record yields an empty cart.
func Open(store localstore.Store) (*Cart, error) {
	c := &Cart{store: store}
	data, err := store.Load(RecordName)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		return c, nil
	case err != nil:
		return nil, errors.Wrap(err, "load cart")
	}
	if err := c.state.UnmarshalJSON(data); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return c, nil
}

func (c *Cart) save() error {
	data, err := c.state.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := c.store.Save(RecordName, data); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}

// Initialize scopes the cart to a restaurant and origin. Switching to a
// different restaurant drops all items. tableNumber is kept only for table
// carts.
func (c *Cart) Initialize(slug string, origin order.Origin, tableNumber *int) error {
	if c.state.RestaurantSlug != "" && c.state.RestaurantSlug != slug {
		c.state.Items = nil
	}
	c.state.RestaurantSlug = slug
	c.state.Origin = origin
	c.state.TableNumber = nil
	if origin == order.OriginTable && tableNumber != nil {
		n := *tableNumber
		c.state.TableNumber = &n
	}
	return c.save()
}

func (c *Cart) find(productID string) int {
	for i := range c.state.Items {
		if c.state.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem adds one unit of a product. An existing line is incremented and
// keeps its name, price and notes.
func (c *Cart) AddItem(in ItemInput) error {
	if i := c.find(in.ProductID); i >= 0 {
		c.state.Items[i].Quantity++
		return c.save()
	}
	c.state.Items = append(c.state.Items, Item{
		ProductID: in.ProductID,
		Name:      in.Name,
		Price:     in.Price,
		Quantity:  1,
		Notes:     in.Notes,
	})
	return c.save()
}

// RemoveItem drops the line for productID, if any.
func (c *Cart) RemoveItem(productID string) error {
	i := c.find(productID)
	if i < 0 {
		return nil
	}
	c.state.Items = append(c.state.Items[:i], c.state.Items[i+1:]...)
	return c.save()
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(productID)
	}
	i := c.find(productID)
	if i < 0 {
		return nil
	}
	c.state.Items[i].Quantity = quantity
	return c.save()
}

// UpdateNotes replaces the notes of a line.
func (c *Cart) UpdateNotes(productID, notes string) error {
	i := c.find(productID)
	if i < 0 {
		return nil
	}
	c.state.Items[i].Notes = notes
	return c.save()
}

// Clear empties the cart and forgets the table. Restaurant and origin stay.
func (c *Cart) Clear() error {
	c.state.Items = nil
	c.state.TableNumber = nil
	return c.save()
}

// Total is the sum of line subtotals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.state.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	var n int
	for _, it := range c.state.Items {
		n += it.Quantity
	}
	return n
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []Item {
	return append([]Item(nil), c.state.Items...)
}

// Snapshot returns a deep copy of the cart state.
func (c *Cart) Snapshot() State {
	s := c.state
	s.Items = c.Items()
	if s.TableNumber != nil {
		n := *s.TableNumber
		s.TableNumber = &n
	}
	return s
}

// Lines converts the cart into submission lines.
func (c *Cart) Lines() []order.Line {
	lines := make([]order.Line, 0, len(c.state.Items))
	for _, it := range c.state.Items {
		lines = append(lines, order.Line{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Notes:     it.Notes,
		})
	}
	return lines
}
