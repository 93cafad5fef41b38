package cart

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Kmzf777/foodshorts/internal/domain/order"
)

// MarshalJSON encodes the record as
// {restaurantSlug, origin, tableNumber, items[]}. Unset values are null.
func (s State) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	e.ObjStart()

	e.FieldStart("restaurantSlug")
	if s.RestaurantSlug == "" {
		e.Null()
	} else {
		e.Str(s.RestaurantSlug)
	}

	e.FieldStart("origin")
	if s.Origin == "" {
		e.Null()
	} else {
		e.Str(string(s.Origin))
	}

	e.FieldStart("tableNumber")
	if s.TableNumber == nil {
		e.Null()
	} else {
		e.Int(*s.TableNumber)
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range s.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		e.Num(jx.Num(it.Price.String()))
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		if it.Notes != "" {
			e.FieldStart("notes")
			e.Str(it.Notes)
		}
		e.ObjEnd()
	}
	e.ArrEnd()

	e.ObjEnd()
	return e.Bytes(), nil
}

// UnmarshalJSON decodes a record written by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	*s = State{}
	return jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		switch key {
		case "restaurantSlug":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "restaurantSlug")
			}
			s.RestaurantSlug = v
		case "origin":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "origin")
			}
			s.Origin = order.Origin(v)
		case "tableNumber":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "tableNumber")
			}
			s.TableNumber = &v
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var it Item
				if err := it.decode(d); err != nil {
					return errors.Wrapf(err, "items[%d]", len(s.Items))
				}
				s.Items = append(s.Items, it)
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	})
}

func (it *Item) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			it.ProductID, err = d.Str()
		case "name":
			it.Name, err = d.Str()
		case "price":
			it.Price, err = decodeDecimal(d)
		case "quantity":
			it.Quantity, err = d.Int()
		case "notes":
			if d.Next() == jx.Null {
				return d.Null()
			}
			it.Notes, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
}

// decodeDecimal reads a JSON number, or a number encoded as a string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(strings.Trim(n.String(), `"`))
}
