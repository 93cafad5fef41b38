// Package api is the JSON contract of the order endpoints, encoded and
// decoded with jx. Both the server handlers and the client use it.
package api

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
	"github.com/Kmzf777/foodshorts/internal/domain/order"
)

// submissionDoc collects every field of the discriminated payload before the
// origin tag decides which variant is built. JSON objects are unordered, so
// origin may arrive after the variant fields.
type submissionDoc struct {
	RestaurantSlug string
	Origin         string
	Items          []order.Line

	TableNumber   int
	CustomerName  string
	CustomerPhone string

	CustomerID    string
	PaymentMethod string
	Address       customer.Address
	SaveAddress   bool
}

// DecodeSubmission parses a POST /api/orders body. Malformed input is
// reported as *order.ValidationError naming the offending field. The result
// is not validated against the payload rules; call Submission.Validate.
func DecodeSubmission(data []byte) (order.Submission, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return order.Submission{}, &order.ValidationError{Message: "request body must be a JSON object"}
	}

	var doc submissionDoc
	if err := doc.decode(d); err != nil {
		var vErr *order.ValidationError
		if errors.As(err, &vErr) {
			return order.Submission{}, vErr
		}
		return order.Submission{}, &order.ValidationError{Message: "malformed JSON body"}
	}
	return doc.submission()
}

func (doc *submissionDoc) submission() (order.Submission, error) {
	sub := order.Submission{
		RestaurantSlug: doc.RestaurantSlug,
		Items:          doc.Items,
	}
	switch order.Origin(doc.Origin) {
	case order.OriginTable:
		sub.Details = order.TableDetails{
			TableNumber:   doc.TableNumber,
			CustomerName:  doc.CustomerName,
			CustomerPhone: doc.CustomerPhone,
		}
	case order.OriginDelivery:
		sub.Details = order.DeliveryDetails{
			CustomerID:    doc.CustomerID,
			PaymentMethod: order.PaymentMethod(doc.PaymentMethod),
			Address:       doc.Address,
			SaveAddress:   doc.SaveAddress,
		}
	case "":
	default:
		return order.Submission{}, &order.ValidationError{
			Field:   "origin",
			Message: "must be table or delivery",
		}
	}
	return sub, nil
}

func typeError(field, want string) *order.ValidationError {
	return &order.ValidationError{Field: field, Message: "must be " + want}
}

func (doc *submissionDoc) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "restaurantSlug":
			doc.RestaurantSlug, err = decodeStr(d, key)
		case "origin":
			doc.Origin, err = decodeStr(d, key)
		case "tableNumber":
			doc.TableNumber, err = decodeInt(d, key)
		case "customerName":
			doc.CustomerName, err = decodeStr(d, key)
		case "customerPhone":
			doc.CustomerPhone, err = decodeStr(d, key)
		case "customerId":
			doc.CustomerID, err = decodeStr(d, key)
		case "paymentMethod":
			doc.PaymentMethod, err = decodeStr(d, key)
		case "saveAddress":
			if d.Next() != jx.Bool {
				return typeError(key, "a boolean")
			}
			doc.SaveAddress, err = d.Bool()
		case "deliveryAddress":
			err = decodeAddress(d, &doc.Address)
		case "items":
			if d.Next() != jx.Array {
				return typeError(key, "an array")
			}
			err = d.Arr(func(d *jx.Decoder) error {
				field := fmt.Sprintf("items[%d]", len(doc.Items))
				l, err := decodeLine(d, field)
				if err != nil {
					return err
				}
				doc.Items = append(doc.Items, l)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
}

func decodeAddress(d *jx.Decoder, a *customer.Address) error {
	const prefix = "deliveryAddress"
	if d.Next() != jx.Object {
		return typeError(prefix, "an object")
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var dst *string
		switch key {
		case "street":
			dst = &a.Street
		case "number":
			dst = &a.Number
		case "complement":
			dst = &a.Complement
		case "neighborhood":
			dst = &a.Neighborhood
		case "city":
			dst = &a.City
		case "state":
			dst = &a.State
		case "zipcode":
			dst = &a.Zipcode
		default:
			return d.Skip()
		}
		v, err := decodeStr(d, prefix+"."+key)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}

func decodeLine(d *jx.Decoder, field string) (order.Line, error) {
	var l order.Line
	if d.Next() != jx.Object {
		return l, typeError(field, "an object")
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		name := field + "." + key
		switch key {
		case "productId":
			l.ProductID, err = decodeStr(d, name)
		case "name":
			l.Name, err = decodeStr(d, name)
		case "price":
			l.Price, err = decodeMoney(d, name)
		case "quantity":
			l.Quantity, err = decodeInt(d, name)
		case "notes":
			l.Notes, err = decodeStr(d, name)
		default:
			return d.Skip()
		}
		return err
	})
	return l, err
}

func decodeStr(d *jx.Decoder, field string) (string, error) {
	if d.Next() != jx.String {
		return "", typeError(field, "a string")
	}
	return d.Str()
}

func decodeInt(d *jx.Decoder, field string) (int, error) {
	if d.Next() != jx.Number {
		return 0, typeError(field, "an integer")
	}
	n, err := d.Num()
	if err != nil {
		return 0, err
	}
	// 2.0 is accepted as 2.
	v, err := n.Int64()
	if err != nil {
		return 0, typeError(field, "an integer")
	}
	return int(v), nil
}

func decodeMoney(d *jx.Decoder, field string) (decimal.Decimal, error) {
	if d.Next() != jx.Number {
		return decimal.Decimal{}, typeError(field, "a number")
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	v, err := decimal.NewFromString(strings.Trim(n.String(), `"`))
	if err != nil {
		return decimal.Decimal{}, typeError(field, "a number")
	}
	return v, nil
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

// EncodeSubmission writes sub as a POST /api/orders body.
func EncodeSubmission(e *jx.Encoder, sub order.Submission) {
	e.ObjStart()
	e.FieldStart("restaurantSlug")
	e.Str(sub.RestaurantSlug)

	switch d := sub.Details.(type) {
	case order.TableDetails:
		e.FieldStart("origin")
		e.Str(string(order.OriginTable))
		e.FieldStart("tableNumber")
		e.Int(d.TableNumber)
		e.FieldStart("customerName")
		e.Str(d.CustomerName)
		e.FieldStart("customerPhone")
		e.Str(d.CustomerPhone)
	case order.DeliveryDetails:
		e.FieldStart("origin")
		e.Str(string(order.OriginDelivery))
		e.FieldStart("customerId")
		e.Str(d.CustomerID)
		e.FieldStart("paymentMethod")
		e.Str(string(d.PaymentMethod))
		e.FieldStart("deliveryAddress")
		d.Address.Encode(e)
		if d.SaveAddress {
			e.FieldStart("saveAddress")
			e.Bool(true)
		}
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, l := range sub.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("price")
		e.Num(jx.Num(l.Price.String()))
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		if l.Notes != "" {
			e.FieldStart("notes")
			e.Str(l.Notes)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
