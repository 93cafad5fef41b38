package api

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
	"github.com/Kmzf777/foodshorts/internal/domain/order"
)

// EncodeReceipt writes {orderId, orderNumber}.
func EncodeReceipt(e *jx.Encoder, r order.Receipt) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(r.OrderID)
	e.FieldStart("orderNumber")
	e.Int64(r.OrderNumber)
	e.ObjEnd()
}

// DecodeReceipt parses a POST /api/orders success body.
func DecodeReceipt(data []byte) (order.Receipt, error) {
	var r order.Receipt
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderId":
			r.OrderID, err = d.Str()
		case "orderNumber":
			r.OrderNumber, err = d.Int64()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return order.Receipt{}, errors.Wrap(err, "decode receipt")
	}
	return r, nil
}

// EncodeOrder writes o as seen by the dashboard.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("restaurantId")
	e.Str(o.RestaurantID)
	e.FieldStart("orderNumber")
	e.Int64(o.Number)
	e.FieldStart("origin")
	e.Str(string(o.Origin))
	if o.TableNumber != nil {
		e.FieldStart("tableNumber")
		e.Int(*o.TableNumber)
	}
	if o.CustomerName != "" {
		e.FieldStart("customerName")
		e.Str(o.CustomerName)
	}
	if o.CustomerPhone != "" {
		e.FieldStart("customerPhone")
		e.Str(o.CustomerPhone)
	}
	if o.CustomerID != "" {
		e.FieldStart("customerId")
		e.Str(o.CustomerID)
	}
	if o.PaymentMethod != "" {
		e.FieldStart("paymentMethod")
		e.Str(string(o.PaymentMethod))
	}
	if o.DeliveryAddress != nil {
		e.FieldStart("deliveryAddress")
		o.DeliveryAddress.Encode(e)
	}
	e.FieldStart("subtotal")
	encodeMoney(e, o.Subtotal)
	e.FieldStart("deliveryFee")
	encodeMoney(e, o.DeliveryFee)
	e.FieldStart("total")
	encodeMoney(e, o.Total)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("version")
	e.Int(o.Version)
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano))
	encodeOptTime(e, "confirmedAt", o.ConfirmedAt)
	encodeOptTime(e, "completedAt", o.CompletedAt)

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("productId")
		if it.ProductID == "" {
			e.Null()
		} else {
			e.Str(it.ProductID)
		}
		e.FieldStart("productName")
		e.Str(it.ProductName)
		e.FieldStart("productPrice")
		encodeMoney(e, it.ProductPrice)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("subtotal")
		encodeMoney(e, it.Subtotal)
		if it.Notes != "" {
			e.FieldStart("notes")
			e.Str(it.Notes)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeOptTime(e *jx.Encoder, field string, t *time.Time) {
	if t == nil {
		return
	}
	e.FieldStart(field)
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

// EncodeOrderList writes {orders: [...]}.
func EncodeOrderList(e *jx.Encoder, orders []order.Order) {
	e.ObjStart()
	e.FieldStart("orders")
	e.ArrStart()
	for i := range orders {
		EncodeOrder(e, &orders[i])
	}
	e.ArrEnd()
	e.ObjEnd()
}

// DecodeOrder parses an order body written by EncodeOrder.
func DecodeOrder(data []byte) (*order.Order, error) {
	o := new(order.Order)
	if err := decodeOrder(jx.DecodeBytes(data), o); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return o, nil
}

// DecodeOrderList parses a {orders: [...]} body.
func DecodeOrderList(data []byte) ([]order.Order, error) {
	var orders []order.Order
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "orders" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var o order.Order
			if err := decodeOrder(d, &o); err != nil {
				return err
			}
			orders = append(orders, o)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode order list")
	}
	return orders, nil
}

func decodeOrder(d *jx.Decoder, o *order.Order) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "restaurantId":
			o.RestaurantID, err = d.Str()
		case "orderNumber":
			o.Number, err = d.Int64()
		case "origin":
			var v string
			v, err = d.Str()
			o.Origin = order.Origin(v)
		case "tableNumber":
			var v int
			v, err = d.Int()
			o.TableNumber = &v
		case "customerName":
			o.CustomerName, err = d.Str()
		case "customerPhone":
			o.CustomerPhone, err = d.Str()
		case "customerId":
			o.CustomerID, err = d.Str()
		case "paymentMethod":
			var v string
			v, err = d.Str()
			o.PaymentMethod = order.PaymentMethod(v)
		case "deliveryAddress":
			addr := new(customer.Address)
			err = addr.Decode(d)
			o.DeliveryAddress = addr
		case "subtotal":
			o.Subtotal, err = decodeMoney(d, key)
		case "deliveryFee":
			o.DeliveryFee, err = decodeMoney(d, key)
		case "total":
			o.Total, err = decodeMoney(d, key)
		case "status":
			var v string
			v, err = d.Str()
			o.Status = order.Status(v)
		case "version":
			o.Version, err = d.Int()
		case "createdAt":
			o.CreatedAt, err = decodeTime(d)
		case "confirmedAt":
			var t time.Time
			t, err = decodeTime(d)
			o.ConfirmedAt = &t
		case "completedAt":
			var t time.Time
			t, err = decodeTime(d)
			o.CompletedAt = &t
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				var it order.Item
				if err := decodeItem(d, &it); err != nil {
					return err
				}
				it.OrderID = o.ID
				o.Items = append(o.Items, it)
				return nil
			})
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
}

func decodeItem(d *jx.Decoder, it *order.Item) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "id":
			it.ID, err = d.Str()
		case "productId":
			it.ProductID, err = d.Str()
		case "productName":
			it.ProductName, err = d.Str()
		case "productPrice":
			it.ProductPrice, err = decodeMoney(d, key)
		case "quantity":
			it.Quantity, err = d.Int()
		case "subtotal":
			it.Subtotal, err = decodeMoney(d, key)
		case "notes":
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

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// StatusRequest is the body of PATCH /api/orders/{orderId} and of
// POST /api/orders/{orderId}/advance. Version 0 skips the version check.
type StatusRequest struct {
	Status  string
	Version int
}

// Encode writes {status?, version?}.
func (r StatusRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	if r.Status != "" {
		e.FieldStart("status")
		e.Str(r.Status)
	}
	if r.Version != 0 {
		e.FieldStart("version")
		e.Int(r.Version)
	}
	e.ObjEnd()
}

// DecodeStatusRequest parses a status change body. An empty body is a zero
// request.
func DecodeStatusRequest(data []byte) (StatusRequest, error) {
	var r StatusRequest
	if len(data) == 0 {
		return r, nil
	}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return r, &order.ValidationError{Message: "request body must be a JSON object"}
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "status":
			r.Status, err = decodeStr(d, key)
		case "version":
			r.Version, err = decodeInt(d, key)
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		var vErr *order.ValidationError
		if errors.As(err, &vErr) {
			return StatusRequest{}, vErr
		}
		return StatusRequest{}, &order.ValidationError{Message: "malformed JSON body"}
	}
	return r, nil
}

// EncodeError writes {"error": msg}.
func EncodeError(e *jx.Encoder, msg string) {
	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()
}

// DecodeError extracts the message of an error body. It returns "" when the
// body carries none.
func DecodeError(data []byte) string {
	var msg string
	_ = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "error" || d.Next() != jx.String {
			return d.Skip()
		}
		v, err := d.Str()
		msg = v
		return err
	})
	return msg
}
