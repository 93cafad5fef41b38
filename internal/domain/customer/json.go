package customer

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encode writes a as a JSON object. Empty optional fields are omitted.
func (a Address) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("street")
	e.Str(a.Street)
	e.FieldStart("number")
	e.Str(a.Number)
	if a.Complement != "" {
		e.FieldStart("complement")
		e.Str(a.Complement)
	}
	e.FieldStart("neighborhood")
	e.Str(a.Neighborhood)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("state")
	e.Str(a.State)
	if a.Zipcode != "" {
		e.FieldStart("zipcode")
		e.Str(a.Zipcode)
	}
	e.ObjEnd()
}

// Decode reads a from a JSON object. Unknown fields are skipped.
func (a *Address) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
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
		if err := decodeOptStr(d, dst); err != nil {
			return errors.Wrapf(err, "decode field %q", key)
		}
		return nil
	})
}

// Encode writes c as a JSON object.
func (c Customer) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("cpf")
	e.Str(c.CPF)
	e.FieldStart("phone")
	e.Str(c.Phone)
	e.FieldStart("whatsapp")
	e.Str(c.WhatsApp)
	if c.Email != "" {
		e.FieldStart("email")
		e.Str(c.Email)
	}
	if c.Address != nil {
		e.FieldStart("address")
		c.Address.Encode(e)
	}
	e.ObjEnd()
}

// Decode reads c from a JSON object. Unknown fields are skipped.
func (c *Customer) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "id":
			dst = &c.ID
		case "name":
			dst = &c.Name
		case "cpf":
			dst = &c.CPF
		case "phone":
			dst = &c.Phone
		case "whatsapp":
			dst = &c.WhatsApp
		case "email":
			dst = &c.Email
		case "address":
			if d.Next() == jx.Null {
				c.Address = nil
				return d.Null()
			}
			addr := new(Address)
			if err := addr.Decode(d); err != nil {
				return errors.Wrap(err, "decode field \"address\"")
			}
			c.Address = addr
			return nil
		default:
			return d.Skip()
		}
		if err := decodeOptStr(d, dst); err != nil {
			return errors.Wrapf(err, "decode field %q", key)
		}
		return nil
	})
}

// decodeOptStr reads a string into dst, treating null as empty.
func decodeOptStr(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		*dst = ""
		return d.Null()
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
