// Package session keeps the authenticated delivery customer on the client.
package session

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
	"github.com/Kmzf777/foodshorts/internal/localstore"
)

// RecordName is the local store record holding the session.
const RecordName = "foodshorts-customer-auth"

// Session is the customer session store. It is not safe for concurrent use.
type Session struct {
	store         localstore.Store
	customer      *customer.Customer
	authenticated bool
	hydrated      bool
}

// Open loads the session from store. HasHydrated reports true once Open
// returns successfully; the flag itself is never persisted.
func Open(store localstore.Store) (*Session, error) {
	s := &Session{store: store}
	data, err := store.Load(RecordName)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
	case err != nil:
		return nil, errors.Wrap(err, "load session")
	default:
		if err := s.decode(data); err != nil {
			return nil, errors.Wrap(err, "decode session")
		}
	}
	s.hydrated = true
	return s, nil
}

// HasHydrated reports whether the persisted session has been loaded.
func (s *Session) HasHydrated() bool { return s.hydrated }

// IsAuthenticated reports whether a customer is logged in.
func (s *Session) IsAuthenticated() bool { return s.authenticated }

// Customer returns a copy of the logged in customer, or nil.
func (s *Session) Customer() *customer.Customer {
	if s.customer == nil {
		return nil
	}
	return cloneCustomer(s.customer)
}

// Login stores c as the authenticated customer.
func (s *Session) Login(c customer.Customer) error {
	s.customer = cloneCustomer(&c)
	s.authenticated = true
	return s.save()
}

// Logout forgets the customer.
func (s *Session) Logout() error {
	s.customer = nil
	s.authenticated = false
	return s.save()
}

// Patch is a partial customer update. Nil fields are left unchanged.
type Patch struct {
	Name     *string
	CPF      *string
	Phone    *string
	WhatsApp *string
	Email    *string
	Address  *customer.Address
}

// UpdateCustomer shallow-merges p into the current customer. It does nothing
// while logged out.
func (s *Session) UpdateCustomer(p Patch) error {
	if s.customer == nil {
		return nil
	}
	c := s.customer
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{p.Name, &c.Name},
		{p.CPF, &c.CPF},
		{p.Phone, &c.Phone},
		{p.WhatsApp, &c.WhatsApp},
		{p.Email, &c.Email},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if p.Address != nil {
		addr := *p.Address
		c.Address = &addr
	}
	return s.save()
}

func (s *Session) save() error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("customer")
	if s.customer == nil {
		e.Null()
	} else {
		s.customer.Encode(&e)
	}
	e.FieldStart("isAuthenticated")
	e.Bool(s.authenticated)
	e.ObjEnd()

	if err := s.store.Save(RecordName, e.Bytes()); err != nil {
		return errors.Wrap(err, "save session")
	}
	return nil
}

func (s *Session) decode(data []byte) error {
	return jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "customer":
			if d.Next() == jx.Null {
				s.customer = nil
				return d.Null()
			}
			c := new(customer.Customer)
			if err := c.Decode(d); err != nil {
				return errors.Wrap(err, "customer")
			}
			s.customer = c
		case "isAuthenticated":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "isAuthenticated")
			}
			s.authenticated = v
		default:
			return d.Skip()
		}
		return nil
	})
}

func cloneCustomer(c *customer.Customer) *customer.Customer {
	out := *c
	if c.Address != nil {
		addr := *c.Address
		out.Address = &addr
	}
	return &out
}
