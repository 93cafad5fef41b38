package customer

import (
	"testing"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomer_EncodeDecode(t *testing.T) {
	in := Customer{
		ID:       "5d2b7a10-6c1e-4f0a-8e55-0b7d7c3e0001",
		Name:     "Beatriz Lima",
		CPF:      "12345678900",
		Phone:    "11987654321",
		WhatsApp: "11987654321",
		Address: &Address{
			Street:       "Rua Augusta",
			Number:       "100",
			Neighborhood: "Consolação",
			City:         "São Paulo",
			State:        "SP",
		},
	}

	var e jx.Encoder
	in.Encode(&e)
	assert.NotContains(t, e.String(), "email")
	assert.NotContains(t, e.String(), "complement")

	var out Customer
	require.NoError(t, out.Decode(jx.DecodeBytes(e.Bytes())))
	assert.Equal(t, in, out)
}

func TestCustomer_DecodeLenient(t *testing.T) {
	var c Customer
	err := c.Decode(jx.DecodeStr(`{"id":"c1","email":null,"address":null,"createdAt":"2026-01-01"}`))
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Empty(t, c.Email)
	assert.Nil(t, c.Address)
}

func TestAddress_DecodeTypeError(t *testing.T) {
	var a Address
	err := a.Decode(jx.DecodeStr(`{"street":"Rua A","number":12}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"number"`)
}
