package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		qty      int
		discount int
		want     string
	}{
		{"no discount", "10.00", 3, 0, "30.00"},
		{"percent discount", "19.99", 2, 10, "35.98"},
		{"rounds half up", "0.125", 1, 0, "0.13"},
		{"full discount", "50.00", 4, 100, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(decimal.RequireFromString(tt.price), tt.qty, tt.discount)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestCart_PutRemoveTotal(t *testing.T) {
	cart := NewCart(7)
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Total.IsZero())

	cart.Put(Product{ID: 17, Price: decimal.RequireFromString("10.00")}, 3, 0)
	cart.Put(Product{ID: 18, Price: decimal.RequireFromString("2.50")}, 2, 0)
	assert.True(t, decimal.RequireFromString("35.00").Equal(cart.Total))

	cart.Put(Product{ID: 17, Price: decimal.RequireFromString("10.00")}, 1, 0)
	assert.True(t, decimal.RequireFromString("15.00").Equal(cart.Total))

	cart.Remove(18)
	cart.Remove(99)
	assert.Len(t, cart.Items, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(cart.Total))
}

func TestProfile_HasShippingAddress(t *testing.T) {
	var nilProfile *Profile
	assert.False(t, nilProfile.HasShippingAddress())
	assert.False(t, (&Profile{Address: "1 Main", City: "X", State: "TX"}).HasShippingAddress())
	assert.True(t, (&Profile{Address: "1 Main", City: "X", State: "TX", Zip: "75001"}).HasShippingAddress())
}

func TestOrder_Subtotal(t *testing.T) {
	o := &Order{LineItems: []OrderLineItem{
		{SalesPrice: decimal.RequireFromString("10.00"), Quantity: 3, Discount: decimal.Zero},
		{SalesPrice: decimal.RequireFromString("4.00"), Quantity: 1, Discount: decimal.RequireFromString("1.00")},
	}}
	assert.True(t, decimal.RequireFromString("33.00").Equal(o.Subtotal()))
}
