package model

import "github.com/shopspring/decimal"

// CurrencyPlaces is the currency quantum line totals are rounded to.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Cart is the in-memory view of a user's cart joined against live product data.
type Cart struct {
	UserID int
	Items  map[int]CartItem
	Total  decimal.Decimal
}

type CartItem struct {
	Product         Product
	Quantity        int
	DiscountPercent int
	LineTotal       decimal.Decimal
}

func NewCart(userID int) *Cart {
	return &Cart{UserID: userID, Items: make(map[int]CartItem), Total: decimal.Zero}
}

// LineTotal is price * quantity * (1 - discountPercent/100), rounded half-up to cents.
func LineTotal(price decimal.Decimal, quantity, discountPercent int) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(discountPercent)).Div(hundred))
	return price.Mul(decimal.NewFromInt(int64(quantity))).Mul(factor).Round(CurrencyPlaces)
}

// Put inserts or replaces the line for product and recomputes the total.
func (c *Cart) Put(product Product, quantity, discountPercent int) {
	c.Items[product.ID] = CartItem{
		Product:         product,
		Quantity:        quantity,
		DiscountPercent: discountPercent,
		LineTotal:       LineTotal(product.Price, quantity, discountPercent),
	}
	c.recalculate()
}

func (c *Cart) Remove(productID int) {
	delete(c.Items, productID)
	c.recalculate()
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal)
	}
	c.Total = total
}
