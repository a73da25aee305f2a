package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// PlaceholderImageURL is returned for products stored without an image.
const PlaceholderImageURL = "https://placehold.co/300x300/e0e0e0/333333?text=No+Image"

type User struct {
	ID             int
	Username       string
	HashedPassword string
	Role           Role
}

type Profile struct {
	ProfileID int
	UserID    int
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Address   string
	City      string
	State     string
	Zip       string
}

// HasShippingAddress reports whether every field checkout copies onto an order is set.
func (p *Profile) HasShippingAddress() bool {
	return p != nil && p.Address != "" && p.City != "" && p.State != "" && p.Zip != ""
}

type Category struct {
	ID          int
	Name        string
	Description string
}

type Product struct {
	ID          int
	Name        string
	Price       decimal.Decimal
	CategoryID  int
	Description string
	Color       string
	Stock       int
	Featured    bool
	ImageURL    string
}

// ProductFilter holds the optional product search filters. A nil field is not applied.
type ProductFilter struct {
	CategoryID *int
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Color      *string
}

func (f ProductFilter) IsEmpty() bool {
	return f.CategoryID == nil && f.MinPrice == nil && f.MaxPrice == nil && f.Color == nil
}

// CartRow is one persisted (user, product, quantity) tuple. Quantity is always >= 1.
type CartRow struct {
	UserID    int
	ProductID int
	Quantity  int
}

type Order struct {
	ID             int
	UserID         int
	Date           time.Time
	Address        string
	City           string
	State          string
	Zip            string
	ShippingAmount decimal.Decimal
	LineItems      []OrderLineItem
}

// OrderLineItem carries the product as captured at checkout. Product.ID is 0
// when the live product has since been deleted.
type OrderLineItem struct {
	ID         int
	OrderID    int
	Product    Product
	SalesPrice decimal.Decimal
	Quantity   int
	Discount   decimal.Decimal
}

func (li OrderLineItem) LineTotal() decimal.Decimal {
	return li.SalesPrice.Mul(decimal.NewFromInt(int64(li.Quantity))).Sub(li.Discount)
}

func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.LineItems {
		total = total.Add(li.LineTotal())
	}
	return total
}

// OrderMessage is published after an order commits.
type OrderMessage struct {
	OrderID    int       `json:"order_id"`
	UserID     int       `json:"user_id"`
	ProductIDs []int     `json:"product_ids"`
	PlacedAt   time.Time `json:"placed_at"`
}
