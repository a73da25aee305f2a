package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Username        string `json:"username" binding:"required,max=50"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID       int        `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Role: u.Role}
}

// --- Category ---

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	CategoryID  int    `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func ToCategoryResponse(c *model.Category) CategoryResponse {
	return CategoryResponse{CategoryID: c.ID, Name: c.Name, Description: c.Description}
}

// --- Product ---

type ProductRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int             `json:"categoryId"`
	Description string          `json:"description"`
	Color       string          `json:"color"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
	ImageURL    string          `json:"imageUrl"`
}

// SearchProductsRequest binds the optional product search query. Every value
// stays a string so an empty or blank parameter reads as absent and a
// malformed one is rejected rather than ignored.
type SearchProductsRequest struct {
	CategoryID *string `form:"cat"`
	MinPrice   *string `form:"minPrice"`
	MaxPrice   *string `form:"maxPrice"`
	Color      *string `form:"color"`
}

func (r SearchProductsRequest) Filter() (model.ProductFilter, error) {
	var f model.ProductFilter
	if cat := present(r.CategoryID); cat != "" {
		id, err := strconv.Atoi(cat)
		if err != nil {
			return f, errors.New("invalid cat")
		}
		f.CategoryID = &id
	}
	var err error
	if f.MinPrice, err = parsePrice(present(r.MinPrice)); err != nil {
		return f, errors.New("invalid minPrice")
	}
	if f.MaxPrice, err = parsePrice(present(r.MaxPrice)); err != nil {
		return f, errors.New("invalid maxPrice")
	}
	if color := present(r.Color); color != "" {
		f.Color = &color
	}
	return f, nil
}

// present returns the trimmed parameter, or "" when it is missing or blank.
func present(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func parsePrice(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type ProductResponse struct {
	ProductID   int             `json:"productId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int             `json:"categoryId"`
	Description string          `json:"description"`
	Color       string          `json:"color"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
	ImageURL    string          `json:"imageUrl"`
}

// ToProductResponse substitutes the placeholder for a product stored without an image.
func ToProductResponse(p *model.Product) ProductResponse {
	imageURL := p.ImageURL
	if imageURL == "" {
		imageURL = model.PlaceholderImageURL
	}
	return ProductResponse{
		ProductID:   p.ID,
		Name:        p.Name,
		Price:       p.Price,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		Color:       p.Color,
		Stock:       p.Stock,
		Featured:    p.Featured,
		ImageURL:    imageURL,
	}
}

// --- Profile ---

type ProfileBody struct {
	ProfileID int    `json:"profileId"`
	UserID    int    `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

func (b ProfileBody) Model() model.Profile {
	return model.Profile{
		ProfileID: b.ProfileID, UserID: b.UserID,
		FirstName: b.FirstName, LastName: b.LastName, Phone: b.Phone, Email: b.Email,
		Address: b.Address, City: b.City, State: b.State, Zip: b.Zip,
	}
}

func ToProfileBody(p *model.Profile) ProfileBody {
	return ProfileBody{
		ProfileID: p.ProfileID, UserID: p.UserID,
		FirstName: p.FirstName, LastName: p.LastName, Phone: p.Phone, Email: p.Email,
		Address: p.Address, City: p.City, State: p.State, Zip: p.Zip,
	}
}

// --- Cart ---

// CartQuantity is the body of a set-quantity request: either a bare JSON
// integer or an object {"quantity": n}.
type CartQuantity int

func (q *CartQuantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var body struct {
			Quantity *int `json:"quantity"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return err
		}
		if body.Quantity == nil {
			return errors.New("quantity is required")
		}
		*q = CartQuantity(*body.Quantity)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("quantity must be an integer")
	}
	*q = CartQuantity(n)
	return nil
}

type CartResponse struct {
	Items map[int]CartItemResponse `json:"items"`
	Total decimal.Decimal          `json:"total"`
}

type CartItemResponse struct {
	ProductID       int             `json:"productId"`
	Product         ProductResponse `json:"product"`
	Quantity        int             `json:"quantity"`
	DiscountPercent int             `json:"discountPercent"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
}

func ToCartResponse(c *model.Cart) CartResponse {
	items := make(map[int]CartItemResponse, len(c.Items))
	for id, item := range c.Items {
		items[id] = CartItemResponse{
			ProductID:       id,
			Product:         ToProductResponse(&item.Product),
			Quantity:        item.Quantity,
			DiscountPercent: item.DiscountPercent,
			LineTotal:       item.LineTotal,
		}
	}
	return CartResponse{Items: items, Total: c.Total}
}

// --- Order ---

type OrderResponse struct {
	OrderID        int                     `json:"orderId"`
	UserID         int                     `json:"userId"`
	Date           time.Time               `json:"date"`
	Address        string                  `json:"address"`
	City           string                  `json:"city"`
	State          string                  `json:"state"`
	Zip            string                  `json:"zip"`
	ShippingAmount decimal.Decimal         `json:"shippingAmount"`
	Subtotal       decimal.Decimal         `json:"subtotal"`
	LineItems      []OrderLineItemResponse `json:"lineItems"`
}

type OrderLineItemResponse struct {
	OrderLineItemID int             `json:"orderLineItemId"`
	OrderID         int             `json:"orderId"`
	Product         ProductResponse `json:"product"`
	SalesPrice      decimal.Decimal `json:"salesPrice"`
	Quantity        int             `json:"quantity"`
	Discount        decimal.Decimal `json:"discount"`
}

func ToOrderResponse(o *model.Order) OrderResponse {
	items := make([]OrderLineItemResponse, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		items = append(items, OrderLineItemResponse{
			OrderLineItemID: li.ID,
			OrderID:         li.OrderID,
			Product:         ToProductResponse(&li.Product),
			SalesPrice:      li.SalesPrice,
			Quantity:        li.Quantity,
			Discount:        li.Discount,
		})
	}
	return OrderResponse{
		OrderID:        o.ID,
		UserID:         o.UserID,
		Date:           o.Date,
		Address:        o.Address,
		City:           o.City,
		State:          o.State,
		Zip:            o.Zip,
		ShippingAmount: o.ShippingAmount,
		Subtotal:       o.Subtotal(),
		LineItems:      items,
	}
}
