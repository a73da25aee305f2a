package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront-api/internal/model"
)

// OrderRepository writes orders only on a caller-supplied transaction; once
// committed, orders and line items are never updated.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error
	CreateLineItem(ctx context.Context, tx pgx.Tx, item *model.OrderLineItem) error
	GetByID(ctx context.Context, id int) (*model.Order, error)
	ListByUserID(ctx context.Context, userID int) ([]model.Order, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `order_id, user_id, date, address, city, state, zip, shipping_amount`

func (r *pgOrderRepo) Create(ctx context.Context, tx pgx.Tx, o *model.Order) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, date, address, city, state, zip, shipping_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING order_id`,
		o.UserID, o.Date, o.Address, o.City, o.State, o.Zip, o.ShippingAmount,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// CreateLineItem stores the captured product snapshot next to the sales
// price so the line item reads back unchanged after the product is edited or deleted.
func (r *pgOrderRepo) CreateLineItem(ctx context.Context, tx pgx.Tx, li *model.OrderLineItem) error {
	p := li.Product
	err := tx.QueryRow(ctx,
		`INSERT INTO order_line_items (order_id, product_id, product_name, product_category_id,
		     product_description, product_color, product_image_url, sales_price, quantity, discount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING order_line_item_id`,
		li.OrderID, p.ID, p.Name, p.CategoryID, p.Description, p.Color, p.ImageURL,
		li.SalesPrice, li.Quantity, li.Discount,
	).Scan(&li.ID)
	if err != nil {
		return fmt.Errorf("insert order line item: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id int) (*model.Order, error) {
	o := &model.Order{}
	err := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, id).Scan(
		&o.ID, &o.UserID, &o.Date, &o.Address, &o.City, &o.State, &o.Zip, &o.ShippingAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.lineItems(ctx, []int{o.ID})
	if err != nil {
		return nil, err
	}
	o.LineItems = items[o.ID]
	return o, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID int) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY date DESC, order_id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	var ids []int
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Date, &o.Address, &o.City, &o.State, &o.Zip, &o.ShippingAmount); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	rows.Close()

	items, err := r.lineItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].LineItems = items[orders[i].ID]
	}
	return orders, nil
}

func (r *pgOrderRepo) lineItems(ctx context.Context, orderIDs []int) (map[int][]model.OrderLineItem, error) {
	out := make(map[int][]model.OrderLineItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT order_line_item_id, order_id, product_id, product_name, product_category_id,
		        product_description, product_color, product_image_url, sales_price, quantity, discount
		 FROM order_line_items WHERE order_id = ANY($1) ORDER BY order_line_item_id`, orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("get order line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			li        model.OrderLineItem
			productID *int
		)
		if err := rows.Scan(&li.ID, &li.OrderID, &productID, &li.Product.Name, &li.Product.CategoryID,
			&li.Product.Description, &li.Product.Color, &li.Product.ImageURL,
			&li.SalesPrice, &li.Quantity, &li.Discount); err != nil {
			return nil, fmt.Errorf("scan order line item: %w", err)
		}
		// product_id is nulled when the product is deleted; 0 marks it unavailable.
		if productID != nil {
			li.Product.ID = *productID
		}
		li.Product.Price = li.SalesPrice
		out[li.OrderID] = append(out[li.OrderID], li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order line items: %w", err)
	}
	return out, nil
}
