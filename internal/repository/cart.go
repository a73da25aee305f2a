package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront-api/internal/model"
)

// CartRepository persists shopping_cart rows. No row with quantity < 1 is
// ever written; setting a quantity <= 0 deletes the row instead.
type CartRepository interface {
	List(ctx context.Context, userID int) ([]model.CartRow, error)
	Exists(ctx context.Context, userID, productID int) (bool, error)
	Add(ctx context.Context, userID, productID int) error
	SetQuantity(ctx context.Context, userID, productID, quantity int) error
	Remove(ctx context.Context, userID, productID int) error
	Clear(ctx context.Context, userID int) error
	ListForUpdate(ctx context.Context, tx pgx.Tx, userID int) ([]model.CartRow, error)
	ClearTx(ctx context.Context, tx pgx.Tx, userID int) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

const selectCartRows = `SELECT user_id, product_id, quantity FROM shopping_cart WHERE user_id = $1 ORDER BY product_id`

func (r *pgCartRepo) List(ctx context.Context, userID int) ([]model.CartRow, error) {
	return listCartRows(ctx, r.pool, selectCartRows, userID)
}

// ListForUpdate locks the user's cart rows in product order for the rest of tx.
func (r *pgCartRepo) ListForUpdate(ctx context.Context, tx pgx.Tx, userID int) ([]model.CartRow, error) {
	return listCartRows(ctx, tx, selectCartRows+` FOR UPDATE`, userID)
}

func listCartRows(ctx context.Context, q querier, query string, userID int) ([]model.CartRow, error) {
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart rows: %w", err)
	}
	defer rows.Close()

	var items []model.CartRow
	for rows.Next() {
		var row model.CartRow
		if err := rows.Scan(&row.UserID, &row.ProductID, &row.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}
	return items, nil
}

func (r *pgCartRepo) Exists(ctx context.Context, userID, productID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM shopping_cart WHERE user_id = $1 AND product_id = $2)`,
		userID, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cart row: %w", err)
	}
	return exists, nil
}

// Add inserts quantity 1 or increments an existing row in one statement, so
// concurrent adds for the same product never lose an update.
func (r *pgCartRepo) Add(ctx context.Context, userID, productID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO shopping_cart (user_id, product_id, quantity) VALUES ($1, $2, 1)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = shopping_cart.quantity + 1`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("add cart row: %w", classify(err))
	}
	return nil
}

func (r *pgCartRepo) SetQuantity(ctx context.Context, userID, productID, quantity int) error {
	if quantity <= 0 {
		return r.Remove(ctx, userID, productID)
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO shopping_cart (user_id, product_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		userID, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("set cart quantity: %w", classify(err))
	}
	return nil
}

func (r *pgCartRepo) Remove(ctx context.Context, userID, productID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM shopping_cart WHERE user_id = $1 AND product_id = $2`, userID, productID,
	)
	if err != nil {
		return fmt.Errorf("remove cart row: %w", err)
	}
	return nil
}

func (r *pgCartRepo) Clear(ctx context.Context, userID int) error {
	return clearCart(ctx, r.pool, userID)
}

func (r *pgCartRepo) ClearTx(ctx context.Context, tx pgx.Tx, userID int) error {
	return clearCart(ctx, tx, userID)
}

func clearCart(ctx context.Context, q querier, userID int) error {
	if _, err := q.Exec(ctx, `DELETE FROM shopping_cart WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
