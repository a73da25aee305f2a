package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront-api/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int) (*model.Product, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]model.Product, error)
	Search(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Product, error)
	AdjustStock(ctx context.Context, tx pgx.Tx, id, delta int) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func (r *pgProductRepo) Create(ctx context.Context, p *model.Product) error {
	query := `INSERT INTO products (name, price, category_id, description, color, stock, featured, image_url)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING product_id`
	err := r.pool.QueryRow(ctx, query,
		p.Name, p.Price, p.CategoryID, p.Description, p.Color, p.Stock, p.Featured, p.ImageURL,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create product: %w", classify(err))
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id int) (*model.Product, error) {
	return getProduct(ctx, r.pool, selectAllProducts+` WHERE product_id = $1`, id)
}

func (r *pgProductRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Product, error) {
	return getProduct(ctx, tx, selectAllProducts+` WHERE product_id = $1 FOR UPDATE`, id)
}

func getProduct(ctx context.Context, q querier, query string, id int) (*model.Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) GetByIDs(ctx context.Context, ids []int) (map[int]model.Product, error) {
	out := make(map[int]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, selectAllProducts+` WHERE product_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// Search runs the composed filter query, or a plain full scan when no filter is set.
func (r *pgProductRepo) Search(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	query, args := selectAllProducts, []any(nil)
	if !filter.IsEmpty() {
		query, args = buildProductSearch(filter)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return collectProducts(rows)
}

func (r *pgProductRepo) Update(ctx context.Context, p *model.Product) error {
	query := `UPDATE products SET name=$2, price=$3, category_id=$4, description=$5, color=$6,
			  stock=$7, featured=$8, image_url=$9 WHERE product_id=$1`
	ct, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Price, p.CategoryID, p.Description, p.Color, p.Stock, p.Featured, p.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", classify(err))
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id int) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE product_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", classify(err))
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock applies stock = stock + delta on the caller's transaction. It
// does not guard against negative stock; a missing product is ErrNotFound.
func (r *pgProductRepo) AdjustStock(ctx context.Context, tx pgx.Tx, id, delta int) error {
	ct, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE product_id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("adjust stock of product %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.CategoryID, &p.Description,
		&p.Color, &p.Stock, &p.Featured, &p.ImageURL)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()
	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}
