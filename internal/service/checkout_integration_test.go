//go:build integration

package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

type pgFixture struct {
	pool     *pgxpool.Pool
	tx       repository.TxManager
	users    repository.UserRepository
	profiles repository.ProfileRepository
	products repository.ProductRepository
	carts    repository.CartRepository
	orders   repository.OrderRepository
	svc      *OrderService
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	migrateURL := dsn
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			migrateURL = "pgx5://" + rest
		}
	}
	require.NoError(t, repository.Migrate(migrateURL, true))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(),
		`TRUNCATE order_line_items, orders, shopping_cart, profiles, users, products, categories RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	f := &pgFixture{
		pool:     pool,
		tx:       repository.NewTxManager(pool),
		users:    repository.NewUserRepository(pool),
		profiles: repository.NewProfileRepository(pool),
		products: repository.NewProductRepository(pool),
		carts:    repository.NewCartRepository(pool),
		orders:   repository.NewOrderRepository(pool),
	}
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	f.svc = NewOrderService(f.tx, f.orders, f.carts, f.products, f.profiles, nil, log)
	return f
}

func (f *pgFixture) shopper(t *testing.T, username string) int {
	t.Helper()
	user := &model.User{Username: username, HashedPassword: "h", Role: model.RoleUser}
	err := f.tx.WithTx(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		if err := f.users.Create(ctx, tx, user); err != nil {
			return err
		}
		return f.profiles.Create(ctx, tx, &model.Profile{
			UserID: user.ID, Address: "1 Main St", City: "Austin", State: "TX", Zip: "78701",
		})
	})
	require.NoError(t, err)
	return user.ID
}

func (f *pgFixture) product(t *testing.T, stock int) *model.Product {
	t.Helper()
	ctx := context.Background()
	c := &model.Category{Name: "Kitchen"}
	require.NoError(t, repository.NewCategoryRepository(f.pool).Create(ctx, c))
	p := &model.Product{Name: "Mug", Price: decimal.RequireFromString("10.00"), CategoryID: c.ID, Stock: stock}
	require.NoError(t, f.products.Create(ctx, p))
	return p
}

func TestCheckout_PG_CommitsAtomically(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	user := f.shopper(t, "alice")
	p := f.product(t, 5)
	require.NoError(t, f.carts.SetQuantity(ctx, user, p.ID, 3))

	order, err := f.svc.Checkout(ctx, user)
	require.NoError(t, err)
	require.Len(t, order.LineItems, 1)

	after, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Stock)
	rows, err := f.carts.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, rows)

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(stored.LineItems[0].SalesPrice))
}

func TestCheckout_PG_InsufficientStockLeavesStateUnchanged(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	user := f.shopper(t, "alice")
	p := f.product(t, 5)
	require.NoError(t, f.carts.SetQuantity(ctx, user, p.ID, 10))

	_, err := f.svc.Checkout(ctx, user)
	assert.EqualError(t, err, "insufficient stock for Mug: available 5, requested 10")

	after, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, 5, after.Stock)
	rows, _ := f.carts.List(ctx, user)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].Quantity)
}

func TestCheckout_PG_DuplicateSubmitPlacesOneOrder(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	user := f.shopper(t, "alice")
	p := f.product(t, 5)
	require.NoError(t, f.carts.SetQuantity(ctx, user, p.ID, 2))

	const submits = 5
	errs := make([]error, submits)
	var wg sync.WaitGroup
	for i := range submits {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Checkout(ctx, user)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrEmptyCart)
	}
	assert.Equal(t, 1, succeeded)

	after, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, 3, after.Stock)
	orders, _ := f.orders.ListByUserID(ctx, user)
	assert.Len(t, orders, 1)
}

func TestCheckout_PG_OverlappingShoppersNeverOversell(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	p := f.product(t, 5)

	const shoppers = 4
	users := make([]int, shoppers)
	for i := range shoppers {
		users[i] = f.shopper(t, "shopper-"+string(rune('a'+i)))
		require.NoError(t, f.carts.SetQuantity(ctx, users[i], p.ID, 2))
	}

	errs := make([]error, shoppers)
	var wg sync.WaitGroup
	for i := range shoppers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Checkout(ctx, users[i])
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
		default:
			t.Errorf("unexpected checkout error: %v", err)
		}
	}
	assert.Equal(t, 2, succeeded)

	after, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, 5-2*succeeded, after.Stock)
}
