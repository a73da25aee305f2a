package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

// OrderEvents receives committed orders. Delivery is best-effort.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, msg model.OrderMessage) error
}

type OrderService struct {
	txManager   repository.TxManager
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	profileRepo repository.ProfileRepository
	events      OrderEvents
	log         *slog.Logger
	now         func() time.Time
}

func NewOrderService(
	txManager repository.TxManager,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	profileRepo repository.ProfileRepository,
	events OrderEvents,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		txManager:   txManager,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		profileRepo: profileRepo,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

// Checkout turns the user's cart into an order. The order, its line items,
// the stock decrements and the cart clear commit together or not at all.
func (s *OrderService) Checkout(ctx context.Context, userID int) (*model.Order, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storageError("get profile", err)
	}
	if !profile.HasShippingAddress() {
		return nil, ErrIncompleteAddress
	}

	rows, err := s.cartRepo.List(ctx, userID)
	if err != nil {
		return nil, storageError("get cart", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyCart
	}

	var order *model.Order
	err = s.txManager.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		order, err = s.placeOrder(ctx, tx, userID, profile)
		return err
	})
	if err != nil {
		if isCheckoutRejection(err) {
			return nil, err
		}
		s.log.Error("checkout failed", "user_id", userID, "error", err)
		return nil, storageError("checkout", err)
	}

	s.publishPlaced(ctx, order)
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, tx pgx.Tx, userID int, profile *model.Profile) (*model.Order, error) {
	// Locking the cart rows serializes a duplicate submit behind this one;
	// the loser sees an empty cart.
	rows, err := s.cartRepo.ListForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyCart
	}
	// Product locks are always taken in product id order.
	slices.SortFunc(rows, func(a, b model.CartRow) int { return cmp.Compare(a.ProductID, b.ProductID) })

	products := make([]*model.Product, len(rows))
	for i, row := range rows {
		p, err := s.productRepo.GetForUpdate(ctx, tx, row.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("product %d: %w", row.ProductID, ErrProductNotFound)
		}
		if p.Stock < row.Quantity {
			return nil, &InsufficientStockError{ProductName: p.Name, Available: p.Stock, Requested: row.Quantity}
		}
		products[i] = p
	}

	order := &model.Order{
		UserID:         userID,
		Date:           s.now().UTC(),
		Address:        profile.Address,
		City:           profile.City,
		State:          profile.State,
		Zip:            profile.Zip,
		ShippingAmount: decimal.Zero,
	}
	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	order.LineItems = make([]model.OrderLineItem, 0, len(rows))
	for i, row := range rows {
		li := model.OrderLineItem{
			OrderID:    order.ID,
			Product:    *products[i],
			SalesPrice: products[i].Price,
			Quantity:   row.Quantity,
			Discount:   decimal.Zero,
		}
		if err := s.orderRepo.CreateLineItem(ctx, tx, &li); err != nil {
			return nil, err
		}
		order.LineItems = append(order.LineItems, li)
	}

	for _, row := range rows {
		if err := s.productRepo.AdjustStock(ctx, tx, row.ProductID, -row.Quantity); err != nil {
			return nil, err
		}
	}
	if err := s.cartRepo.ClearTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	for i := range order.LineItems {
		order.LineItems[i].Product.Stock -= order.LineItems[i].Quantity
	}
	return order, nil
}

func isCheckoutRejection(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrProductNotFound)
}

func (s *OrderService) publishPlaced(ctx context.Context, order *model.Order) {
	if s.events == nil {
		return
	}
	msg := model.OrderMessage{OrderID: order.ID, UserID: order.UserID, PlacedAt: order.Date}
	for _, li := range order.LineItems {
		msg.ProductIDs = append(msg.ProductIDs, li.Product.ID)
	}
	if err := s.events.PublishOrderPlaced(context.WithoutCancel(ctx), msg); err != nil {
		s.log.Warn("publish order placed", "order_id", order.ID, "error", err)
	}
}

func (s *OrderService) GetByID(ctx context.Context, orderID, userID int) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, storageError("get order", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListByUserID(ctx context.Context, userID int) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, storageError("list orders", err)
	}
	return orders, nil
}
