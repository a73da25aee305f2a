package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

// CartService assembles the cart aggregate from persisted rows and live
// product data. Every mutation returns the recomputed aggregate.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	log         *slog.Logger
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, log *slog.Logger) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, log: log}
}

// GetCart joins the user's rows against current prices. Rows whose product
// has disappeared are left out with a warning.
func (s *CartService) GetCart(ctx context.Context, userID int) (*model.Cart, error) {
	rows, err := s.cartRepo.List(ctx, userID)
	if err != nil {
		return nil, storageError("get cart", err)
	}
	cart := model.NewCart(userID)
	if len(rows) == 0 {
		return cart, nil
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storageError("get cart products", err)
	}

	for _, row := range rows {
		product, ok := products[row.ProductID]
		if !ok {
			s.log.Warn("cart row references missing product", "user_id", userID, "product_id", row.ProductID)
			continue
		}
		cart.Put(product, row.Quantity, 0)
	}
	return cart, nil
}

func (s *CartService) AddProduct(ctx context.Context, userID, productID int) (*model.Cart, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Add(ctx, userID, productID); err != nil {
		if errors.Is(err, repository.ErrReferenceViolation) {
			return nil, ErrProductNotFound
		}
		return nil, storageError("add to cart", err)
	}
	return s.GetCart(ctx, userID)
}

// SetQuantity overwrites the line quantity; zero removes the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID, quantity int) (*model.Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity > 0 {
		if err := s.requireProduct(ctx, productID); err != nil {
			return nil, err
		}
	}
	if err := s.cartRepo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		if errors.Is(err, repository.ErrReferenceViolation) {
			return nil, ErrProductNotFound
		}
		return nil, storageError("set cart quantity", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveProduct(ctx context.Context, userID, productID int) error {
	if err := s.cartRepo.Remove(ctx, userID, productID); err != nil {
		return storageError("remove from cart", err)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID int) (*model.Cart, error) {
	if err := s.cartRepo.Clear(ctx, userID); err != nil {
		return nil, storageError("clear cart", err)
	}
	return model.NewCart(userID), nil
}

func (s *CartService) requireProduct(ctx context.Context, productID int) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return storageError("get product", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	return nil
}
