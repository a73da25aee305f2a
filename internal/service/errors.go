package service

import (
	"errors"
	"fmt"

	"github.com/flicky/go-storefront-api/internal/repository"
)

var (
	ErrEmptyCart          = errors.New("empty cart")
	ErrIncompleteAddress  = errors.New("incomplete shipping address")
	ErrInvalidQuantity    = errors.New("quantity must not be negative")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrProductNotFound    = errors.New("product not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryInUse      = errors.New("category still has products")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrUserAlreadyExists  = errors.New("username already taken")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProfileForbidden   = errors.New("cannot modify another user's profile")
	ErrOrderAccessDenied  = errors.New("access denied")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrUnavailable        = errors.New("service temporarily unavailable")
)

// InsufficientStockError reports the first cart line checkout could not fill.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// storageError wraps a repository failure, tagging transient ones with ErrUnavailable.
func storageError(op string, err error) error {
	if repository.IsRetryable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
