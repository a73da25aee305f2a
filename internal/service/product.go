package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

const productCacheTTL = 60 * time.Second

// ProductCacheKey is the Redis key a product's cached read lives under.
func ProductCacheKey(id int) string {
	return "product:" + strconv.Itoa(id)
}

type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	redisClient  *redis.Client
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	redisClient *redis.Client,
) *ProductService {
	return &ProductService{productRepo: productRepo, categoryRepo: categoryRepo, redisClient: redisClient}
}

func (s *ProductService) Create(ctx context.Context, req dto.ProductRequest) (*dto.ProductResponse, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	product := productFromRequest(0, req)
	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrReferenceViolation) {
			return nil, ErrUnknownCategory
		}
		return nil, storageError("create product", err)
	}
	resp := dto.ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int) (*dto.ProductResponse, error) {
	cacheKey := ProductCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("get product", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := dto.ToProductResponse(product)
	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return &resp, nil
}

// Search returns the products matching every filter that is set. Results are unordered.
func (s *ProductService) Search(ctx context.Context, filter model.ProductFilter) ([]dto.ProductResponse, error) {
	products, err := s.productRepo.Search(ctx, filter)
	if err != nil {
		return nil, storageError("search products", err)
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, dto.ToProductResponse(&products[i]))
	}
	return out, nil
}

func (s *ProductService) ListByCategory(ctx context.Context, categoryID int) ([]dto.ProductResponse, error) {
	c, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, storageError("get category", err)
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	return s.Search(ctx, model.ProductFilter{CategoryID: &categoryID})
}

// Update replaces every field of the product.
func (s *ProductService) Update(ctx context.Context, id int, req dto.ProductRequest) (*dto.ProductResponse, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	product := productFromRequest(id, req)
	if err := s.productRepo.Update(ctx, product); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrProductNotFound
		case errors.Is(err, repository.ErrReferenceViolation):
			return nil, ErrUnknownCategory
		}
		return nil, storageError("update product", err)
	}
	s.InvalidateCache(ctx, id)

	resp := dto.ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, id int) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return storageError("delete product", err)
	}
	s.InvalidateCache(ctx, id)
	return nil
}

func (s *ProductService) InvalidateCache(ctx context.Context, ids ...int) {
	if s.redisClient == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, ProductCacheKey(id))
	}
	s.redisClient.Del(ctx, keys...)
}

func validateProduct(req dto.ProductRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case req.CategoryID <= 0:
		return fmt.Errorf("%w: categoryId is required", ErrInvalidProduct)
	case req.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case req.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

func productFromRequest(id int, req dto.ProductRequest) *model.Product {
	return &model.Product{
		ID:          id,
		Name:        req.Name,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Color:       req.Color,
		Stock:       req.Stock,
		Featured:    req.Featured,
		ImageURL:    req.ImageURL,
	}
}
