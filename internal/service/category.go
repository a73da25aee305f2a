package service

import (
	"context"
	"errors"
	"strings"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

func (s *CategoryService) List(ctx context.Context) ([]dto.CategoryResponse, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, storageError("list categories", err)
	}
	out := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, dto.ToCategoryResponse(&categories[i]))
	}
	return out, nil
}

func (s *CategoryService) GetByID(ctx context.Context, id int) (*dto.CategoryResponse, error) {
	c, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("get category", err)
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	resp := dto.ToCategoryResponse(c)
	return &resp, nil
}

func (s *CategoryService) Create(ctx context.Context, req dto.CategoryRequest) (*dto.CategoryResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidCategory
	}
	c := &model.Category{Name: req.Name, Description: req.Description}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		return nil, storageError("create category", err)
	}
	resp := dto.ToCategoryResponse(c)
	return &resp, nil
}

func (s *CategoryService) Update(ctx context.Context, id int, req dto.CategoryRequest) (*dto.CategoryResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidCategory
	}
	c := &model.Category{ID: id, Name: req.Name, Description: req.Description}
	if err := s.categoryRepo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, storageError("update category", err)
	}
	resp := dto.ToCategoryResponse(c)
	return &resp, nil
}

func (s *CategoryService) Delete(ctx context.Context, id int) error {
	err := s.categoryRepo.Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrCategoryNotFound
	case errors.Is(err, repository.ErrReferenceViolation):
		return ErrCategoryInUse
	default:
		return storageError("delete category", err)
	}
}
