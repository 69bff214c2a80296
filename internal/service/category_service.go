package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateCategoryInput is the body of a category creation
type CreateCategoryInput struct {
	Name        string
	Description string
	Image       string
	IsActive    *bool
}

// UpdateCategoryInput changes only the fields that are set
type UpdateCategoryInput struct {
	Name        *string
	Description *string
	Image       *string
	IsActive    *bool
}

// CategoryService defines the category use cases
type CategoryService interface {
	Create(ctx context.Context, in CreateCategoryInput) (*domain.Category, error)
	List(ctx context.Context, opts repository.CategoryListOptions) ([]*domain.Category, error)
	Get(ctx context.Context, id string) (*domain.Category, error)
	Update(ctx context.Context, id string, in UpdateCategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
}

type categoryService struct {
	repo         repository.CategoryRepository
	deletePolicy repository.DeletePolicy
	logger       *zap.Logger
	now          func() time.Time
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(repo repository.CategoryRepository, deletePolicy repository.DeletePolicy, logger *zap.Logger) CategoryService {
	return &categoryService{
		repo:         repo,
		deletePolicy: deletePolicy,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *categoryService) Create(ctx context.Context, in CreateCategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr := &domain.ValidationError{}
		verr.Add("name", "name is required")
		return nil, verr
	}

	now := s.now()
	category := &domain.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(in.Image),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("Category created", zap.String("category_id", category.ID), zap.String("name", category.Name))
	return category, nil
}

func (s *categoryService) List(ctx context.Context, opts repository.CategoryListOptions) ([]*domain.Category, error) {
	return s.repo.List(ctx, opts)
}

func (s *categoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *categoryService) Update(ctx context.Context, id string, in UpdateCategoryInput) (*domain.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			verr := &domain.ValidationError{}
			verr.Add("name", "name cannot be empty")
			return nil, verr
		}
		category.Name = name
	}
	if in.Description != nil {
		category.Description = strings.TrimSpace(*in.Description)
	}
	if in.Image != nil {
		category.Image = strings.TrimSpace(*in.Image)
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	category.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id, s.deletePolicy); err != nil {
		return fmt.Errorf("failed to delete category %s: %w", id, err)
	}

	s.logger.Info("Category deleted", zap.String("category_id", id))
	return nil
}
