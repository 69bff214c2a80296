package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fabric-catalog/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound      = fmt.Errorf("category %w", domain.ErrNotFound)
	ErrCategoryAlreadyExists = fmt.Errorf("category with this name already exists: %w", domain.ErrConflict)
	ErrCategoryInUse         = fmt.Errorf("category is still referenced by products: %w", domain.ErrConflict)
)

// DeletePolicy decides what happens when a category still has products
type DeletePolicy int

const (
	// DeleteRestrict refuses to delete a referenced category
	DeleteRestrict DeletePolicy = iota
	// DeleteAllow deletes the category and leaves product references dangling
	DeleteAllow
)

// CategoryListOptions narrows and orders a category listing
type CategoryListOptions struct {
	ActiveOnly bool
	SortBy     string
	Order      SortOrder
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	List(ctx context.Context, opts CategoryListOptions) ([]*domain.Category, error)
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string, policy DeletePolicy) error
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

var categorySortColumns = map[string]string{
	SortByName:      "name",
	SortByCreatedAt: "created_at",
	SortByUpdatedAt: "updated_at",
}

const categoryColumns = `id::text, name, description, image, is_active, created_at, updated_at`

// Create inserts a new category. Name uniqueness is enforced by a
// case-insensitive unique index.
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, description, image, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Description,
		category.Image,
		category.IsActive,
		category.CreatedAt,
		category.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// List retrieves categories, optionally only the active ones
func (r *categoryRepository) List(ctx context.Context, opts CategoryListOptions) ([]*domain.Category, error) {
	column := categorySortColumns[NormalizeCategorySort(opts.SortBy)]
	order := opts.Order.OrDefault(SortOrderAsc)

	where := ""
	if opts.ActiveOnly {
		where = "WHERE is_active = TRUE"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM categories
		%s
		ORDER BY %s %s
	`, categoryColumns, where, column, order)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// FindByID retrieves a category by ID
func (r *categoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrCategoryNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = $1`, categoryColumns)

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// Update overwrites every mutable column of an existing category
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, err := uuid.Parse(category.ID); err != nil {
		return ErrCategoryNotFound
	}

	query := `
		UPDATE categories
		SET name = $2, description = $3, image = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Description,
		category.Image,
		category.IsActive,
		category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// Delete removes a category. With DeleteRestrict the row is only removed
// when no product points at it; the check and the delete are one statement.
func (r *categoryRepository) Delete(ctx context.Context, id string, policy DeletePolicy) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrCategoryNotFound
	}

	query := `DELETE FROM categories WHERE id = $1`
	if policy == DeleteRestrict {
		query = `
			DELETE FROM categories
			WHERE id = $1
			  AND NOT EXISTS (SELECT 1 FROM products WHERE category_id = $1)
		`
	}

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		return nil
	}

	if policy == DeleteRestrict {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check category existence: %w", err)
		}
		if exists {
			return ErrCategoryInUse
		}
	}

	return ErrCategoryNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	category := &domain.Category{}
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.Image,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return category, nil
}
