package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fabric-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)
)

// ProductFilter narrows and orders a product listing
type ProductFilter struct {
	CategoryID string
	SortBy     string
	Order      SortOrder
}

// ProductRepository defines the interface for product data access.
// Every read returns the referenced category inline.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
}

type productRepository struct {
	db    *sql.DB
	types *pgtype.Map
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db, types: pgtype.NewMap()}
}

var productSortColumns = map[string]string{
	SortByName:      "p.name",
	SortByPrice:     "p.price",
	SortByStock:     "p.stock",
	SortByCreatedAt: "p.created_at",
}

const productSelect = `
	SELECT p.id::text, p.name, p.price, p.original_price, p.discount, p.category_id::text,
	       p.images, p.description, p.material, p.care_instructions, p.sizes,
	       p.stock, p.rating, p.reviews_count, p.is_new, p.created_at, p.updated_at,
	       c.id::text, c.name, c.description, c.image, c.is_active, c.created_at, c.updated_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
`

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, price, original_price, discount, category_id, images,
			description, material, care_instructions, sizes, stock, rating, reviews_count,
			is_new, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Price,
		nullDecimal(product.OriginalPrice),
		product.Discount,
		product.CategoryID,
		nonNil(product.Images),
		product.Description,
		product.Material,
		product.CareInstructions,
		nonNil(product.Sizes),
		product.Stock,
		product.Rating,
		product.ReviewsCount,
		product.IsNew,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update overwrites an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, err := uuid.Parse(product.ID); err != nil {
		return ErrProductNotFound
	}

	query := `
		UPDATE products
		SET name = $2, price = $3, original_price = $4, discount = $5, category_id = $6,
		    images = $7, description = $8, material = $9, care_instructions = $10,
		    sizes = $11, stock = $12, rating = $13, reviews_count = $14, is_new = $15,
		    updated_at = $16
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Price,
		nullDecimal(product.OriginalPrice),
		product.Discount,
		product.CategoryID,
		nonNil(product.Images),
		product.Description,
		product.Material,
		product.CareInstructions,
		nonNil(product.Sizes),
		product.Stock,
		product.Rating,
		product.ReviewsCount,
		product.IsNew,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database
func (r *productRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrProductNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product and its category
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrProductNotFound
	}

	product, err := r.scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products with optional category filtering and sorting
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	column := productSortColumns[NormalizeProductSort(filter.SortBy)]
	order := filter.Order.OrDefault(SortOrderDesc)

	whereClause := ""
	args := []any{}

	if filter.CategoryID != "" {
		if _, err := uuid.Parse(filter.CategoryID); err != nil {
			return []*domain.Product{}, nil
		}
		whereClause = "WHERE p.category_id = $1"
		args = append(args, filter.CategoryID)
	}

	query := fmt.Sprintf(`%s %s ORDER BY %s %s, p.id`, productSelect, whereClause, column, order)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := r.scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func (r *productRepository) scanProduct(row rowScanner) (*domain.Product, error) {
	product := domain.NewProduct()

	var (
		originalPrice decimal.NullDecimal
		catID         sql.NullString
		catName       sql.NullString
		catDesc       sql.NullString
		catImage      sql.NullString
		catActive     sql.NullBool
		catCreated    sql.NullTime
		catUpdated    sql.NullTime
	)

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&originalPrice,
		&product.Discount,
		&product.CategoryID,
		r.types.SQLScanner(&product.Images),
		&product.Description,
		&product.Material,
		&product.CareInstructions,
		r.types.SQLScanner(&product.Sizes),
		&product.Stock,
		&product.Rating,
		&product.ReviewsCount,
		&product.IsNew,
		&product.CreatedAt,
		&product.UpdatedAt,
		&catID,
		&catName,
		&catDesc,
		&catImage,
		&catActive,
		&catCreated,
		&catUpdated,
	)
	if err != nil {
		return nil, err
	}

	if originalPrice.Valid {
		product.OriginalPrice = &originalPrice.Decimal
	}
	product.Images = nonNil(product.Images)
	product.Sizes = nonNil(product.Sizes)

	if catID.Valid {
		product.Category = &domain.Category{
			ID:          catID.String,
			Name:        catName.String,
			Description: catDesc.String,
			Image:       catImage.String,
			IsActive:    catActive.Bool,
			CreatedAt:   catCreated.Time,
			UpdatedAt:   catUpdated.Time,
		}
	}

	return product, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
