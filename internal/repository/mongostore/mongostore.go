// Package mongostore implements the catalog repositories on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	categoriesCollection = "categories"
	productsCollection   = "products"
)

// strength 2 ignores case but keeps accents significant
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Connect opens a client and verifies it with a ping
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the case-insensitive unique index on category names
// and the category lookup index on products.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(categoriesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(caseInsensitive).SetName("categories_name_ci"),
	})
	if err != nil {
		return fmt.Errorf("failed to create category name index: %w", err)
	}

	_, err = db.Collection(productsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}},
		Options: options.Index().SetName("products_category"),
	})
	if err != nil {
		return fmt.Errorf("failed to create product category index: %w", err)
	}

	return nil
}

type categoryDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Image       string    `bson:"image"`
	IsActive    bool      `bson:"isActive"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func toCategoryDocument(c *domain.Category) categoryDocument {
	return categoryDocument{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Image:       c.Image,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (d categoryDocument) toDomain() *domain.Category {
	return &domain.Category{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Image:       d.Image,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type productDocument struct {
	ID               string                `bson:"_id"`
	Name             string                `bson:"name"`
	Price            primitive.Decimal128  `bson:"price"`
	OriginalPrice    *primitive.Decimal128 `bson:"originalPrice,omitempty"`
	Discount         string                `bson:"discount"`
	Category         string                `bson:"category"`
	Images           []string              `bson:"images"`
	Description      string                `bson:"description"`
	Material         string                `bson:"material"`
	CareInstructions string                `bson:"careInstructions"`
	Sizes            []string              `bson:"sizes"`
	Stock            int                   `bson:"stock"`
	Rating           float64               `bson:"rating"`
	ReviewsCount     int                   `bson:"reviewsCount"`
	IsNew            bool                  `bson:"isNew"`
	CreatedAt        time.Time             `bson:"createdAt"`
	UpdatedAt        time.Time             `bson:"updatedAt"`

	// filled by the $lookup stage on reads only
	CategoryDocs []categoryDocument `bson:"categoryDocs,omitempty"`
}

func toProductDocument(p *domain.Product) (productDocument, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return productDocument{}, fmt.Errorf("failed to encode price: %w", err)
	}

	doc := productDocument{
		ID:               p.ID,
		Name:             p.Name,
		Price:            price,
		Discount:         p.Discount,
		Category:         p.CategoryID,
		Images:           nonNil(p.Images),
		Description:      p.Description,
		Material:         p.Material,
		CareInstructions: p.CareInstructions,
		Sizes:            nonNil(p.Sizes),
		Stock:            p.Stock,
		Rating:           p.Rating,
		ReviewsCount:     p.ReviewsCount,
		IsNew:            p.IsNew,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}

	if p.OriginalPrice != nil {
		op, err := primitive.ParseDecimal128(p.OriginalPrice.String())
		if err != nil {
			return productDocument{}, fmt.Errorf("failed to encode original price: %w", err)
		}
		doc.OriginalPrice = &op
	}

	return doc, nil
}

func (d productDocument) toDomain() (*domain.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode price: %w", err)
	}

	p := &domain.Product{
		ID:               d.ID,
		Name:             d.Name,
		Price:            price,
		Discount:         d.Discount,
		CategoryID:       d.Category,
		Images:           nonNil(d.Images),
		Description:      d.Description,
		Material:         d.Material,
		CareInstructions: d.CareInstructions,
		Sizes:            nonNil(d.Sizes),
		Stock:            d.Stock,
		Rating:           d.Rating,
		ReviewsCount:     d.ReviewsCount,
		IsNew:            d.IsNew,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}

	if d.OriginalPrice != nil {
		op, err := decimal.NewFromString(d.OriginalPrice.String())
		if err != nil {
			return nil, fmt.Errorf("failed to decode original price: %w", err)
		}
		p.OriginalPrice = &op
	}

	if len(d.CategoryDocs) > 0 {
		p.Category = d.CategoryDocs[0].toDomain()
	}

	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func direction(o repository.SortOrder) int {
	if o == repository.SortOrderDesc {
		return -1
	}
	return 1
}

// Store exposes the repositories backed by one database
type Store struct {
	db *mongo.Database
}

// New wraps db. Call EnsureIndexes once before serving traffic.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Categories returns the category repository view of the store
func (s *Store) Categories() repository.CategoryRepository {
	return &categoryRepository{
		categories: s.db.Collection(categoriesCollection),
		products:   s.db.Collection(productsCollection),
	}
}

// Products returns the product repository view of the store
func (s *Store) Products() repository.ProductRepository {
	return &productRepository{products: s.db.Collection(productsCollection)}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
