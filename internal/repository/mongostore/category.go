package mongostore

import (
	"context"
	"fmt"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var categorySortFields = map[string]string{
	repository.SortByName:      "name",
	repository.SortByCreatedAt: "createdAt",
	repository.SortByUpdatedAt: "updatedAt",
}

type categoryRepository struct {
	categories *mongo.Collection
	products   *mongo.Collection
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	_, err := r.categories.InsertOne(ctx, toCategoryDocument(category))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) List(ctx context.Context, opts repository.CategoryListOptions) ([]*domain.Category, error) {
	filter := bson.M{}
	if opts.ActiveOnly {
		filter["isActive"] = true
	}

	field := categorySortFields[repository.NormalizeCategorySort(opts.SortBy)]
	dir := direction(opts.Order.OrDefault(repository.SortOrderAsc))
	findOpts := options.Find().
		SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}}).
		SetCollation(caseInsensitive)

	cursor, err := r.categories.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []categoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	categories := make([]*domain.Category, 0, len(docs))
	for _, d := range docs {
		categories = append(categories, d.toDomain())
	}
	return categories, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	var doc categoryDocument
	err := r.categories.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	update := bson.M{"$set": bson.M{
		"name":        category.Name,
		"description": category.Description,
		"image":       category.Image,
		"isActive":    category.IsActive,
		"updatedAt":   category.UpdatedAt,
	}}

	res, err := r.categories.UpdateOne(ctx, bson.M{"_id": category.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category. Mongo has no cross-collection constraint, so
// DeleteRestrict checks for referencing products first; a product created
// between the check and the delete is not caught.
func (r *categoryRepository) Delete(ctx context.Context, id string, policy repository.DeletePolicy) error {
	if policy == repository.DeleteRestrict {
		n, err := r.products.CountDocuments(ctx, bson.M{"category": id}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("failed to count category references: %w", err)
		}
		if n > 0 {
			if _, err := r.FindByID(ctx, id); err != nil {
				return err
			}
			return repository.ErrCategoryInUse
		}
	}

	res, err := r.categories.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrCategoryNotFound
	}
	return nil
}
