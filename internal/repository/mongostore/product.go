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

var productSortFields = map[string]string{
	repository.SortByName:      "name",
	repository.SortByPrice:     "price",
	repository.SortByStock:     "stock",
	repository.SortByCreatedAt: "createdAt",
}

var lookupCategory = bson.D{{Key: "$lookup", Value: bson.D{
	{Key: "from", Value: categoriesCollection},
	{Key: "localField", Value: "category"},
	{Key: "foreignField", Value: "_id"},
	{Key: "as", Value: "categoryDocs"},
}}}

type productRepository struct {
	products *mongo.Collection
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	doc, err := toProductDocument(product)
	if err != nil {
		return err
	}

	if _, err := r.products.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	doc, err := toProductDocument(product)
	if err != nil {
		return err
	}

	set := bson.M{
		"name":             doc.Name,
		"price":            doc.Price,
		"discount":         doc.Discount,
		"category":         doc.Category,
		"images":           doc.Images,
		"description":      doc.Description,
		"material":         doc.Material,
		"careInstructions": doc.CareInstructions,
		"sizes":            doc.Sizes,
		"stock":            doc.Stock,
		"rating":           doc.Rating,
		"reviewsCount":     doc.ReviewsCount,
		"isNew":            doc.IsNew,
		"updatedAt":        doc.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if doc.OriginalPrice != nil {
		set["originalPrice"] = *doc.OriginalPrice
	} else {
		update["$unset"] = bson.M{"originalPrice": ""}
	}

	res, err := r.products.UpdateOne(ctx, bson.M{"_id": product.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	res, err := r.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	products, err := r.aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id}}},
		{{Key: "$limit", Value: 1}},
		lookupCategory,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	if len(products) == 0 {
		return nil, repository.ErrProductNotFound
	}
	return products[0], nil
}

func (r *productRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	match := bson.M{}
	if filter.CategoryID != "" {
		match["category"] = filter.CategoryID
	}

	field := productSortFields[repository.NormalizeProductSort(filter.SortBy)]
	dir := direction(filter.Order.OrDefault(repository.SortOrderDesc))

	products, err := r.aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}}}},
		lookupCategory,
	}, options.Aggregate().SetCollation(caseInsensitive))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *productRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, opts *options.AggregateOptions) ([]*domain.Product, error) {
	var aggOpts []*options.AggregateOptions
	if opts != nil {
		aggOpts = append(aggOpts, opts)
	}

	cursor, err := r.products.Aggregate(ctx, pipeline, aggOpts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	products := make([]*domain.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}
