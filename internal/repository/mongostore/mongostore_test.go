package mongostore

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

var testDB *mongo.Database

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Fatalf("could not start mongodb container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("could not get mongodb connection string: %v", err)
	}

	client, err := Connect(ctx, uri)
	if err != nil {
		log.Fatalf("could not connect to mongodb: %v", err)
	}

	testDB = client.Database("catalog_test")
	if err := EnsureIndexes(ctx, testDB); err != nil {
		log.Fatalf("could not create indexes: %v", err)
	}

	code := m.Run()

	_ = client.Disconnect(ctx)
	if err := container.Terminate(ctx); err != nil {
		log.Fatalf("could not teardown mongodb container: %v", err)
	}

	os.Exit(code)
}

func resetCollections(t *testing.T) {
	t.Helper()
	if err := testDB.Collection(categoriesCollection).Drop(context.Background()); err != nil {
		t.Fatalf("drop categories: %v", err)
	}
	if err := testDB.Collection(productsCollection).Drop(context.Background()); err != nil {
		t.Fatalf("drop products: %v", err)
	}
	if err := EnsureIndexes(context.Background(), testDB); err != nil {
		t.Fatalf("recreate indexes: %v", err)
	}
}

func newCategory(name string) *domain.Category {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Category{ID: uuid.NewString(), Name: name, IsActive: true, CreatedAt: now, UpdatedAt: now}
}

func newProduct(categoryID string) *domain.Product {
	p := domain.NewProduct()
	p.ID = uuid.NewString()
	p.Name = "Scarf"
	p.Price = decimal.RequireFromString("19.99")
	p.CategoryID = categoryID
	p.Sizes = []string{"S", "M"}
	p.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	p.UpdatedAt = p.CreatedAt
	return p
}

func TestCategoryNameConflictIgnoresCase(t *testing.T) {
	resetCollections(t)
	repo := New(testDB).Categories()
	ctx := context.Background()

	if err := repo.Create(ctx, newCategory("Silk")); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if err := repo.Create(ctx, newCategory("silk")); !errors.Is(err, repository.ErrCategoryAlreadyExists) {
		t.Fatalf("expected ErrCategoryAlreadyExists, got %v", err)
	}

	other := newCategory("Wool")
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create category: %v", err)
	}
	other.Name = "SILK"
	if err := repo.Update(ctx, other); !errors.Is(err, repository.ErrCategoryAlreadyExists) {
		t.Errorf("expected ErrCategoryAlreadyExists on update, got %v", err)
	}
}

func TestProductRoundTripWithCategory(t *testing.T) {
	resetCollections(t)
	store := New(testDB)
	ctx := context.Background()

	c := newCategory("Silk")
	if err := store.Categories().Create(ctx, c); err != nil {
		t.Fatalf("create category: %v", err)
	}

	p := newProduct(c.ID)
	original := decimal.RequireFromString("25.50")
	p.OriginalPrice = &original
	if err := store.Products().Create(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}

	got, err := store.Products().FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	if !got.Price.Equal(p.Price) || got.OriginalPrice == nil || !got.OriginalPrice.Equal(original) {
		t.Errorf("price mismatch: %s %v", got.Price, got.OriginalPrice)
	}
	if got.Category == nil || got.Category.Name != "Silk" {
		t.Errorf("expected expanded category, got %+v", got.Category)
	}
	if len(got.Sizes) != 2 || len(got.Images) != 0 {
		t.Errorf("unexpected slices: sizes=%v images=%v", got.Sizes, got.Images)
	}

	got.OriginalPrice = nil
	got.Stock = 4
	if err := store.Products().Update(ctx, got); err != nil {
		t.Fatalf("update product: %v", err)
	}
	again, err := store.Products().FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	if again.OriginalPrice != nil || again.Stock != 4 {
		t.Errorf("update not persisted: %+v", again)
	}

	if err := store.Products().Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if _, err := store.Products().FindByID(ctx, p.ID); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCategoryDeleteRestrictedWhileReferenced(t *testing.T) {
	resetCollections(t)
	store := New(testDB)
	ctx := context.Background()

	c := newCategory("Silk")
	if err := store.Categories().Create(ctx, c); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if err := store.Products().Create(ctx, newProduct(c.ID)); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if err := store.Categories().Delete(ctx, c.ID, repository.DeleteRestrict); !errors.Is(err, repository.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
	if err := store.Categories().Delete(ctx, c.ID, repository.DeleteAllow); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	if err := store.Categories().Delete(ctx, uuid.NewString(), repository.DeleteRestrict); !errors.Is(err, repository.ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestProductListSortsByPrice(t *testing.T) {
	resetCollections(t)
	repo := New(testDB).Products()
	ctx := context.Background()

	categoryID := uuid.NewString()
	for _, price := range []string{"30", "9.5", "20"} {
		p := newProduct(categoryID)
		p.Price = decimal.RequireFromString(price)
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create product: %v", err)
		}
	}
	if err := repo.Create(ctx, newProduct(uuid.NewString())); err != nil {
		t.Fatalf("create product: %v", err)
	}

	list, err := repo.List(ctx, repository.ProductFilter{CategoryID: categoryID, SortBy: repository.SortByPrice, Order: repository.SortOrderAsc})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 products, got %d", len(list))
	}
	for i, want := range []string{"9.5", "20", "30"} {
		if !list[i].Price.Equal(decimal.RequireFromString(want)) {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].Price)
		}
	}
}
