package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/repository"
	"fabric-catalog/internal/repository/memstore"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Feature: catalog, Property 1: Category names are unique ignoring case
func TestProperty_CategoryServiceRejectsCaseVariants(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("creating a case variant of an existing name is a conflict", prop.ForAll(
		func(name string) bool {
			svc := NewCategoryService(memstore.New().Categories(), repository.DeleteRestrict, zap.NewNop())
			ctx := context.Background()

			if _, err := svc.Create(ctx, CreateCategoryInput{Name: name}); err != nil {
				return false
			}
			_, err := svc.Create(ctx, CreateCategoryInput{Name: "  " + strings.ToUpper(name) + " "})
			return errors.Is(err, domain.ErrConflict)
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCategoryService_CreateDefaults(t *testing.T) {
	svc := NewCategoryService(memstore.New().Categories(), repository.DeleteRestrict, zap.NewNop())

	category, err := svc.Create(context.Background(), CreateCategoryInput{Name: "  Silk  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if category.Name != "Silk" || !category.IsActive || category.ID == "" || category.CreatedAt.IsZero() {
		t.Errorf("unexpected category %+v", category)
	}

	_, err = svc.Create(context.Background(), CreateCategoryInput{Name: "   "})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestCategoryService_UpdateMergesFields(t *testing.T) {
	svc := NewCategoryService(memstore.New().Categories(), repository.DeleteRestrict, zap.NewNop())
	ctx := context.Background()

	category, err := svc.Create(ctx, CreateCategoryInput{Name: "Silk", Description: "smooth"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inactive := false
	updated, err := svc.Update(ctx, category.ID, UpdateCategoryInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Silk" || updated.Description != "smooth" || updated.IsActive {
		t.Errorf("unexpected merge result %+v", updated)
	}

	empty := " "
	if _, err := svc.Update(ctx, category.ID, UpdateCategoryInput{Name: &empty}); err == nil {
		t.Error("expected empty name to be rejected")
	}
	if _, err := svc.Update(ctx, "missing", UpdateCategoryInput{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCategoryService_DeletePolicy(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	restrict := NewCategoryService(store.Categories(), repository.DeleteRestrict, zap.NewNop())
	allow := NewCategoryService(store.Categories(), repository.DeleteAllow, zap.NewNop())

	category, err := restrict.Create(ctx, CreateCategoryInput{Name: "Silk"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	product := domain.NewProduct()
	product.ID = "p1"
	product.CategoryID = category.ID
	if err := store.Products().Create(ctx, product); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if err := restrict.Delete(ctx, category.ID); !errors.Is(err, repository.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
	if err := allow.Delete(ctx, category.ID); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	if err := allow.Delete(ctx, category.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
