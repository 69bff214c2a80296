package repository

import (
	"context"
	"errors"
	"testing"

	"fabric-catalog/internal/domain"
)

func TestStaticCredentialStore_FindByEmail(t *testing.T) {
	store := NewStaticCredentialStore(domain.Admin{
		ID:    "admin",
		Email: "Admin@NoorFabrics.com",
		Role:  domain.RoleAdmin,
	})

	admin, err := store.FindByEmail(context.Background(), "  admin@noorfabrics.com ")
	if err != nil {
		t.Fatalf("Expected admin, got error %v", err)
	}
	if admin.ID != "admin" {
		t.Errorf("Unexpected admin %+v", admin)
	}

	if _, err := store.FindByEmail(context.Background(), "someone@else.com"); !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("Expected ErrAdminNotFound, got %v", err)
	}
}
