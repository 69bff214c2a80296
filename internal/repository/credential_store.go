package repository

import (
	"context"
	"errors"
	"strings"

	"fabric-catalog/internal/domain"
)

var (
	ErrAdminNotFound = errors.New("admin not found")
)

// CredentialStore looks up the actors allowed to sign in
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.Admin, error)
}

type staticCredentialStore struct {
	admins map[string]domain.Admin
}

// NewStaticCredentialStore serves a fixed set of admin records, typically
// one built from configuration. Emails match case-insensitively.
func NewStaticCredentialStore(admins ...domain.Admin) CredentialStore {
	s := &staticCredentialStore{admins: make(map[string]domain.Admin, len(admins))}
	for _, a := range admins {
		s.admins[strings.ToLower(strings.TrimSpace(a.Email))] = a
	}
	return s
}

// FindByEmail retrieves an admin by email
func (s *staticCredentialStore) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	admin, ok := s.admins[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrAdminNotFound
	}
	return &admin, nil
}
