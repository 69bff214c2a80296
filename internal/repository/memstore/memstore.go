// Package memstore keeps categories and products in process memory.
// It backs DB_DRIVER=memory and the handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/repository"
)

// Store holds both collections behind one lock so that product reads can
// join their category consistently.
type Store struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	products   map[string]*domain.Product
}

// New returns an empty store
func New() *Store {
	return &Store{
		categories: make(map[string]domain.Category),
		products:   make(map[string]*domain.Product),
	}
}

// Categories returns the category repository view of the store
func (s *Store) Categories() repository.CategoryRepository {
	return &categoryRepository{s: s}
}

// Products returns the product repository view of the store
func (s *Store) Products() repository.ProductRepository {
	return &productRepository{s: s}
}

type categoryRepository struct {
	s *Store
}

func (r *categoryRepository) nameTaken(name, exceptID string) bool {
	for id, c := range r.s.categories {
		if id != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(category.Name, "") {
		return repository.ErrCategoryAlreadyExists
	}
	r.s.categories[category.ID] = *category
	return nil
}

func (r *categoryRepository) List(ctx context.Context, opts repository.CategoryListOptions) ([]*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Category{}
	for _, c := range r.s.categories {
		if opts.ActiveOnly && !c.IsActive {
			continue
		}
		c := c
		out = append(out, &c)
	}

	key := repository.NormalizeCategorySort(opts.SortBy)
	desc := opts.Order.OrDefault(repository.SortOrderAsc) == repository.SortOrderDesc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var cmp int
		switch key {
		case repository.SortByCreatedAt:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		case repository.SortByUpdatedAt:
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.categories[category.ID]
	if !ok {
		return repository.ErrCategoryNotFound
	}
	if r.nameTaken(category.Name, category.ID) {
		return repository.ErrCategoryAlreadyExists
	}
	updated := *category
	updated.CreatedAt = existing.CreatedAt
	r.s.categories[category.ID] = updated
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id string, policy repository.DeletePolicy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	if policy == repository.DeleteRestrict {
		for _, p := range r.s.products {
			if p.CategoryID == id {
				return repository.ErrCategoryInUse
			}
		}
	}
	delete(r.s.categories, id)
	return nil
}

type productRepository struct {
	s *Store
}

// expand copies a stored product and attaches its category; callers hold the read lock
func (r *productRepository) expand(p *domain.Product) *domain.Product {
	out := p.Clone()
	out.Category = nil
	if c, ok := r.s.categories[p.CategoryID]; ok {
		out.Category = &c
	}
	return out
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := product.Clone()
	stored.Category = nil
	r.s.products[product.ID] = stored
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	stored := product.Clone()
	stored.Category = nil
	stored.CreatedAt = existing.CreatedAt
	r.s.products[product.ID] = stored
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return r.expand(p), nil
}

func (r *productRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Product{}
	for _, p := range r.s.products {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, r.expand(p))
	}

	key := repository.NormalizeProductSort(filter.SortBy)
	desc := filter.Order.OrDefault(repository.SortOrderDesc) == repository.SortOrderDesc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var cmp int
		switch key {
		case repository.SortByName:
			cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case repository.SortByPrice:
			cmp = a.Price.Cmp(b.Price)
		case repository.SortByStock:
			cmp = a.Stock - b.Stock
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp == 0 {
			return a.ID < b.ID
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out, nil
}
