package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/media"
	"fabric-catalog/internal/repository"
)

// mockMediaStore records every call; failUploads names files whose upload fails
type mockMediaStore struct {
	mu          sync.Mutex
	uploads     []string
	uploadCtxs  []context.Context
	deletes     []string
	failUploads map[string]bool
	failDeletes bool
}

func newMockMediaStore() *mockMediaStore {
	return &mockMediaStore{failUploads: map[string]bool{}}
}

func (m *mockMediaStore) Upload(ctx context.Context, file domain.Attachment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadCtxs = append(m.uploadCtxs, ctx)
	if m.failUploads[file.Filename] {
		return "", &media.UpstreamError{Op: "upload", Err: errors.New("provider unavailable")}
	}
	url := "https://media.test/" + file.Filename
	m.uploads = append(m.uploads, url)
	return url, nil
}

func (m *mockMediaStore) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, url)
	if m.failDeletes {
		return &media.UpstreamError{Op: "delete", URL: url, Err: errors.New("provider unavailable")}
	}
	return nil
}

func (m *mockMediaStore) uploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

func (m *mockMediaStore) deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.deletes...)
}

// deletedSet returns the deleted URLs sorted; deletions run concurrently
func (m *mockMediaStore) deletedSet() []string {
	out := m.deleted()
	sort.Strings(out)
	return out
}

// cancelledUploads counts uploads whose context has been cancelled
func (m *mockMediaStore) cancelledUploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ctx := range m.uploadCtxs {
		if ctx.Err() != nil {
			n++
		}
	}
	return n
}

// failingProductRepository wraps a repository and fails writes on demand
type failingProductRepository struct {
	repository.ProductRepository
	failCreate bool
	failUpdate bool
	writes     int
}

func (r *failingProductRepository) Create(ctx context.Context, product *domain.Product) error {
	r.writes++
	if r.failCreate {
		return errors.New("failed to create product: connection reset")
	}
	return r.ProductRepository.Create(ctx, product)
}

func (r *failingProductRepository) Update(ctx context.Context, product *domain.Product) error {
	r.writes++
	if r.failUpdate {
		return errors.New("failed to update product: connection reset")
	}
	return r.ProductRepository.Update(ctx, product)
}

func imageFile(name string) domain.Attachment {
	return domain.Attachment{
		Filename:    name,
		ContentType: "image/jpeg",
		Size:        4,
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("jpeg")), nil },
	}
}

func imageFiles(n int) []domain.Attachment {
	files := make([]domain.Attachment, n)
	for i := range files {
		files[i] = imageFile(fmt.Sprintf("img-%d.jpg", i))
	}
	return files
}

func productForm(kv ...string) map[string][]string {
	out := map[string][]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = append(out[kv[i]], kv[i+1])
	}
	return out
}
