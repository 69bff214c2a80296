package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fabric-catalog/internal/domain"

	"github.com/spf13/afero"
)

func attachment(name, contentType, body string) domain.Attachment {
	return domain.Attachment{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

type recordingStore struct {
	mu      sync.Mutex
	deleted []string
	failOn  map[string]bool
}

func (s *recordingStore) Upload(ctx context.Context, file domain.Attachment) (string, error) {
	return "mem://" + file.Filename, nil
}

func (s *recordingStore) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	if s.failOn[url] {
		return &UpstreamError{Op: "delete", URL: url, Err: errors.New("provider unavailable")}
	}
	return nil
}

func TestLocalStore_UploadServeDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewLocalStore(fs, "/uploads/")
	ctx := context.Background()

	url, err := store.Upload(ctx, attachment("scarf.JPG", "image/jpeg", "jpeg-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".jpg") {
		t.Fatalf("unexpected url %q", url)
	}

	srv := http.StripPrefix(store.BaseURL(), store.Handler())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg-bytes" {
		t.Fatalf("serve: status %d body %q", rec.Code, rec.Body.String())
	}

	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// deleting twice is not an error
	if err := store.Delete(ctx, url); err != nil {
		t.Errorf("second delete: %v", err)
	}

	exists, _ := afero.Exists(fs, "/"+strings.TrimPrefix(url, "/uploads/"))
	if exists {
		t.Error("file still present after delete")
	}
}

func TestLocalStore_RejectsForeignURLs(t *testing.T) {
	store := NewLocalStore(afero.NewMemMapFs(), "/uploads")

	for _, url := range []string{
		"https://res.cloudinary.com/demo/image/upload/v1/products/a.jpg",
		"/uploads/../etc/passwd",
		"/uploads/",
	} {
		var upstream *UpstreamError
		if err := store.Delete(context.Background(), url); !errors.As(err, &upstream) {
			t.Errorf("Delete(%q): expected UpstreamError, got %v", url, err)
		}
	}
}

func TestLocalStore_ExtensionFromContentType(t *testing.T) {
	store := NewLocalStore(afero.NewMemMapFs(), "/uploads")

	url, err := store.Upload(context.Background(), attachment("blob", "image/png", "png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("expected .png extension, got %q", url)
	}
}

func TestPublicIDFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://res.cloudinary.com/demo/image/upload/v1712345678/products/abc123.jpg", "products/abc123", true},
		{"https://res.cloudinary.com/demo/image/upload/products/abc123.png", "products/abc123", true},
		{"https://res.cloudinary.com/demo/image/upload/c_fill,w_200/v17/products/x.webp", "products/x", true},
		{"https://example.com/images/abc.jpg", "", false},
		{"https://res.cloudinary.com/demo/image/upload/", "", false},
	}

	for _, tc := range cases {
		got, err := PublicIDFromURL(tc.url)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("PublicIDFromURL(%q) = %q, %v; want %q", tc.url, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("PublicIDFromURL(%q): expected error, got %q", tc.url, got)
		}
	}
}

func TestDeleteAll_AttemptsEveryURL(t *testing.T) {
	store := &recordingStore{failOn: map[string]bool{"b": true, "c": true}}

	failed, err := DeleteAll(context.Background(), store, []string{"a", "b", "c", "d"})
	if failed != 2 {
		t.Errorf("expected 2 failures, got %d", failed)
	}
	if err == nil {
		t.Fatal("expected joined error")
	}

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Errorf("expected joined error to contain UpstreamError, got %v", err)
	}
	if len(store.deleted) != 4 {
		t.Errorf("expected 4 delete attempts, got %d", len(store.deleted))
	}
}

func TestDeleteAll_Empty(t *testing.T) {
	failed, err := DeleteAll(context.Background(), &recordingStore{}, nil)
	if failed != 0 || err != nil {
		t.Errorf("expected no-op, got %d %v", failed, err)
	}
}

func TestThrottle_HonoursContext(t *testing.T) {
	store := Throttle(&recordingStore{}, 0.001, 1)
	ctx := context.Background()

	if _, err := store.Upload(ctx, attachment("a.jpg", "image/jpeg", "a")); err != nil {
		t.Fatalf("first upload should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := store.Upload(ctx, attachment("b.jpg", "image/jpeg", "b")); err == nil {
		t.Error("expected second upload to be throttled")
	}
}

func TestThrottle_DisabledReturnsNext(t *testing.T) {
	next := &recordingStore{}
	if Throttle(next, 0, 0) != Store(next) {
		t.Error("expected zero rate to disable throttling")
	}
}
