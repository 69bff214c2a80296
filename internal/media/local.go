package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"fabric-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// LocalStore writes images to a filesystem and serves them under baseURL
type LocalStore struct {
	fs      afero.Fs
	baseURL string
}

// NewLocalStore stores files at the root of fs. baseURL is the public
// prefix the files are served under, e.g. "/uploads".
func NewLocalStore(fs afero.Fs, baseURL string) *LocalStore {
	return &LocalStore{fs: fs, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// NewDiskStore stores files below dir on the host filesystem
func NewDiskStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return NewLocalStore(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL), nil
}

func (s *LocalStore) Upload(ctx context.Context, file domain.Attachment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file.Filename, err)
	}
	defer r.Close()

	name := uuid.NewString() + extension(file)
	if err := afero.WriteReader(s.fs, "/"+name, r); err != nil {
		return "", &UpstreamError{Op: "upload", Err: err}
	}

	return s.baseURL + "/" + name, nil
}

func (s *LocalStore) Delete(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return &UpstreamError{Op: "delete", URL: url, Err: errors.New("not a local media url")}
	}

	if err := s.fs.Remove("/" + name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &UpstreamError{Op: "delete", URL: url, Err: err}
	}
	return nil
}

// Handler serves stored files; mount it with http.StripPrefix(baseURL, ...)
func (s *LocalStore) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(s.fs).Dir("/"))
}

// BaseURL is the prefix every returned URL starts with
func (s *LocalStore) BaseURL() string {
	return s.baseURL
}

func extension(file domain.Attachment) string {
	if ext := strings.ToLower(filepath.Ext(path.Base(file.Filename))); ext != "" && len(ext) <= 6 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(file.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
