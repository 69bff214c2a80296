package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"fabric-catalog/internal/domain"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var versionSegment = regexp.MustCompile(`^v\d+$`)

// CloudinaryStore uploads images into one Cloudinary folder
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore creates a store for the given account credentials
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, file domain.Attachment) (string, error) {
	r, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file.Filename, err)
	}
	defer r.Close()

	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", &UpstreamError{Op: "upload", Err: err}
	}
	if res.Error.Message != "" {
		return "", &UpstreamError{Op: "upload", Err: errors.New(res.Error.Message)}
	}

	return res.SecureURL, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, imageURL string) error {
	publicID, err := PublicIDFromURL(imageURL)
	if err != nil {
		return &UpstreamError{Op: "delete", URL: imageURL, Err: err}
	}

	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return &UpstreamError{Op: "delete", URL: imageURL, Err: err}
	}
	if res.Error.Message != "" {
		return &UpstreamError{Op: "delete", URL: imageURL, Err: errors.New(res.Error.Message)}
	}
	// "not found" means it is already gone
	if res.Result != "ok" && res.Result != "not found" {
		return &UpstreamError{Op: "delete", URL: imageURL, Err: fmt.Errorf("unexpected result %q", res.Result)}
	}

	return nil
}

// Ping checks credentials and connectivity
func (s *CloudinaryStore) Ping(ctx context.Context) error {
	if _, err := s.cld.Admin.Ping(ctx); err != nil {
		return &UpstreamError{Op: "ping", Err: err}
	}
	return nil
}

// PublicIDFromURL extracts the Cloudinary public id from a delivery URL:
// everything after ".../upload/[transformations/][vNNN/]" minus the extension.
func PublicIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid media url: %w", err)
	}

	_, rest, found := strings.Cut(u.Path, "/upload/")
	if !found || rest == "" {
		return "", fmt.Errorf("not a cloudinary delivery url: %s", raw)
	}

	segments := strings.Split(rest, "/")
	for i, seg := range segments {
		if versionSegment.MatchString(seg) {
			segments = segments[i+1:]
			break
		}
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("not a cloudinary delivery url: %s", raw)
	}

	id := strings.Join(segments, "/")
	return strings.TrimSuffix(id, path.Ext(id)), nil
}
