package service

import (
	"context"
	"errors"
	"time"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/media"
	"fabric-catalog/internal/metrics"
	"fabric-catalog/internal/repository"
	"fabric-catalog/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	tracerName = "fabric-catalog/internal/service"

	defaultUploadConcurrency = 3
	cleanupTimeout           = 30 * time.Second
)

// ProductServiceConfig carries the request limits and policies of the write path
type ProductServiceConfig struct {
	MaxFiles          int
	MaxFileSize       int64
	EmptyClears       bool
	UploadConcurrency int
	TracerProvider    trace.TracerProvider
}

// ProductService defines the product use cases
type ProductService interface {
	Create(ctx context.Context, in validation.Input) (*domain.Product, error)
	Update(ctx context.Context, id string, in validation.Input) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error)
}

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	media      media.Store
	cfg        ProductServiceConfig
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	store media.Store,
	cfg ProductServiceConfig,
	logger *zap.Logger,
) ProductService {
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = defaultUploadConcurrency
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &productService{
		products:   products,
		categories: categories,
		media:      store,
		cfg:        cfg,
		logger:     logger,
		tracer:     tp.Tracer(tracerName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *productService) options(mode validation.Mode) validation.Options {
	return validation.Options{
		Mode:        mode,
		MaxFiles:    s.cfg.MaxFiles,
		MaxFileSize: s.cfg.MaxFileSize,
		EmptyClears: s.cfg.EmptyClears,
	}
}

// Create validates the input, uploads the images and stores the product.
// Uploaded images never outlive a failed create.
func (s *productService) Create(ctx context.Context, in validation.Input) (product *domain.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "product.create", trace.WithAttributes(
		attribute.Int("product.files", len(in.Files)),
	))
	defer func() { endSpan(span, err) }()

	patch, err := validation.ParseProduct(in, s.options(validation.ModeCreate))
	if err != nil {
		return nil, err
	}

	if len(patch.Files) > domain.MaxProductImages {
		return nil, &domain.AttachmentError{Reason: domain.AttachmentImagesLimit, Limit: domain.MaxProductImages}
	}

	category, err := s.categories.FindByID(ctx, *patch.CategoryID)
	if err != nil {
		return nil, err
	}

	urls, err := s.uploadAll(ctx, patch.Files)
	if err != nil {
		return nil, err
	}

	now := s.now()
	product = domain.NewProduct()
	patch.ApplyTo(product)
	product.ID = uuid.NewString()
	product.Images = urls
	product.CreatedAt = now
	product.UpdatedAt = now
	span.SetAttributes(attribute.String("product.id", product.ID))

	if err := s.products.Create(ctx, product); err != nil {
		s.cleanup(ctx, urls, metrics.CleanupCompensation)
		return nil, err
	}

	product.Category = category
	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.Int("images", len(product.Images)),
	)
	return product, nil
}

// Update merges the input into the stored product. Images become the kept
// subset of the current ones followed by the new uploads; dropped images
// are removed from the media store once the write has succeeded.
func (s *productService) Update(ctx context.Context, id string, in validation.Input) (product *domain.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "product.update", trace.WithAttributes(
		attribute.String("product.id", id),
		attribute.Int("product.files", len(in.Files)),
	))
	defer func() { endSpan(span, err) }()

	patch, err := validation.ParseProduct(in, s.options(validation.ModeUpdate))
	if err != nil {
		return nil, err
	}

	existing, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// only a reassignment must name an existing category
	category := existing.Category
	if patch.CategoryID != nil {
		category, err = s.categories.FindByID(ctx, *patch.CategoryID)
		if err != nil {
			return nil, err
		}
	}

	kept := keptImages(existing.Images, patch.ExistingImages)
	if len(kept)+len(patch.Files) > domain.MaxProductImages {
		return nil, &domain.AttachmentError{Reason: domain.AttachmentImagesLimit, Limit: domain.MaxProductImages}
	}

	urls, err := s.uploadAll(ctx, patch.Files)
	if err != nil {
		return nil, err
	}

	product = existing.Clone()
	patch.ApplyTo(product)
	product.Images = append(kept, urls...)
	product.UpdatedAt = s.now()

	if err := s.products.Update(ctx, product); err != nil {
		s.cleanup(ctx, urls, metrics.CleanupCompensation)
		return nil, err
	}

	if dropped := subtract(existing.Images, product.Images); len(dropped) > 0 {
		s.cleanup(ctx, dropped, metrics.CleanupReplaced)
	}

	product.Category = category
	s.logger.Info("Product updated",
		zap.String("product_id", product.ID),
		zap.Int("images_kept", len(kept)),
		zap.Int("images_added", len(urls)),
	)
	return product, nil
}

// Delete removes every image best-effort, then the record
func (s *productService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "product.delete", trace.WithAttributes(
		attribute.String("product.id", id),
	))
	defer func() { endSpan(span, err) }()

	existing, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}

	s.cleanup(ctx, existing.Images, metrics.CleanupProductDelete)

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	return s.products.List(ctx, filter)
}

// uploadAll uploads files concurrently and returns their URLs in submission
// order. On any failure the uploads that did succeed are deleted again.
func (s *productService) uploadAll(ctx context.Context, files []domain.Attachment) ([]string, error) {
	urls := make([]string, len(files))
	if len(files) == 0 {
		return urls, nil
	}

	// a failed upload does not cancel its siblings; every started upload
	// finishes so a stored file always has a URL to compensate with
	var g errgroup.Group
	g.SetLimit(s.cfg.UploadConcurrency)
	for i, file := range files {
		g.Go(func() error {
			url, err := s.media.Upload(ctx, file)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		uploaded := make([]string, 0, len(urls))
		for _, url := range urls {
			if url != "" {
				uploaded = append(uploaded, url)
			}
		}
		s.cleanup(ctx, uploaded, metrics.CleanupCompensation)

		var upstream *media.UpstreamError
		if !errors.As(err, &upstream) {
			err = &media.UpstreamError{Op: "upload", Err: err}
		}
		return nil, err
	}

	return urls, nil
}

// cleanup deletes urls best-effort. It runs detached from ctx cancellation
// so an aborted request still removes what it uploaded.
func (s *productService) cleanup(ctx context.Context, urls []string, reason string) {
	if len(urls) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	failed, err := media.DeleteAll(ctx, s.media, urls)
	if err != nil {
		s.logger.Warn("Media cleanup incomplete",
			zap.String("reason", reason),
			zap.Int("attempted", len(urls)),
			zap.Int("failed", failed),
			zap.Error(err),
		)
		metrics.RecordCleanupFailures(reason, failed)
	}
}

// keptImages returns the requested images that the product currently owns,
// in request order and without duplicates
func keptImages(current, requested []string) []string {
	owned := make(map[string]bool, len(current))
	for _, url := range current {
		owned[url] = true
	}

	kept := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, url := range requested {
		if owned[url] && !seen[url] {
			kept = append(kept, url)
			seen[url] = true
		}
	}
	return kept
}

func subtract(from, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, url := range remove {
		drop[url] = true
	}

	var out []string
	for _, url := range from {
		if !drop[url] {
			out = append(out, url)
		}
	}
	return out
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
