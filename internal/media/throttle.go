package media

import (
	"context"
	"fmt"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/metrics"

	"golang.org/x/time/rate"
)

type throttledStore struct {
	next    Store
	limiter *rate.Limiter
}

// Throttle limits calls to next to perSecond with the given burst.
// Callers block until a token is available or ctx ends.
func Throttle(next Store, perSecond float64, burst int) Store {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &throttledStore{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (s *throttledStore) Upload(ctx context.Context, file domain.Attachment) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("media upload throttled: %w", err)
	}
	return s.next.Upload(ctx, file)
}

func (s *throttledStore) Delete(ctx context.Context, url string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("media delete throttled: %w", err)
	}
	return s.next.Delete(ctx, url)
}

type instrumentedStore struct {
	next   Store
	driver string
}

// Instrument counts upload outcomes per driver
func Instrument(next Store, driver string) Store {
	return &instrumentedStore{next: next, driver: driver}
}

func (s *instrumentedStore) Upload(ctx context.Context, file domain.Attachment) (string, error) {
	url, err := s.next.Upload(ctx, file)
	metrics.RecordUpload(s.driver, err)
	return url, err
}

func (s *instrumentedStore) Delete(ctx context.Context, url string) error {
	return s.next.Delete(ctx, url)
}
