// Package media stores product images outside the database and hands back
// the public URL that products keep.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fabric-catalog/internal/domain"
)

// Store persists files and removes them by the URL it returned
type Store interface {
	Upload(ctx context.Context, file domain.Attachment) (string, error)
	Delete(ctx context.Context, url string) error
}

// UpstreamError reports a failed call to the media provider
type UpstreamError struct {
	Op  string
	URL string
	Err error
}

func (e *UpstreamError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("media %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("media %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// DeleteAll deletes every url concurrently. All deletions are attempted;
// failures are joined into the returned error together with their count.
func DeleteAll(ctx context.Context, store Store, urls []string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	errs := make([]error, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			errs[i] = store.Delete(ctx, url)
		}(i, url)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	return failed, errors.Join(errs...)
}
