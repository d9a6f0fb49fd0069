package storage

import (
	"context"
	"fmt"
	"time"
)

var defaultBackoffs = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Retrying retries Destroy on the wrapped store with a fixed backoff schedule.
type Retrying struct {
	next       Store
	maxRetries int
	backoffs   []time.Duration
}

func NewRetrying(next Store, maxRetries int) *Retrying {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Retrying{next: next, maxRetries: maxRetries, backoffs: defaultBackoffs}
}

// WithBackoffs overrides the wait schedule between attempts.
func (r *Retrying) WithBackoffs(backoffs ...time.Duration) *Retrying {
	r.backoffs = backoffs
	return r
}

func (r *Retrying) Destroy(ctx context.Context, publicID string) error {
	return r.retryWithBackoff(ctx, func() error {
		return r.next.Destroy(ctx, publicID)
	})
}

func (r *Retrying) retryWithBackoff(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < r.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if i == r.maxRetries-1 || i >= len(r.backoffs) {
			continue
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up after %d attempts: %w", i+1, lastErr)
		case <-time.After(r.backoffs[i]):
		}
	}

	return fmt.Errorf("failed after %d retries: %w", r.maxRetries, lastErr)
}
