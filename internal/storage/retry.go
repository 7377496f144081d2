package storage

import (
	"context"
	"time"

	"ammEngine/internal/model"
)

// WithRetry runs fn until it succeeds, doubling the delay between attempts.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// Retrying wraps a journal so each batch is retried before giving up.
type Retrying struct {
	Journal    Journal
	MaxRetries int
	Backoff    time.Duration
}

func (r Retrying) PutOperations(ctx context.Context, ops []model.Operation) error {
	return WithRetry(ctx, r.MaxRetries, r.Backoff, func(ctx context.Context) error {
		return r.Journal.PutOperations(ctx, ops)
	})
}
