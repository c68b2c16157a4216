package payment

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff retries idempotent calls with exponentially growing pauses
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultBackoff is used for status polling
var DefaultBackoff = Backoff{Attempts: 4, Initial: 200 * time.Millisecond, Max: 2 * time.Second}

// policy builds the schedule for one Retry call. Pauses double without jitter
// and only Attempts bounds the total.
func (b Backoff) policy(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = b.Initial
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	if b.Max > 0 {
		exp.MaxInterval = b.Max
	}
	exp.Reset()
	retries := max(b.Attempts, 1) - 1
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// Retry calls fn until it succeeds, returns a permanent error, runs out of
// attempts, or ctx ends.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b.policy(ctx))
}

// retryable treats transport failures and 429/5xx responses as transient
func retryable(err error) bool {
	if errors.Is(err, ErrUnexpectedResponse) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
