package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/docarrow/pkg/errors"
)

// RetryPolicy controls how failed destination writes are retried
type RetryPolicy struct {
	// MaxAttempts counts the first try; 1 disables retries
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultRetryPolicy retries a write three times over a few seconds
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BackoffBase: 200 * time.Millisecond,
		BackoffMax:  5 * time.Second,
	}
}

// backoff returns the delay before retry number attempt (1-based):
// exponential with ±12.5% jitter, capped at BackoffMax.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BackoffBase <= 0 {
		return 0
	}
	delay := time.Duration(1<<uint(attempt-1)) * p.BackoffBase //nolint:gosec // G115: attempt is bounded by MaxAttempts

	if span := int64(delay / 4); span > 0 {
		delay += time.Duration(time.Now().UnixNano()%span) - delay/8
	}
	if p.BackoffMax > 0 && delay > p.BackoffMax {
		delay = p.BackoffMax
	}
	return delay
}

// retryable reports whether err may succeed on a later attempt.
// Cancellation and permanent failures never do.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.IsPermanent(err)
}

// retry runs fn until it succeeds, fails permanently or attempts run out
func (p RetryPolicy) retry(ctx context.Context, log *zap.Logger, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= attempts || !retryable(err) {
			return err
		}

		delay := p.backoff(attempt)
		log.Warn("write failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
	}
}
