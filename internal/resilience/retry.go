package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig holds configuration for the retry policy.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	// Zero disables retries entirely.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Classifier reports whether a failure is worth retrying. Failures it
// rejects are terminal and surface immediately.
type Classifier func(error) bool

// Backoff calculates the wait before retrying attempt n.
// Formula: min(base * 2^n, maxDelay) plus uniform jitter in [0, delay).
func Backoff(attempt int, config RetryConfig) time.Duration {
	delay := config.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= config.MaxDelay {
			delay = config.MaxDelay
			break
		}
	}
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	if delay <= 0 {
		return 0
	}
	return delay + time.Duration(rand.Int63n(int64(delay)))
}

// Do executes op through the breaker with retries. Retryable failures
// back off exponentially with jitter; terminal failures and breaker
// rejections surface immediately. A breaker rejection is never retried,
// which keeps retry traffic away from an unhealthy dependency.
func Do[T any](ctx context.Context, breaker *Breaker, config RetryConfig, retryable Classifier, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		var result T
		err := breaker.Guard(ctx, func(ctx context.Context) error {
			var opErr error
			result, opErr = op(ctx)
			return opErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsBreakerOpen(err) {
			return zero, err
		}
		if retryable == nil || !retryable(err) {
			return zero, err
		}
		if attempt >= config.MaxRetries {
			return zero, err
		}

		select {
		case <-time.After(Backoff(attempt, config)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
