package resilience

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig tunes the retry loop. RetryableErrors decides whether a failure
// is worth another attempt; the default treats every error as permanent, so
// callers opt in to retries explicitly.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns three attempts with exponential backoff from
// 100ms, capped at 5s.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: func(error) bool { return false },
	}
}

// RetryWithResult runs fn up to MaxAttempts times, sleeping with exponential
// backoff between attempts. It stops early when ctx is done or when
// RetryableErrors reports the failure as permanent.
func RetryWithResult[T any](ctx context.Context, config *RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			return zero, err
		}
		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay = nextDelay(delay, config)
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", config.MaxAttempts, lastErr)
}

func nextDelay(delay time.Duration, config *RetryConfig) time.Duration {
	next := time.Duration(float64(delay) * config.BackoffFactor)
	if next > config.MaxDelay {
		return config.MaxDelay
	}
	return next
}
