package errors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ============================================================
// Retry Configuration
// ============================================================

// Policy defines retry behavior.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (default: 2)
	Multiplier float64

	// Jitter adds up to 10% random delay
	Jitter bool

	// RetryIf determines if an error is retryable
	RetryIf func(error) bool
}

// ConnectPolicy returns the policy used when connecting to a database
// server.
func ConnectPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryIf:      IsRetryable,
	}
}

// NoRetry returns a policy that never retries.
func NoRetry() *Policy {
	return &Policy{
		MaxAttempts: 1,
		Multiplier:  1.0,
		RetryIf:     func(error) bool { return false },
	}
}

// IsRetryable reports whether err may go away on its own. User and
// permanent AppErrors are not retryable; anything else is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == CategorySystem
	}
	return true
}

// ============================================================
// Retry Function
// ============================================================

// DoWithResult calls fn until it succeeds, returns a non-retryable error,
// or the policy runs out of attempts.
func DoWithResult[T any](ctx context.Context, policy *Policy, fn func() (T, error)) (T, error) {
	if policy == nil {
		policy = NoRetry()
	}

	var zero T
	var lastErr error
	delay := policy.InitialDelay
	attempts := max(policy.MaxAttempts, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if policy.RetryIf != nil && !policy.RetryIf(err) {
			return zero, err
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
		if policy.Jitter {
			delay += time.Duration(rand.Float64() * float64(delay) * 0.1)
		}
	}

	if attempts == 1 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}
