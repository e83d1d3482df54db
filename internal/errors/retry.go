// Package errors provides retry utilities for Scout.
package errors

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// ============================================================
// Retry Configuration
// ============================================================

// Policy defines retry behavior.
//
// Retries are used only inside tool implementations (upstream data
// lookups). The dispatch loop and the model gateway never retry: a
// gateway failure is fatal for the current turn.
type Policy struct {
	// MaxAttempts is the maximum number of retry attempts
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (default: 2)
	Multiplier float64

	// Jitter enables randomized jitter to prevent thundering herd
	Jitter bool

	// RetryIf determines if an error is retryable
	RetryIf func(error) bool
}

// DefaultPolicy returns a reasonable default retry policy.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryIf:      IsRetryable,
	}
}

// LookupPolicy returns a policy for upstream data lookups.
func LookupPolicy() *Policy {
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
		MaxAttempts:  1,
		InitialDelay: 0,
		MaxDelay:     0,
		Multiplier:   1.0,
		Jitter:       false,
		RetryIf:      func(error) bool { return false },
	}
}

// ============================================================
// Retry Function
// ============================================================

// Do executes a function with retry logic.
func Do(ctx context.Context, policy *Policy, fn func() error) error {
	if policy == nil {
		policy = DefaultPolicy()
	}

	var lastErr error
	delay := policy.InitialDelay

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			// Check context before waiting
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
				// Continue to retry
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		// Check if error is retryable
		if policy.RetryIf != nil && !policy.RetryIf(lastErr) {
			return lastErr
		}

		// Calculate next delay with exponential backoff
		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}

		// Add jitter if enabled
		if policy.Jitter {
			jitter := time.Duration(rand.Float64() * float64(delay) * 0.1)
			delay += jitter
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// DoWithResult executes a function that returns a result with retry logic.
func DoWithResult[T any](ctx context.Context, policy *Policy, fn func() (T, error)) (T, error) {
	var zero T
	var result T
	var lastErr error

	if policy == nil {
		policy = DefaultPolicy()
	}
	delay := policy.InitialDelay

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if policy.RetryIf != nil && !policy.RetryIf(lastErr) {
			return zero, lastErr
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}

		if policy.Jitter {
			jitter := time.Duration(rand.Float64() * float64(delay) * 0.1)
			delay += jitter
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}
