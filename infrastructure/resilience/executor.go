// Package resilience guards outbound provider calls using fortify.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// Executor runs provider calls with bulkhead, timeout, circuit breaker and
// retry protection.
type Executor[T any] struct {
	bulkhead bulkhead.Bulkhead[T]
	breaker  circuitbreaker.CircuitBreaker[T]
	retry    retry.Retry[T]
	timeout  time.Duration
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent outbound calls.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts for idempotent calls.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// Timeout bounds a single call including retries.
	Timeout time.Duration
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       200 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		Timeout:                 30 * time.Second,
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor[T any](config ExecutorConfig) *Executor[T] {
	defaults := DefaultExecutorConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = defaults.CircuitBreakerThreshold
	}
	if config.RetryMaxAttempts <= 0 {
		config.RetryMaxAttempts = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	threshold := uint32(config.CircuitBreakerThreshold) // #nosec G115 -- positive, checked above

	return &Executor[T]{
		bulkhead: bulkhead.New[T](bulkhead.Config{
			MaxConcurrent: config.MaxConcurrent,
		}),
		breaker: circuitbreaker.New[T](circuitbreaker.Config{
			MaxRequests: uint32(config.MaxConcurrent), // #nosec G115 -- positive, checked above
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		retry: retry.New[T](retry.Config{
			MaxAttempts:   config.RetryMaxAttempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.RetryBackoffMultiplier,
		}),
		timeout: config.Timeout,
	}
}

// permanentError marks a failure that must not be retried or counted
// against the circuit breaker, such as a 4xx provider response.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so the executor returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Execute runs fn. Composition order: Bulkhead → Timeout → Circuit Breaker →
// Retry, with retry applied only when retryable is set.
func (e *Executor[T]) Execute(ctx context.Context, retryable bool, fn func(context.Context) (T, error)) (T, error) {
	var permanent error
	attempt := func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		var p *permanentError
		if errors.As(err, &p) {
			permanent = p.err
			var zero T
			return zero, nil
		}
		return v, err
	}

	result, err := e.bulkhead.Execute(ctx, func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		return e.breaker.Execute(ctx, func(ctx context.Context) (T, error) {
			if retryable {
				return e.retry.Do(ctx, attempt)
			}
			return attempt(ctx)
		})
	})
	if err != nil {
		return result, err
	}
	if permanent != nil {
		var zero T
		return zero, permanent
	}
	return result, nil
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (e *Executor[T]) CircuitBreakerState() string {
	return e.breaker.State().String()
}
