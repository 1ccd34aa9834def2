package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultMaxRetries    = 3
	defaultInitialDelay  = time.Second
	defaultMaxDelay      = 10 * time.Second
	defaultBackoffFactor = 2.0
)

// RetryPolicy bounds how often and how patiently a failed attempt is repeated.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// IsRetryable decides whether an attempt error is worth repeating. Nil
	// retries rate-limit errors only.
	IsRetryable func(error) bool
	// OnRetry is invoked before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    defaultMaxRetries,
		InitialDelay:  defaultInitialDelay,
		MaxDelay:      defaultMaxDelay,
		BackoffFactor: defaultBackoffFactor,
		IsRetryable:   RetryRateLimited,
	}
}

// RetryRateLimited is the default retry predicate.
func RetryRateLimited(err error) bool {
	return IsRateLimit(err)
}

// RetryTransient also repeats network failures and upstream 5xx answers.
func RetryTransient(err error) bool {
	switch KindOf(err) {
	case KindRateLimit, KindNetwork:
		return true
	case KindAPI:
		return statusOf(err) >= 500
	default:
		return false
	}
}

// Attempts is the total number of tries the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

func (p RetryPolicy) retryable(err error) bool {
	if p.IsRetryable == nil {
		return RetryRateLimited(err)
	}
	return p.IsRetryable(err)
}

func (p RetryPolicy) nextDelay(current time.Duration) time.Duration {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	next := time.Duration(float64(current) * factor)
	if p.MaxDelay > 0 && next > p.MaxDelay {
		return p.MaxDelay
	}
	return next
}

// sleepFor stretches the backoff delay to the upstream Retry-After hint, still
// bounded by MaxDelay.
func (p RetryPolicy) sleepFor(delay time.Duration, err error) time.Duration {
	hint := retryAfterOf(err)
	if hint <= delay {
		return delay
	}
	if p.MaxDelay > 0 && hint > p.MaxDelay {
		return p.MaxDelay
	}
	return hint
}

func retryAfterOf(err error) time.Duration {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata == nil {
		return 0
	}
	switch value := rich.Metadata["retry_after_ms"].(type) {
	case int64:
		return time.Duration(value) * time.Millisecond
	case int:
		return time.Duration(value) * time.Millisecond
	}
	return 0
}

// Retry runs op until it succeeds, returns a non-retryable error or the
// policy's attempts are spent. The last error is returned unchanged. Waits
// between attempts end early with a Cancelled error when ctx is done.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}

	delay := policy.InitialDelay
	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	attempts := policy.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == attempts || !policy.retryable(err) {
			break
		}
		sleep := policy.sleepFor(delay, err)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, sleep, err)
		}
		if err := wait(ctx, sleep); err != nil {
			return zero, err
		}
		delay = policy.nextDelay(delay)
	}
	return zero, lastErr
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		if err := ctx.Err(); err != nil {
			return NewCancelledError(err)
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return NewCancelledError(ctx.Err())
	case <-timer.C:
		return nil
	}
}
