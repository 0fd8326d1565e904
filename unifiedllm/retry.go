package unifiedllm

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy retries retryable errors with capped exponential backoff.
type RetryPolicy struct {
	// MaxRetries counts retries after the first call.
	MaxRetries int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps every wait, including provider Retry-After hints. A hint
	// longer than MaxDelay ends the retries.
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter spreads each wait by up to this fraction in either direction.
	Jitter float64
	// OnRetry observes each retry before its wait. ctx is the context
	// passed to Retry.
	OnRetry func(ctx context.Context, err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns two retries starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2,
		Jitter:       0.5,
	}
}

// Delay is the wait before retry number attempt+1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for range attempt {
		d *= max(p.Multiplier, 1)
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			break
		}
	}
	if p.MaxDelay > 0 {
		d = min(d, float64(p.MaxDelay))
	}
	if p.Jitter > 0 {
		d *= 1 + p.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(d)
}

// wait returns the delay before the next call, or false when err should not
// be retried.
func (p RetryPolicy) wait(err error, attempt int) (time.Duration, bool) {
	if attempt >= p.MaxRetries || !IsRetryable(err) {
		return 0, false
	}
	hint := retryAfter(err)
	if hint == nil {
		return p.Delay(attempt), true
	}
	d := time.Duration(*hint * float64(time.Second))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return 0, false
	}
	return d, true
}

// Retry calls fn until it succeeds, returns an error the policy will not
// retry, or ctx ends during a wait.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		delay, ok := policy.wait(err, attempt)
		if !ok {
			return result, err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(ctx, err, attempt+1, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, &AbortError{SDKError: SDKError{Message: "request cancelled during retry", Cause: ctx.Err()}}
		case <-timer.C:
		}
	}
}
