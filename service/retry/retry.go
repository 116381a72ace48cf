// Package retry runs operations with bounded exponential backoff.
package retry

import (
	"context"
	"math"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// jitterFactor spreads each delay over +/- 50% of its nominal value.
const jitterFactor = 0.5

// Policy controls retry behaviour.
type Policy struct {
	MaxAttempts int           `json:"maxAttempts" yaml:"maxAttempts"`
	BaseDelay   time.Duration `json:"baseDelay" yaml:"baseDelay"`
	MaxDelay    time.Duration `json:"maxDelay" yaml:"maxDelay"`
	Multiplier  float64       `json:"multiplier" yaml:"multiplier"`
	Jitter      bool          `json:"jitter" yaml:"jitter"`
}

// DefaultPolicy is used for outbound engine calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2,
	}
}

// NoRetry runs the operation exactly once.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

func (p Policy) normalized() Policy {
	q := p
	if q.MaxAttempts <= 0 {
		q.MaxAttempts = 1
	}
	if q.BaseDelay < 0 {
		q.BaseDelay = 0
	}
	if q.Multiplier < 1 {
		q.Multiplier = 2
	}
	if q.MaxDelay > 0 && q.MaxDelay < q.BaseDelay {
		q.MaxDelay = q.BaseDelay
	}
	return q
}

// BackOff returns the exponential schedule of the policy, without an attempt
// bound: base * multiplier^n capped at max, randomized when Jitter is set.
func (p Policy) BackOff() *backoff.ExponentialBackOff {
	q := p.normalized()
	ret := backoff.NewExponentialBackOff()
	ret.InitialInterval = q.BaseDelay
	ret.Multiplier = q.Multiplier
	ret.MaxInterval = q.MaxDelay
	if ret.MaxInterval <= 0 {
		ret.MaxInterval = time.Duration(math.MaxInt64)
	}
	ret.RandomizationFactor = 0
	if q.Jitter {
		ret.RandomizationFactor = jitterFactor
	}
	ret.MaxElapsedTime = 0
	ret.Reset()
	return ret
}

// Delay returns the wait before the retry that follows the given failed
// attempt (1-based): min(base * multiplier^(attempt-1), max).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := p.BackOff()
	var ret time.Duration
	for i := 0; i < attempt; i++ {
		ret = b.NextBackOff()
	}
	return ret
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn until it succeeds, returns a non retryable error, the attempts are
// exhausted or ctx is done. The last error of fn is returned.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	return DoNotify(ctx, policy, retryable, fn, nil)
}

// DoNotify is Do that calls notify with the error and the delay before every
// retry.
func DoNotify(ctx context.Context, policy Policy, retryable func(error) bool, fn func(ctx context.Context) error, notify backoff.Notify) error {
	policy = policy.normalized()
	b := backoff.WithContext(backoff.WithMaxRetries(policy.BackOff(), uint64(policy.MaxAttempts-1)), ctx)
	var last error
	err := backoff.RetryNotify(func() error {
		if last = fn(ctx); last == nil {
			return nil
		}
		if retryable == nil || !retryable(last) {
			return backoff.Permanent(last)
		}
		return last
	}, b, notify)
	if err != nil && last != nil {
		return last
	}
	return err
}
