// Package retry provides a bounded retry combinator with a fixed delay
// between attempts and context cancellation.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds a retried operation. A policy of N attempts waits Delay
// between consecutive attempts, so N failures cost N-1 delays.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: delay}
}

func (p Policy) attempts() uint {
	if p.MaxAttempts < 1 {
		return 1
	}
	return uint(p.MaxAttempts)
}

// Operation is one attempt. attempt starts at 1.
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Notify is called after a failed attempt that will be retried.
type Notify func(attempt int, err error, wait time.Duration)

// Do runs op until it succeeds, returns a Permanent error, the attempts are
// exhausted or ctx is done. Attempts never overlap. On exhaustion the last
// error is returned; on cancellation the context's cause is returned.
func Do[T any](ctx context.Context, p Policy, op Operation[T], notify Notify) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		return op(ctx, attempt)
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(p.attempts()),
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			notify(attempt, err, wait)
		}))
	}

	res, err := backoff.Retry(ctx, operation, opts...)
	if err != nil && ctx.Err() != nil {
		var zero T
		return zero, context.Cause(ctx)
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return res, err
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
