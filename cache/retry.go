package cache

import (
	"context"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"

	"github.com/briangreenhill/postboard/apierror"
)

// RetryPolicy governs how failed reads are retried. Mutations are never
// retried.
type RetryPolicy struct {
	// MaxAttempts counts the first try. Values below 2 disable retries.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// SkipStatuses lists HTTP statuses that are never retried.
	SkipStatuses []int
}

// DefaultRetryPolicy tries a read four times in total and gives up at once
// on 401 and 404.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		SkipStatuses:    []int{401, 404},
	}
}

// NoRetry fails on the first error.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// Retryable reports whether err is worth another attempt. Missing resources,
// auth failures and validation failures never are, nor is a bare
// cancellation. A transport failure is retried even when it wraps a deadline,
// since an HTTP client timeout surfaces that way.
func (p RetryPolicy) Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch apierror.KindOf(err) {
	case apierror.KindNotFound, apierror.KindUnauthorized, apierror.KindValidation:
		return false
	case apierror.KindUnknown:
		if apierror.Canceled(err) {
			return false
		}
	}
	if status := apierror.StatusOf(err); status != 0 && slices.Contains(p.SkipStatuses, status) {
		return false
	}
	return true
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

// run calls fn until it succeeds, fails permanently, or the attempts run out.
// Once ctx itself is done every error is permanent. notify is called before
// each retry.
func (p RetryPolicy) run(ctx context.Context, fn func(context.Context) (any, error), notify func(err error, next time.Duration)) (any, error) {
	if p.MaxAttempts < 2 {
		return fn(ctx)
	}
	v, err := backoff.Retry(ctx, func() (any, error) {
		v, err := fn(ctx)
		if err != nil && (ctx.Err() != nil || !p.Retryable(err)) {
			return nil, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return v, err
}
