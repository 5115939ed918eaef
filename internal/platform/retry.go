// Package platform — retry policy for transient gateway failures.
//
// The policy mirrors the platform tier's guidance: a small bounded number of
// attempts with exponential backoff. Quota refusals are permanent by
// definition (retrying cannot help inside the same day) and short-circuit
// immediately.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// retryAttempts bounds the total number of tries per call site.
	retryAttempts = 3
	// retryInitialWait seeds the exponential backoff.
	retryInitialWait = 1 * time.Second
	// retryMaxWait caps the interval between attempts.
	retryMaxWait = 10 * time.Second
)

// RetryResult runs op with bounded exponential backoff and returns its value.
// ErrQuotaExceeded and context cancellation abort immediately; every other
// error is considered transient (network, rate limit) and retried up to the
// attempt budget.
func RetryResult[T any](ctx context.Context, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialWait
	b.MaxInterval = retryMaxWait

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && errors.Is(err, ErrQuotaExceeded) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(retryAttempts))
}

// Retry is the value-less variant of RetryResult.
func Retry(ctx context.Context, op func() error) error {
	_, err := RetryResult(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
