package app

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how hard a collaborator call is retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Do runs op until it succeeds, the retries are spent or ctx is done. notify, if
// set, is called before each wait with the error that triggered it.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error, notify func(err error, wait time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.RetryNotify(func() error {
		return op(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx), notify)
}
