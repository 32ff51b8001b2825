package providers

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/avast/retry-go/v4"
)

// Retry defaults.
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 10 * time.Second

	// StatusOverloaded is Anthropic's "overloaded" status.
	StatusOverloaded = 529
)

// RetryPolicy controls how transient provider failures are retried.
// Only statuses listed in RetryStatuses produce a TransientError; everything
// else fails on the first attempt.
type RetryPolicy struct {
	MaxRetries    int                 // Retries after the first attempt
	Delay         time.Duration       // Base wait before each retry
	DelayType     retry.DelayTypeFunc // Defaults to retry.FixedDelay
	RetryStatuses []int               // Defaults to 529
}

// DefaultRetryPolicy returns two retries, ten seconds apart, on 529 only.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    DefaultMaxRetries,
		Delay:         DefaultRetryDelay,
		DelayType:     retry.FixedDelay,
		RetryStatuses: []int{StatusOverloaded},
	}
}

// withDefaults fills zero fields. A negative MaxRetries disables retries.
func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.DelayType == nil {
		p.DelayType = retry.FixedDelay
	}
	if len(p.RetryStatuses) == 0 {
		p.RetryStatuses = []int{StatusOverloaded}
	}
	return p
}

// Attempts is the total number of attempts a call may make.
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

// IsTransientStatus reports whether a response status should be retried.
func (p RetryPolicy) IsTransientStatus(status int) bool {
	return slices.Contains(p.RetryStatuses, status)
}

// Retryable is the retry predicate: only transient provider errors qualify.
func (p RetryPolicy) Retryable(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// Timer abstracts the wait between attempts so tests can observe delays
// without sleeping. It matches retry.Timer.
type Timer interface {
	After(time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time { return time.After(d) }

// options translates the policy into retry-go options.
func (p RetryPolicy) options(ctx context.Context, timer Timer, onRetry retry.OnRetryFunc) []retry.Option {
	if timer == nil {
		timer = realTimer{}
	}
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(p.Attempts())),
		retry.Delay(p.Delay),
		retry.DelayType(p.DelayType),
		retry.RetryIf(p.Retryable),
		retry.LastErrorOnly(true),
		retry.WithTimer(timer),
	}
	if onRetry != nil {
		opts = append(opts, retry.OnRetry(onRetry))
	}
	return opts
}
