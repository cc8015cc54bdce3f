// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/deskmirror/internal/helpdesk"
	"github.com/tomtom215/deskmirror/internal/logging"
	"github.com/tomtom215/deskmirror/internal/metrics"
)

// ErrRetriesExhausted wraps the last error of a call that failed on every attempt.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy controls how a failed call is retried. MaxRetries counts
// retries after the first attempt.
type RetryPolicy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	TransientDelay time.Duration
}

// DefaultRetryPolicy retries three times: throttled calls after 2s, 4s and
// 8s, anything else after 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		BaseDelay:      2 * time.Second,
		TransientDelay: time.Second,
	}
}

// Fetcher executes upstream calls under the shared rate limiter.
type Fetcher struct {
	limiter *RateLimiter
	clock   Clock
	policy  RetryPolicy
}

func NewFetcher(limiter *RateLimiter, clock Clock, policy RetryPolicy) *Fetcher {
	if clock == nil {
		clock = SystemClock{}
	}
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRequestsPerSecond, clock)
	}
	return &Fetcher{limiter: limiter, clock: clock, policy: policy}
}

// Fetch runs call after acquiring a token, retrying per the fetcher's policy.
// Every attempt, including retries, draws its own token. Permanent 4xx
// responses and context cancellation are returned without retrying.
func Fetch[T any](ctx context.Context, f *Fetcher, op string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := f.limiter.Acquire(ctx); err != nil {
			return zero, err
		}

		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if helpdesk.IsPermanent(err) {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		if attempt >= f.policy.MaxRetries {
			break
		}

		throttled := helpdesk.IsThrottled(err)
		delay := f.policy.delay(attempt, err)
		metrics.RecordRetry(throttled)
		logging.Ctx(ctx).Warn().Err(err).
			Str("op", op).
			Bool("throttled", throttled).
			Int("attempt", attempt+1).
			Int("max_retries", f.policy.MaxRetries).
			Dur("delay", delay).
			Msg("Upstream call failed, retrying")

		if err := f.clock.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%s: %w after %d attempts: %w", op, ErrRetriesExhausted, f.policy.MaxRetries+1, lastErr)
}

// delay returns the wait before retry number attempt+1. Throttled calls back
// off exponentially from BaseDelay, or for the server's Retry-After if longer.
func (p RetryPolicy) delay(attempt int, err error) time.Duration {
	if !helpdesk.IsThrottled(err) {
		return p.TransientDelay
	}
	d := p.BaseDelay << attempt
	if ra := helpdesk.RetryAfter(err); ra > d {
		d = ra
	}
	return d
}
