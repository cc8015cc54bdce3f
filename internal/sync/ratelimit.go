// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package sync

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/deskmirror/internal/metrics"
)

// DefaultRequestsPerSecond is the upstream budget when none is configured.
const DefaultRequestsPerSecond = 2.0

// Clock abstracts time for the limiter and the retry schedule.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RateLimiter is a token bucket refilled at rps tokens per second holding at
// most ceil(rps) tokens. The rate.Limiter mutex is its only shared state, so
// one instance can be handed to any number of goroutines.
type RateLimiter struct {
	limiter *rate.Limiter
	clock   Clock
}

// NewRateLimiter creates a limiter. A non-positive rps falls back to
// DefaultRequestsPerSecond and a nil clock to SystemClock.
func NewRateLimiter(rps float64, clock Clock) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if clock == nil {
		clock = SystemClock{}
	}
	burst := max(int(math.Ceil(rps)), 1)
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		clock:   clock,
	}
}

// Acquire blocks until one token is available. If ctx ends first the
// reservation is returned to the bucket and ctx.Err() is returned.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := l.clock.Now()
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("rate limiter cannot grant a single token")
	}

	delay := r.DelayFrom(now)
	metrics.RecordLimiterWait(delay)
	if delay <= 0 {
		return nil
	}
	if err := l.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(l.clock.Now())
		return err
	}
	return nil
}

// Rate returns the configured tokens per second.
func (l *RateLimiter) Rate() float64 {
	return float64(l.limiter.Limit())
}
