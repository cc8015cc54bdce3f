// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package helpdesk

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, true)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if _, err := client.ListUsers(ctx, upstream.ListParams{}); err == nil {
			t.Fatal("expected server error")
		}
	}
	if got := client.BreakerState(); got != "open" {
		t.Fatalf("breaker state: got %q, want open", got)
	}

	_, err := client.ListUsers(ctx, upstream.ListParams{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if got := hits.Load(); got != 10 {
		t.Errorf("open breaker must not reach the server: %d hits", got)
	}
}

func TestCircuitBreakerIgnoresThrottling(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, true)

	for i := 0; i < 15; i++ {
		_, err := client.ListTickets(context.Background(), upstream.ListParams{})
		if !IsThrottled(err) {
			t.Fatalf("attempt %d: expected throttled error, got %v", i, err)
		}
	}
	if got := client.BreakerState(); got != "closed" {
		t.Errorf("throttling must not trip the breaker, state %q", got)
	}
}

func TestBreakerDisabled(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, false)
	if got := client.BreakerState(); got != "disabled" {
		t.Errorf("BreakerState: got %q, want disabled", got)
	}
}

func TestStateToString(t *testing.T) {
	t.Parallel()

	tests := map[gobreaker.State]string{
		gobreaker.StateClosed:   "closed",
		gobreaker.StateHalfOpen: "half-open",
		gobreaker.StateOpen:     "open",
	}
	for state, want := range tests {
		if got := stateToString(state); got != want {
			t.Errorf("stateToString(%d): got %q, want %q", state, got, want)
		}
	}
	if stateToFloat(gobreaker.StateOpen) != 2 {
		t.Error("open state should export as 2")
	}
}
