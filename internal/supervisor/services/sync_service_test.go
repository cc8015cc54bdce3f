// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/deskmirror/internal/logging"
	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
)

var _ suture.Service = (*ScheduledSyncService)(nil)

type mockRunner struct {
	calls  atomic.Int32
	err    error
	result syncpkg.RunResult
	runIDs chan string
}

func newMockRunner() *mockRunner {
	return &mockRunner{runIDs: make(chan string, 16)}
}

func (m *mockRunner) Run(ctx context.Context, _ ...syncpkg.Phase) (syncpkg.RunResult, error) {
	m.calls.Add(1)
	select {
	case m.runIDs <- logging.RunIDFromContext(ctx):
	default:
	}
	return m.result, m.err
}

func waitForCalls(t *testing.T, r *mockRunner, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least %d runs, got %d", n, r.calls.Load())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestScheduledSyncRunsOnInterval(t *testing.T) {
	runner := newMockRunner()
	svc := NewScheduledSyncService(runner, 10*time.Millisecond, false)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	waitForCalls(t, runner, 3)
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	first := <-runner.runIDs
	second := <-runner.runIDs
	if first == "" || first == second {
		t.Errorf("expected a fresh run id per run, got %q and %q", first, second)
	}
}

func TestScheduledSyncRunOnStart(t *testing.T) {
	runner := newMockRunner()
	svc := NewScheduledSyncService(runner, time.Hour, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = svc.Serve(ctx) }()
	waitForCalls(t, runner, 1)
}

func TestScheduledSyncWithoutIntervalRunsOnce(t *testing.T) {
	runner := newMockRunner()
	svc := NewScheduledSyncService(runner, 0, true)

	err := svc.Serve(context.Background())
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("expected ErrDoNotRestart, got %v", err)
	}
	if n := runner.calls.Load(); n != 1 {
		t.Errorf("expected exactly one run, got %d", n)
	}
}

func TestScheduledSyncSurvivesRunErrors(t *testing.T) {
	runner := newMockRunner()
	runner.err = syncpkg.ErrSyncInProgress
	svc := NewScheduledSyncService(runner, 5*time.Millisecond, true)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	waitForCalls(t, runner, 3)
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("a busy orchestrator must not stop the schedule, got %v", err)
	}
}

func TestScheduledSyncSkipsWhenCancelled(t *testing.T) {
	runner := newMockRunner()
	svc := NewScheduledSyncService(runner, time.Hour, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if n := runner.calls.Load(); n != 0 {
		t.Errorf("expected no runs after cancellation, got %d", n)
	}
}
