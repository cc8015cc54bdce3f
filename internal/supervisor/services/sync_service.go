// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package services

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/deskmirror/internal/logging"
	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
)

// SyncRunner is satisfied by *sync.Orchestrator.
type SyncRunner interface {
	Run(ctx context.Context, phases ...syncpkg.Phase) (syncpkg.RunResult, error)
}

// ScheduledSyncService runs a full sync every interval.
//
// Runs never overlap: a tick that arrives while a run (scheduled or triggered
// through the API) is active is skipped. Phase failures are logged and do not
// stop the schedule.
type ScheduledSyncService struct {
	runner     SyncRunner
	interval   time.Duration
	runOnStart bool
	name       string
}

// NewScheduledSyncService creates the scheduler. With runOnStart the first
// run starts immediately instead of after one interval.
func NewScheduledSyncService(runner SyncRunner, interval time.Duration, runOnStart bool) *ScheduledSyncService {
	return &ScheduledSyncService{
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		name:       "scheduled-sync",
	}
}

// Serve implements suture.Service. With a non-positive interval it runs at
// most once and asks the supervisor not to restart it.
func (s *ScheduledSyncService) Serve(ctx context.Context) error {
	if s.runOnStart {
		s.runOnce(ctx)
	}
	if s.interval <= 0 {
		return suture.ErrDoNotRestart
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ScheduledSyncService) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx := logging.ContextWithRunID(ctx, logging.GenerateRunID())
	log := logging.Ctx(runCtx)

	result, err := s.runner.Run(runCtx)
	switch {
	case errors.Is(err, syncpkg.ErrSyncInProgress):
		log.Info().Msg("Scheduled sync skipped, a run is already in progress")
	case err != nil:
		log.Error().Err(err).Msg("Scheduled sync could not start")
	case result.Failed():
		log.Warn().Dur("duration", result.Duration()).Msg("Scheduled sync finished with failed phases")
	default:
		log.Info().Dur("duration", result.Duration()).Msg("Scheduled sync finished")
	}
}

func (s *ScheduledSyncService) String() string {
	return s.name
}
