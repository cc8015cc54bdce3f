// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/deskmirror/internal/logging"
	"github.com/tomtom215/deskmirror/internal/models"
	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
	"github.com/tomtom215/deskmirror/internal/validation"
)

const maxRequestBody = 64 << 10

// SyncStatus is the /sync/status payload.
type SyncStatus struct {
	Enabled bool                `json:"enabled"`
	State   syncpkg.State       `json:"state"`
	Running bool                `json:"running"`
	LastRun *syncpkg.RunResult  `json:"last_run,omitempty"`
	Cursors []models.SyncCursor `json:"cursors"`
}

// SyncRequest is the optional body of POST /sync. No phases means all of them.
type SyncRequest struct {
	Phases []string `json:"phases" validate:"omitempty,max=5,dive,oneof=users agents tags customers tickets messages"`
}

// SyncAccepted is returned when a run starts.
type SyncAccepted struct {
	RunID  string          `json:"run_id"`
	Phases []syncpkg.Phase `json:"phases"`
}

// SyncStatusHandler reports orchestrator state and the cursor table.
func (h *Handler) SyncStatusHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	cursors, err := h.db.GetStatus(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if cursors == nil {
		cursors = []models.SyncCursor{}
	}

	status := SyncStatus{State: syncpkg.StateIdle, Cursors: cursors}
	if h.sync != nil {
		status.Enabled = true
		status.State = h.sync.State()
		status.Running = h.sync.Running()
		status.LastRun = h.sync.LastRun()
	}
	rw.Success(status)
}

// TriggerSync starts a run in the background and answers 202, or 409 when a
// run is already active.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.sync == nil {
		rw.ServiceUnavailable("sync is disabled: no helpdesk configured")
		return
	}

	var req SyncRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}

	phases := make([]syncpkg.Phase, 0, len(req.Phases))
	for _, name := range req.Phases {
		p, err := syncpkg.ParsePhase(name)
		if err != nil {
			rw.BadRequest(err.Error())
			return
		}
		phases = append(phases, p)
	}
	if len(phases) == 0 {
		phases = append(phases, syncpkg.AllPhases...)
	}

	if h.sync.Running() {
		rw.Conflict(syncpkg.ErrSyncInProgress.Error())
		return
	}

	runID := logging.GenerateRunID()
	ctx := logging.ContextWithRunID(h.baseCtx, runID)
	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		result, err := h.sync.Run(ctx, phases...)
		log := logging.Ctx(ctx)
		switch {
		case errors.Is(err, syncpkg.ErrSyncInProgress):
			log.Warn().Msg("Triggered sync lost the race to another run")
		case err != nil:
			log.Error().Err(err).Msg("Triggered sync could not start")
		default:
			log.Info().Bool("failed", result.Failed()).Dur("duration", result.Duration()).Msg("Triggered sync finished")
		}
	}()

	rw.Accepted(SyncAccepted{RunID: runID, Phases: phases})
}
