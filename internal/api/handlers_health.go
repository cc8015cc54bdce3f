// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/deskmirror/internal/database"
	"github.com/tomtom215/deskmirror/internal/logging"
)

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status        string  `json:"status"` // ok or degraded
	Version       string  `json:"version"`
	Database      string  `json:"database"` // ok, unconfigured or error
	Helpdesk      string  `json:"helpdesk"` // breaker state, or disabled
	SyncState     string  `json:"sync_state,omitempty"`
	SyncRunning   bool    `json:"sync_running"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Health reports process and dependency status. It always answers 200 so
// that a missing warehouse does not get the process restarted.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:        "ok",
		Version:       h.version,
		Database:      "ok",
		Helpdesk:      "disabled",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	switch err := h.db.Ping(ctx); {
	case errors.Is(err, database.ErrNotConfigured):
		health.Database = "unconfigured"
	case err != nil:
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check: database ping failed")
		health.Database = "error"
		health.Status = "degraded"
	}

	if h.breakerState != nil {
		health.Helpdesk = h.breakerState()
		if health.Helpdesk == "open" {
			health.Status = "degraded"
		}
	}
	if h.sync != nil {
		health.SyncState = string(h.sync.State())
		health.SyncRunning = h.sync.Running()
	}

	NewResponseWriter(w, r).Success(health)
}
