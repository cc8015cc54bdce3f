// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package api

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/deskmirror/internal/cache"
	"github.com/tomtom215/deskmirror/internal/models"
	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
)

// Warehouse is the query side of *database.DB.
type Warehouse interface {
	Ping(ctx context.Context) error
	GetStats(ctx context.Context) (models.WarehouseStats, error)
	GetStatus(ctx context.Context) ([]models.SyncCursor, error)
	GetTicket(ctx context.Context, id int64) (*models.TicketDetail, error)
	GetTicketMessages(ctx context.Context, ticketID int64) ([]models.Message, error)
	GetTicketsByCustomerEmail(ctx context.Context, email string, limit int) ([]models.TicketDetail, error)
	CustomerTicketCounts(ctx context.Context, customerID int64) (models.CustomerTicketCounts, error)
}

// SyncController is the control side of *sync.Orchestrator.
type SyncController interface {
	Run(ctx context.Context, phases ...syncpkg.Phase) (syncpkg.RunResult, error)
	Running() bool
	State() syncpkg.State
	LastRun() *syncpkg.RunResult
}

// Handler holds the dependencies of every endpoint.
type Handler struct {
	db           Warehouse
	sync         SyncController // nil when no helpdesk is configured
	cache        *cache.Cache   // nil disables caching
	breakerState func() string
	baseCtx      context.Context
	version      string
	startTime    time.Time

	runs sync.WaitGroup
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSync enables the sync endpoints.
func WithSync(s SyncController) HandlerOption {
	return func(h *Handler) { h.sync = s }
}

// WithCache caches aggregate queries.
func WithCache(c *cache.Cache) HandlerOption {
	return func(h *Handler) { h.cache = c }
}

// WithBreakerState reports the helpdesk circuit breaker on /health.
func WithBreakerState(fn func() string) HandlerOption {
	return func(h *Handler) { h.breakerState = fn }
}

// WithBaseContext is the parent of background sync runs. Cancelling it
// cancels them.
func WithBaseContext(ctx context.Context) HandlerOption {
	return func(h *Handler) { h.baseCtx = ctx }
}

// WithVersion sets the version shown on /health.
func WithVersion(v string) HandlerOption {
	return func(h *Handler) { h.version = v }
}

// NewHandler creates a handler over db.
func NewHandler(db Warehouse, opts ...HandlerOption) *Handler {
	h := &Handler{
		db:        db,
		baseCtx:   context.Background(),
		version:   "dev",
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InvalidateCache drops cached query results. Wire it to the orchestrator's
// phase callback so reads follow committed phases.
func (h *Handler) InvalidateCache() {
	if h.cache != nil {
		h.cache.Clear()
	}
}

// Wait blocks until background runs started through the API have returned.
func (h *Handler) Wait() {
	h.runs.Wait()
}
