// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	gosync "sync"
	"time"

	"github.com/tomtom215/deskmirror/internal/config"
	"github.com/tomtom215/deskmirror/internal/logging"
	"github.com/tomtom215/deskmirror/internal/metrics"
	"github.com/tomtom215/deskmirror/internal/models"
	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

// ErrSyncInProgress is returned by Run while another run is active.
var ErrSyncInProgress = errors.New("sync already in progress")

const (
	defaultBatchSize = 500
	defaultPageSize  = 100
	maxConcurrency   = 10
	orderByCreated   = "created_datetime:asc"
	orderByUpdated   = "updated_datetime:asc"
)

// Phase is one entity type; its value doubles as the sync_cursors key.
type Phase string

const (
	PhaseUsers     Phase = models.EntityUsers
	PhaseTags      Phase = models.EntityTags
	PhaseCustomers Phase = models.EntityCustomers
	PhaseTickets   Phase = models.EntityTickets
	PhaseMessages  Phase = models.EntityMessages
)

// AllPhases lists every phase in dependency order.
var AllPhases = []Phase{PhaseUsers, PhaseTags, PhaseCustomers, PhaseTickets, PhaseMessages}

// ParsePhase accepts a phase name, case-insensitively. "agents" is an alias for users.
func ParsePhase(name string) (Phase, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "agents" {
		return PhaseUsers, nil
	}
	for _, p := range AllPhases {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown sync phase %q", name)
}

// State is the orchestrator's position in the run state machine:
//
//	idle -> users -> tags -> customers -> tickets -> messages -> done
//
// with error reachable from any phase.
type State string

const (
	StateIdle  State = "idle"
	StateDone  State = "done"
	StateError State = "error"
)

// Source is the upstream the orchestrator reads from. *helpdesk.Client implements it.
type Source interface {
	ListUsers(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.User], error)
	ListTags(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.Tag], error)
	ListCustomers(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.Customer], error)
	ListTickets(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.Ticket], error)
	ListTicketMessages(ctx context.Context, ticketID int64, p upstream.ListParams) (upstream.Page[upstream.Message], error)
}

// Store is the warehouse the phases write to. *database.DB implements it.
type Store interface {
	UpsertAgents(ctx context.Context, users []upstream.User) (int, error)
	UpsertTags(ctx context.Context, tags []upstream.Tag) (int, error)
	UpsertCustomers(ctx context.Context, customers []upstream.Customer) (int, error)
	UpsertTickets(ctx context.Context, tickets []upstream.Ticket) (int, error)
	UpsertMessages(ctx context.Context, messages []upstream.Message) (int, error)
	ListTicketIDs(ctx context.Context, since *time.Time) ([]int64, error)
	RecordProgressDetail(ctx context.Context, cur models.SyncCursor) error
	GetCursor(ctx context.Context, entityType string) (*models.SyncCursor, error)
}

// PhaseResult is the terminal report of one phase.
type PhaseResult struct {
	Phase    Phase         `json:"phase"`
	Success  bool          `json:"success"`
	Total    int           `json:"total"`
	Tickets  int           `json:"tickets,omitempty"` // messages phase: tickets fully synced
	Failed   int           `json:"failed,omitempty"`  // messages phase: tickets skipped
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
}

// RunResult collects the phase results of one run.
type RunResult struct {
	RunID    string        `json:"run_id"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Phases   []PhaseResult `json:"phases"`
}

// Failed reports whether any phase failed.
func (r RunResult) Failed() bool {
	for i := range r.Phases {
		if !r.Phases[i].Success {
			return true
		}
	}
	return false
}

func (r RunResult) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Progress is reported while a phase runs. Total is zero when unknown.
type Progress struct {
	Phase     Phase
	Processed int
	Total     int
	Failed    int
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(Progress)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the wall clock used for waits and timestamps.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithRateLimiter shares an existing limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithPageSize sets the limit requested from list endpoints.
func WithPageSize(n int) Option {
	return func(o *Orchestrator) { o.pageSize = n }
}

func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// WithPhaseCallback is invoked once per phase with its terminal result.
func WithPhaseCallback(fn func(PhaseResult)) Option {
	return func(o *Orchestrator) { o.onPhase = fn }
}

// Orchestrator runs sync phases in dependency order.
type Orchestrator struct {
	source Source
	store  Store
	cfg    config.SyncConfig

	clock    Clock
	limiter  *RateLimiter
	fetcher  *Fetcher
	pageSize int

	progress   ProgressFunc
	progressMu gosync.Mutex
	onPhase    func(PhaseResult)

	runMu gosync.Mutex // held for the duration of Run

	mu      gosync.RWMutex
	state   State
	lastRun *RunResult
}

// NewOrchestrator wires a source and a store. cfg is copied; nil means defaults.
func NewOrchestrator(source Source, store Store, cfg *config.SyncConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source: source,
		store:  store,
		state:  StateIdle,
	}
	if cfg != nil {
		o.cfg = *cfg
	} else {
		o.cfg = config.SyncConfig{MaxRetries: DefaultRetryPolicy().MaxRetries}
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.clock == nil {
		o.clock = SystemClock{}
	}
	if o.limiter == nil {
		o.limiter = NewRateLimiter(DefaultRequestsPerSecond, o.clock)
	}
	if o.pageSize <= 0 {
		o.pageSize = defaultPageSize
	}
	if o.cfg.BatchSize <= 0 {
		o.cfg.BatchSize = defaultBatchSize
	}
	o.cfg.Concurrency = min(max(o.cfg.Concurrency, 1), maxConcurrency)

	policy := DefaultRetryPolicy()
	policy.MaxRetries = max(o.cfg.MaxRetries, 0)
	if o.cfg.BackoffBase > 0 {
		policy.BaseDelay = o.cfg.BackoffBase
	}
	if o.cfg.TransientDelay > 0 {
		policy.TransientDelay = o.cfg.TransientDelay
	}
	o.fetcher = NewFetcher(o.limiter, o.clock, policy)
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// LastRun returns a copy of the most recent run, or nil before the first one.
func (o *Orchestrator) LastRun() *RunResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.lastRun == nil {
		return nil
	}
	r := *o.lastRun
	r.Phases = slices.Clone(o.lastRun.Phases)
	return &r
}

// Running reports whether a run is active.
func (o *Orchestrator) Running() bool {
	if o.runMu.TryLock() {
		o.runMu.Unlock()
		return false
	}
	return true
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run executes the given phases, or all of them when none are given, in
// dependency order regardless of argument order. A failed phase does not stop
// later phases unless FailFast is set; cancellation of ctx always does. The
// final state is error if any phase failed, done otherwise.
func (o *Orchestrator) Run(ctx context.Context, phases ...Phase) (RunResult, error) {
	if !o.runMu.TryLock() {
		return RunResult{}, ErrSyncInProgress
	}
	defer o.runMu.Unlock()

	phases, err := orderPhases(phases)
	if err != nil {
		return RunResult{}, err
	}

	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = logging.GenerateRunID()
		ctx = logging.ContextWithRunID(ctx, runID)
	}
	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	metrics.SetSyncInProgress(true)
	defer metrics.SetSyncInProgress(false)

	log := logging.Ctx(ctx)
	log.Info().Strs("phases", phaseNames(phases)).Bool("incremental", o.cfg.Incremental).Msg("Sync run started")

	result := RunResult{RunID: runID, Started: o.now()}
	for _, p := range phases {
		o.setState(State(p))
		pr := o.runPhase(ctx, p)
		result.Phases = append(result.Phases, pr)
		if o.onPhase != nil {
			o.onPhase(pr)
		}
		if pr.Success {
			continue
		}
		if o.cfg.FailFast || ctx.Err() != nil {
			break
		}
	}
	result.Finished = o.now()

	final := StateDone
	if result.Failed() {
		final = StateError
	}
	o.mu.Lock()
	o.state = final
	o.lastRun = &result
	o.mu.Unlock()

	log.Info().Str("state", string(final)).Dur("duration", result.Duration()).Msg("Sync run finished")
	return result, nil
}

// runPhase executes one phase and records its cursor row on success.
func (o *Orchestrator) runPhase(ctx context.Context, p Phase) PhaseResult {
	start := o.now()
	log := logging.Ctx(ctx).With().Str("phase", string(p)).Logger()
	log.Info().Msg("Phase started")

	var (
		res PhaseResult
		t   tally
		err error
	)
	switch p {
	case PhaseUsers:
		t, err = o.syncUsers(ctx)
	case PhaseTags:
		t, err = o.syncTags(ctx)
	case PhaseCustomers:
		t, err = o.syncCustomers(ctx)
	case PhaseTickets:
		t, err = o.syncTickets(ctx)
	case PhaseMessages:
		t, err = o.syncMessages(ctx)
	default:
		err = fmt.Errorf("unknown sync phase %q", p)
	}

	res.Phase = p
	res.Total = t.written
	res.Tickets = t.tickets
	res.Failed = t.failed

	if err == nil {
		cur := models.SyncCursor{
			EntityType:   string(p),
			LastSyncedAt: start,
			Cursor:       t.pending,
			TotalSynced:  int64(t.written),
		}
		if t.maxID > 0 {
			cur.LastSyncedID = &t.maxID
		}
		if recErr := o.store.RecordProgressDetail(ctx, cur); recErr != nil {
			err = fmt.Errorf("record progress: %w", recErr)
		}
	}

	res.Duration = o.now().Sub(start)
	res.Success = err == nil
	if err != nil {
		res.Err = err
		res.Error = err.Error()
	}
	metrics.RecordPhase(string(p), res.Duration, res.Total, err)

	if err != nil {
		log.Error().Err(err).Int("total", res.Total).Dur("duration", res.Duration).Msg("Phase failed")
	} else {
		log.Info().Int("total", res.Total).Int("failed", res.Failed).Dur("duration", res.Duration).Msg("Phase completed")
	}
	return res
}

// report forwards progress to the callback, one call at a time.
func (o *Orchestrator) report(p Progress) {
	if o.progress == nil {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.progress(p)
}

// now is the clock time truncated to the warehouse's microsecond precision.
func (o *Orchestrator) now() time.Time {
	return o.clock.Now().UTC().Truncate(time.Microsecond)
}

// orderPhases dedupes and sorts phases into dependency order.
func orderPhases(phases []Phase) ([]Phase, error) {
	if len(phases) == 0 {
		return slices.Clone(AllPhases), nil
	}
	want := make(map[Phase]bool, len(phases))
	for _, p := range phases {
		if !slices.Contains(AllPhases, p) {
			return nil, fmt.Errorf("unknown sync phase %q", p)
		}
		want[p] = true
	}
	ordered := make([]Phase, 0, len(want))
	for _, p := range AllPhases {
		if want[p] {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func phaseNames(phases []Phase) []string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = string(p)
	}
	return names
}
