// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package sync

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/deskmirror/internal/logging"
	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

// tally accumulates what a phase wrote.
type tally struct {
	written int
	maxID   int64
	tickets int
	failed  int
	// pending is stored in the phase's cursor row for the next run.
	pending *string
}

type listFunc[T any] func(context.Context, upstream.ListParams) (upstream.Page[T], error)

type writeFunc[T any] func(context.Context, []T) (int, error)

// pages binds fixed list parameters to a list method.
func pages[T any](list listFunc[T], params upstream.ListParams) PageFunc[T] {
	return func(ctx context.Context, cursor string) (upstream.Page[T], error) {
		p := params
		p.Cursor = cursor
		return list(ctx, p)
	}
}

func (o *Orchestrator) syncUsers(ctx context.Context) (tally, error) {
	return collectEntities(ctx, o, PhaseUsers,
		pages(o.source.ListUsers, o.fullParams()),
		o.store.UpsertAgents,
		func(u *upstream.User) int64 { return u.ID })
}

func (o *Orchestrator) syncTags(ctx context.Context) (tally, error) {
	return collectEntities(ctx, o, PhaseTags,
		pages(o.source.ListTags, o.fullParams()),
		o.store.UpsertTags,
		func(t *upstream.Tag) int64 { return t.ID })
}

func (o *Orchestrator) syncCustomers(ctx context.Context) (tally, error) {
	return streamEntities(ctx, o, PhaseCustomers,
		pages(o.source.ListCustomers, o.resumeParams(ctx, PhaseCustomers)),
		o.store.UpsertCustomers,
		func(c *upstream.Customer) int64 { return c.ID })
}

// syncTickets writes embedded customers, tickets and ticket tags page by page.
func (o *Orchestrator) syncTickets(ctx context.Context) (tally, error) {
	return streamEntities(ctx, o, PhaseTickets,
		pages(o.source.ListTickets, o.resumeParams(ctx, PhaseTickets)),
		o.store.UpsertTickets,
		func(t *upstream.Ticket) int64 { return t.ID })
}

// collectEntities drains a bounded listing, then writes it in batches.
func collectEntities[T any](ctx context.Context, o *Orchestrator, phase Phase, fetch PageFunc[T], write writeFunc[T], key func(*T) int64) (tally, error) {
	var t tally
	items, err := CollectAll(ctx, o.fetcher, string(phase), fetch)
	if err != nil {
		return t, err
	}
	err = writeBatches(ctx, o, phase, items, write, key, &t)
	return t, err
}

// streamEntities writes every page as soon as it arrives.
func streamEntities[T any](ctx context.Context, o *Orchestrator, phase Phase, fetch PageFunc[T], write writeFunc[T], key func(*T) int64) (tally, error) {
	var t tally
	_, err := StreamPages(ctx, o.fetcher, string(phase), fetch, func(ctx context.Context, items []T) error {
		return writeBatches(ctx, o, phase, items, write, key, &t)
	})
	return t, err
}

// writeBatches writes items in chunks of at most cfg.BatchSize.
func writeBatches[T any](ctx context.Context, o *Orchestrator, phase Phase, items []T, write writeFunc[T], key func(*T) int64, t *tally) error {
	size := o.cfg.BatchSize
	for start := 0; start < len(items); start += size {
		chunk := items[start:min(start+size, len(items))]
		n, err := write(ctx, chunk)
		t.written += n
		if err != nil {
			return fmt.Errorf("write %s: %w", phase, err)
		}
		for i := range chunk {
			t.maxID = max(t.maxID, key(&chunk[i]))
		}
		o.report(Progress{Phase: phase, Processed: t.written})
	}
	return nil
}

// fullParams requests a full listing in creation order.
func (o *Orchestrator) fullParams() upstream.ListParams {
	return upstream.ListParams{Limit: o.pageSize, OrderBy: orderByCreated}
}

// resumeParams narrows the listing to records updated since the phase's
// previous run when incremental mode is on and that run exists.
func (o *Orchestrator) resumeParams(ctx context.Context, phase Phase) upstream.ListParams {
	since := o.resumePoint(ctx, phase)
	if since == nil {
		return o.fullParams()
	}
	return upstream.ListParams{Limit: o.pageSize, OrderBy: orderByUpdated, UpdatedFrom: since}
}

// resumePoint is the previous phase start minus the configured overlap, or
// nil for a full rescan.
func (o *Orchestrator) resumePoint(ctx context.Context, phase Phase) *time.Time {
	if !o.cfg.Incremental {
		return nil
	}
	cur, err := o.store.GetCursor(ctx, string(phase))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("phase", string(phase)).Msg("Failed to read sync cursor, running a full rescan")
		return nil
	}
	if cur == nil || cur.LastSyncedAt.IsZero() {
		return nil
	}
	since := cur.LastSyncedAt.Add(-o.cfg.IncrementalOverlap)
	return &since
}

// retryTickets returns the ids of tickets whose messages failed on the
// previous run, as recorded in the messages cursor.
func (o *Orchestrator) retryTickets(ctx context.Context) []int64 {
	cur, err := o.store.GetCursor(ctx, string(PhaseMessages))
	if err != nil || cur == nil || cur.Cursor == nil || *cur.Cursor == "" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(*cur.Cursor), &ids); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Ignoring unreadable failed ticket list")
		return nil
	}
	return ids
}

// encodeTicketIDs renders ids for the cursor row, or nil when there are none.
func encodeTicketIDs(ids []int64) *string {
	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)
	b, err := json.Marshal(ids)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}
