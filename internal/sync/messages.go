// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package sync

import (
	"context"
	"fmt"
	"slices"
	gosync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/deskmirror/internal/logging"
	"github.com/tomtom215/deskmirror/internal/metrics"
	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

// syncMessages walks the known ticket ids and mirrors each ticket's messages.
// Up to cfg.Concurrency tickets are in flight; every worker draws from the
// same rate limiter. A failing ticket is counted and skipped, and its id is
// kept in the cursor so the next incremental run retries it even when the
// ticket itself has not changed. Only cancellation of ctx ends the phase
// early.
func (o *Orchestrator) syncMessages(ctx context.Context) (tally, error) {
	var t tally

	since := o.resumePoint(ctx, PhaseMessages)
	ids, err := o.store.ListTicketIDs(ctx, since)
	if err != nil {
		return t, fmt.Errorf("list ticket ids: %w", err)
	}
	log := logging.Ctx(ctx)
	if since != nil {
		if retry := o.retryTickets(ctx); len(retry) > 0 {
			log.Info().Int("tickets", len(retry)).Msg("Retrying tickets that failed on the previous run")
			ids = append(ids, retry...)
			slices.Sort(ids)
			ids = slices.Compact(ids)
		}
	}
	log.Info().Int("tickets", len(ids)).Int("concurrency", o.cfg.Concurrency).Msg("Syncing ticket messages")

	var (
		mu        gosync.Mutex
		failedIDs []int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			n, maxID, err := o.syncTicketMessages(gctx, id)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			t.written += n
			t.maxID = max(t.maxID, maxID)
			if err != nil {
				t.failed++
				failedIDs = append(failedIDs, id)
			} else {
				t.tickets++
			}
			progress := Progress{Phase: PhaseMessages, Processed: t.tickets + t.failed, Total: len(ids), Failed: t.failed}
			mu.Unlock()

			if err != nil {
				metrics.SyncTicketFailures.Inc()
				log.Warn().Err(err).Int64("ticket_id", id).Msg("Skipping ticket messages")
			}
			o.report(progress)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return t, err
	}
	if err := ctx.Err(); err != nil {
		return t, err
	}
	t.pending = encodeTicketIDs(failedIDs)
	if t.failed > 0 {
		log.Warn().Int("failed", t.failed).Int("tickets", len(ids)).Msg("Some tickets' messages could not be synced")
	}
	return t, nil
}

// syncTicketMessages mirrors all messages of one ticket. Messages listed
// without a ticket id inherit the id of the ticket they were listed under.
func (o *Orchestrator) syncTicketMessages(ctx context.Context, ticketID int64) (written int, maxID int64, err error) {
	list := func(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.Message], error) {
		return o.source.ListTicketMessages(ctx, ticketID, p)
	}
	op := fmt.Sprintf("messages for ticket %d", ticketID)

	_, err = StreamPages(ctx, o.fetcher, op, pages(list, o.fullParams()), func(ctx context.Context, msgs []upstream.Message) error {
		for i := range msgs {
			if msgs[i].TicketID == 0 {
				msgs[i].TicketID = ticketID
			}
		}
		for start := 0; start < len(msgs); start += o.cfg.BatchSize {
			chunk := msgs[start:min(start+o.cfg.BatchSize, len(msgs))]
			n, err := o.store.UpsertMessages(ctx, chunk)
			written += n
			if err != nil {
				return fmt.Errorf("write messages: %w", err)
			}
			for i := range chunk {
				maxID = max(maxID, chunk[i].ID)
			}
		}
		return nil
	})
	return written, maxID, err
}
