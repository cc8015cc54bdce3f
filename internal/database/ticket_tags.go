// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/deskmirror/internal/models"
	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

// ReconcileTicketTags replaces the tag set of every ticket in the batch with
// the tags embedded in that ticket:
//
//  1. upsert the distinct tags seen across the batch
//  2. delete existing ticket_tags rows for the batch's ticket ids
//  3. insert the new (ticket_id, tag_id) pairs
//
// Steps 2 and 3 share one transaction, so readers see either the old or the
// new join rows for the batch, never a mix.
func (db *DB) ReconcileTicketTags(ctx context.Context, tickets []upstream.Ticket) error {
	if !db.Available() || len(tickets) == 0 {
		return nil
	}

	var tags []upstream.Tag
	seenTag := make(map[int64]bool)
	ticketIDs := make([]int64, 0, len(tickets))
	seenTicket := make(map[int64]bool, len(tickets))
	var pairs []models.TicketTag
	seenPair := make(map[models.TicketTag]bool)

	for i := range tickets {
		tk := &tickets[i]
		if !seenTicket[tk.ID] {
			seenTicket[tk.ID] = true
			ticketIDs = append(ticketIDs, tk.ID)
		}
		for _, tag := range tk.Tags {
			if tag.ID == 0 {
				continue
			}
			if !seenTag[tag.ID] {
				seenTag[tag.ID] = true
				tags = append(tags, tag)
			}
			pair := models.TicketTag{TicketID: tk.ID, TagID: tag.ID}
			if !seenPair[pair] {
				seenPair[pair] = true
				pairs = append(pairs, pair)
			}
		}
	}

	if _, err := db.UpsertTags(ctx, tags); err != nil {
		return err
	}

	return withConflictRetry(ctx, func() error {
		execCtx, cancel := db.ensureContext(ctx)
		defer cancel()
		return db.withTx(execCtx, func(tx txExecer) error {
			return replaceTicketTags(execCtx, tx, ticketIDs, pairs)
		})
	})
}

// replaceTicketTags performs the delete-then-insert inside an open transaction.
func replaceTicketTags(ctx context.Context, tx txExecer, ticketIDs []int64, pairs []models.TicketTag) error {
	for start := 0; start < len(ticketIDs); start += maxRowsPerStatement {
		ids := ticketIDs[start:min(start+maxRowsPerStatement, len(ticketIDs))]
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		query := "DELETE FROM ticket_tags WHERE ticket_id IN (" + placeholders(len(ids)) + ")"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete ticket tags: %w", err)
		}
	}

	for start := 0; start < len(pairs); start += maxRowsPerStatement {
		chunk := pairs[start:min(start+maxRowsPerStatement, len(pairs))]
		args := make([]any, 0, len(chunk)*2)
		values := make([]string, len(chunk))
		for i, p := range chunk {
			values[i] = "(?, ?)"
			args = append(args, p.TicketID, p.TagID)
		}
		query := "INSERT INTO ticket_tags (ticket_id, tag_id) VALUES " + strings.Join(values, ", ")
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert ticket tags: %w", err)
		}
	}
	return nil
}

// TicketTagIDs returns the tag ids currently joined to a ticket, ascending.
func (db *DB) TicketTagIDs(ctx context.Context, ticketID int64) ([]int64, error) {
	if !db.Available() {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT tag_id FROM ticket_tags WHERE ticket_id = ? ORDER BY tag_id`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("query ticket tags: %w", err)
	}
	defer closeQuietly(rows)

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ticket tag: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteTicket removes a ticket together with its messages and tag joins.
// The engine never calls this during a sync; it exists for operators and
// collaborators that learn of upstream deletions out of band.
func (db *DB) DeleteTicket(ctx context.Context, ticketID int64) error {
	if !db.Available() {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withTx(ctx, func(tx txExecer) error {
		for _, stmt := range []string{
			`DELETE FROM messages WHERE ticket_id = ?`,
			`DELETE FROM ticket_tags WHERE ticket_id = ?`,
			`DELETE FROM tickets WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, ticketID); err != nil {
				return fmt.Errorf("delete ticket %d: %w", ticketID, err)
			}
		}
		return nil
	})
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
