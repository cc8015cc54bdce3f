// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/deskmirror/internal/models"
)

// countableTables whitelists the tables CountRows accepts.
var countableTables = map[string]bool{
	"agents": true, "tags": true, "customers": true, "tickets": true,
	"ticket_tags": true, "messages": true, "sync_cursors": true,
}

// CountRows returns the number of rows in one of the warehouse tables.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	if !db.Available() {
		return 0, nil
	}
	if !countableTables[table] {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// GetStats returns ticket status and channel breakdowns plus entity totals.
func (db *DB) GetStats(ctx context.Context) (models.WarehouseStats, error) {
	stats := models.WarehouseStats{TicketsByChannel: []models.ChannelCount{}}
	if !db.Available() {
		return stats, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'open'),
			COUNT(*) FILTER (WHERE status = 'closed'),
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM agents),
			(SELECT COUNT(*) FROM tags)
		FROM tickets`).Scan(
		&stats.TotalTickets, &stats.OpenTickets, &stats.ClosedTickets,
		&stats.TotalCustomers, &stats.TotalMessages, &stats.TotalAgents, &stats.TotalTags)
	if err != nil {
		return stats, fmt.Errorf("query warehouse totals: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT COALESCE(channel, 'unknown') AS channel, COUNT(*) AS n
		FROM tickets GROUP BY 1 ORDER BY n DESC, channel`)
	if err != nil {
		return stats, fmt.Errorf("query channel breakdown: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var c models.ChannelCount
		if err := rows.Scan(&c.Channel, &c.Count); err != nil {
			return stats, fmt.Errorf("scan channel count: %w", err)
		}
		stats.TicketsByChannel = append(stats.TicketsByChannel, c)
	}
	return stats, rows.Err()
}

const ticketColumns = `
	t.id, t.external_id, t.status, t.priority, t.channel, t.via, t.subject, t.excerpt,
	t.customer_id, t.assignee_user_id, t.assignee_team_id, t.assignee_team_name, t.messages_count,
	t.opened_at, t.closed_at, t.snoozed_at, t.trashed_at, t.spam_at, t.last_message_at,
	t.meta, t.order_reference, t.created_at, t.updated_at, t.synced_at,
	c.email, c.name`

func scanTicketDetail(s rowScanner) (models.TicketDetail, error) {
	var (
		d                                            models.TicketDetail
		externalID, subject, excerpt, teamName       sql.NullString
		priority, channel, via                       sql.NullString
		meta, orderRef, custEmail, custName          sql.NullString
		customerID, assigneeID, teamID               sql.NullInt64
		opened, closed, snoozed, trashed, spam, last sql.NullTime
		created, updated                             sql.NullTime
	)
	err := s.Scan(
		&d.ID, &externalID, &d.Status, &priority, &channel, &via, &subject, &excerpt,
		&customerID, &assigneeID, &teamID, &teamName, &d.MessagesCount,
		&opened, &closed, &snoozed, &trashed, &spam, &last,
		&meta, &orderRef, &created, &updated, &d.SyncedAt,
		&custEmail, &custName,
	)
	if err != nil {
		return d, err
	}
	d.ExternalID, d.Subject, d.Excerpt = stringPtr(externalID), stringPtr(subject), stringPtr(excerpt)
	d.Priority, d.Channel, d.Via = priority.String, channel.String, via.String
	d.CustomerID, d.AssigneeUserID, d.AssigneeTeamID = int64Ptr(customerID), int64Ptr(assigneeID), int64Ptr(teamID)
	d.AssigneeTeamName = stringPtr(teamName)
	d.OpenedAt, d.ClosedAt, d.SnoozedAt = timePtr(opened), timePtr(closed), timePtr(snoozed)
	d.TrashedAt, d.SpamAt, d.LastMessageAt = timePtr(trashed), timePtr(spam), timePtr(last)
	d.Meta, d.OrderReference = stringPtr(meta), stringPtr(orderRef)
	d.CreatedAt, d.UpdatedAt = timePtr(created), timePtr(updated)
	d.SyncedAt = d.SyncedAt.UTC()
	d.CustomerEmail, d.CustomerName = stringPtr(custEmail), stringPtr(custName)
	d.Tags = []models.Tag{}
	return d, nil
}

// GetTicket returns one ticket with its customer identity and tags, or nil if absent.
func (db *DB) GetTicket(ctx context.Context, id int64) (*models.TicketDetail, error) {
	if !db.Available() {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+ticketColumns+`
		FROM tickets t LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.id = ?`, id)
	detail, err := scanTicketDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %d: %w", id, err)
	}

	details := []models.TicketDetail{detail}
	if err := db.attachTags(ctx, details); err != nil {
		return nil, err
	}
	return &details[0], nil
}

// GetTicketsByCustomerEmail returns a customer's tickets, newest first.
func (db *DB) GetTicketsByCustomerEmail(ctx context.Context, email string, limit int) ([]models.TicketDetail, error) {
	if !db.Available() {
		return []models.TicketDetail{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+ticketColumns+`
		FROM tickets t JOIN customers c ON c.id = t.customer_id
		WHERE lower(c.email) = lower(?)
		ORDER BY t.created_at DESC NULLS LAST, t.id DESC
		LIMIT ?`, strings.TrimSpace(email), limit)
	if err != nil {
		return nil, fmt.Errorf("query tickets by email: %w", err)
	}
	defer closeQuietly(rows)

	details := []models.TicketDetail{}
	for rows.Next() {
		d, err := scanTicketDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := db.attachTags(ctx, details); err != nil {
		return nil, err
	}
	return details, nil
}

// attachTags loads the tags for every ticket in details with a single query.
func (db *DB) attachTags(ctx context.Context, details []models.TicketDetail) error {
	if len(details) == 0 {
		return nil
	}
	byID := make(map[int64]int, len(details))
	args := make([]any, len(details))
	for i := range details {
		byID[details[i].ID] = i
		args[i] = details[i].ID
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT tt.ticket_id, g.id, g.name, g.decoration, g.created_at, g.updated_at, g.synced_at
		FROM ticket_tags tt JOIN tags g ON g.id = tt.tag_id
		WHERE tt.ticket_id IN (`+placeholders(len(args))+`)
		ORDER BY tt.ticket_id, g.name`, args...)
	if err != nil {
		return fmt.Errorf("query ticket tags: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var (
			ticketID         int64
			tag              models.Tag
			decoration       sql.NullString
			created, updated sql.NullTime
		)
		if err := rows.Scan(&ticketID, &tag.ID, &tag.Name, &decoration, &created, &updated, &tag.SyncedAt); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		tag.Decoration = stringPtr(decoration)
		tag.CreatedAt, tag.UpdatedAt = timePtr(created), timePtr(updated)
		tag.SyncedAt = tag.SyncedAt.UTC()
		if i, ok := byID[ticketID]; ok {
			details[i].Tags = append(details[i].Tags, tag)
		}
	}
	return rows.Err()
}

// GetTicketMessages returns a ticket's messages in creation order.
func (db *DB) GetTicketMessages(ctx context.Context, ticketID int64) ([]models.Message, error) {
	if !db.Available() {
		return []models.Message{}, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, ticket_id, channel, via, sender_id, sender_email, sender_name,
			receiver_id, receiver_email, receiver_name, subject, body_text, body_html,
			stripped_text, stripped_html, public, from_agent, attachments, macros,
			created_at, synced_at
		FROM messages WHERE ticket_id = ?
		ORDER BY created_at NULLS LAST, id`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("query messages for ticket %d: %w", ticketID, err)
	}
	defer closeQuietly(rows)

	messages := []models.Message{}
	for rows.Next() {
		var (
			m                                          models.Message
			channel, via                               sql.NullString
			senderEmail, senderName, recvEmail, recvNm sql.NullString
			subject, text, html, sText, sHTML          sql.NullString
			attachments, macros                        sql.NullString
			senderID, recvID                           sql.NullInt64
			created                                    sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.TicketID, &channel, &via, &senderID, &senderEmail, &senderName,
			&recvID, &recvEmail, &recvNm, &subject, &text, &html, &sText, &sHTML,
			&m.Public, &m.FromAgent, &attachments, &macros, &created, &m.SyncedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Channel, m.Via = channel.String, via.String
		m.SenderID, m.SenderEmail, m.SenderName = int64Ptr(senderID), stringPtr(senderEmail), stringPtr(senderName)
		m.ReceiverID, m.ReceiverEmail, m.ReceiverName = int64Ptr(recvID), stringPtr(recvEmail), stringPtr(recvNm)
		m.Subject, m.BodyText, m.BodyHTML = stringPtr(subject), stringPtr(text), stringPtr(html)
		m.StrippedText, m.StrippedHTML = stringPtr(sText), stringPtr(sHTML)
		m.Attachments, m.Macros = stringPtr(attachments), stringPtr(macros)
		m.CreatedAt = timePtr(created)
		m.SyncedAt = m.SyncedAt.UTC()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CustomerTicketCounts computes a customer's ticket totals at query time.
func (db *DB) CustomerTicketCounts(ctx context.Context, customerID int64) (models.CustomerTicketCounts, error) {
	counts := models.CustomerTicketCounts{CustomerID: customerID}
	if !db.Available() {
		return counts, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'open'),
			COUNT(*) FILTER (WHERE status = 'closed')
		FROM tickets WHERE customer_id = ?`, customerID).Scan(&counts.Total, &counts.Open, &counts.Closed)
	if err != nil {
		return counts, fmt.Errorf("count tickets for customer %d: %w", customerID, err)
	}
	return counts, nil
}

// ListTicketIDs returns every known ticket id in ascending order. A non-nil
// since restricts the list to tickets updated (upstream) or synced at or after it.
func (db *DB) ListTicketIDs(ctx context.Context, since *time.Time) ([]int64, error) {
	if !db.Available() {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id FROM tickets ORDER BY id`
	var args []any
	if since != nil {
		query = `SELECT id FROM tickets WHERE updated_at >= ? OR synced_at >= ? ORDER BY id`
		args = []any{since.UTC(), since.UTC()}
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ticket ids: %w", err)
	}
	defer closeQuietly(rows)

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ticket id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
