// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/deskmirror/internal/models"
	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

var agentSpec = tableSpec[models.Agent]{
	table:   "agents",
	columns: []string{"id", "email", "name", "role", "active", "created_at", "updated_at", "synced_at"},
	key:     func(a *models.Agent) int64 { return a.ID },
	values: func(a *models.Agent) []any {
		return []any{a.ID, a.Email, a.Name, a.Role, a.Active, nullTime(a.CreatedAt), nullTime(a.UpdatedAt), a.SyncedAt}
	},
}

var tagSpec = tableSpec[models.Tag]{
	table:   "tags",
	columns: []string{"id", "name", "decoration", "created_at", "updated_at", "synced_at"},
	key:     func(t *models.Tag) int64 { return t.ID },
	values: func(t *models.Tag) []any {
		return []any{t.ID, t.Name, nullString(t.Decoration), nullTime(t.CreatedAt), nullTime(t.UpdatedAt), t.SyncedAt}
	},
}

var customerSpec = tableSpec[models.Customer]{
	table: "customers",
	columns: []string{
		"id", "external_id", "email", "name", "firstname", "lastname", "language", "timezone",
		"note", "data", "channels", "created_at", "updated_at", "synced_at",
	},
	key: func(c *models.Customer) int64 { return c.ID },
	values: func(c *models.Customer) []any {
		return []any{
			c.ID, nullString(c.ExternalID), nullString(c.Email), c.Name, c.Firstname, c.Lastname,
			nullString(c.Language), nullString(c.Timezone), nullString(c.Note), nullString(c.Data),
			nullString(c.Channels), nullTime(c.CreatedAt), nullTime(c.UpdatedAt), c.SyncedAt,
		}
	},
}

// embeddedCustomerSpec writes the abbreviated customer snapshot carried by a
// ticket. It only touches the identity columns, and a column the snapshot
// leaves empty keeps the value already stored for that customer.
var embeddedCustomerSpec = tableSpec[models.Customer]{
	table:   "customers",
	columns: []string{"id", "email", "name", "firstname", "lastname", "synced_at"},
	key:     func(c *models.Customer) int64 { return c.ID },
	values: func(c *models.Customer) []any {
		return []any{c.ID, nullString(c.Email), c.Name, c.Firstname, c.Lastname, c.SyncedAt}
	},
	merge: map[string]string{
		"email":     "COALESCE(NULLIF(EXCLUDED.email, ''), customers.email)",
		"name":      "COALESCE(NULLIF(EXCLUDED.name, ''), customers.name)",
		"firstname": "COALESCE(NULLIF(EXCLUDED.firstname, ''), customers.firstname)",
		"lastname":  "COALESCE(NULLIF(EXCLUDED.lastname, ''), customers.lastname)",
	},
}

var ticketSpec = tableSpec[models.Ticket]{
	table: "tickets",
	columns: []string{
		"id", "external_id", "status", "priority", "channel", "via", "subject", "excerpt",
		"customer_id", "assignee_user_id", "assignee_team_id", "assignee_team_name", "messages_count",
		"opened_at", "closed_at", "snoozed_at", "trashed_at", "spam_at", "last_message_at",
		"meta", "order_reference", "created_at", "updated_at", "synced_at",
	},
	key: func(t *models.Ticket) int64 { return t.ID },
	values: func(t *models.Ticket) []any {
		return []any{
			t.ID, nullString(t.ExternalID), t.Status, t.Priority, t.Channel, t.Via,
			nullString(t.Subject), nullString(t.Excerpt),
			nullInt64(t.CustomerID), nullInt64(t.AssigneeUserID), nullInt64(t.AssigneeTeamID),
			nullString(t.AssigneeTeamName), t.MessagesCount,
			nullTime(t.OpenedAt), nullTime(t.ClosedAt), nullTime(t.SnoozedAt),
			nullTime(t.TrashedAt), nullTime(t.SpamAt), nullTime(t.LastMessageAt),
			nullString(t.Meta), nullString(t.OrderReference),
			nullTime(t.CreatedAt), nullTime(t.UpdatedAt), t.SyncedAt,
		}
	},
}

var messageSpec = tableSpec[models.Message]{
	table: "messages",
	columns: []string{
		"id", "ticket_id", "channel", "via",
		"sender_id", "sender_email", "sender_name", "receiver_id", "receiver_email", "receiver_name",
		"subject", "body_text", "body_html", "stripped_text", "stripped_html",
		"public", "from_agent", "attachments", "macros", "created_at", "synced_at",
	},
	key: func(m *models.Message) int64 { return m.ID },
	values: func(m *models.Message) []any {
		return []any{
			m.ID, m.TicketID, m.Channel, m.Via,
			nullInt64(m.SenderID), nullString(m.SenderEmail), nullString(m.SenderName),
			nullInt64(m.ReceiverID), nullString(m.ReceiverEmail), nullString(m.ReceiverName),
			nullString(m.Subject), nullString(m.BodyText), nullString(m.BodyHTML),
			nullString(m.StrippedText), nullString(m.StrippedHTML),
			m.Public, m.FromAgent, nullString(m.Attachments), nullString(m.Macros),
			nullTime(m.CreatedAt), m.SyncedAt,
		}
	},
}

// mapRecords applies an upstream-to-row mapper with one shared write timestamp.
func mapRecords[In, Row any](records []In, syncedAt time.Time, mapper func(*In, time.Time) Row) []Row {
	rows := make([]Row, len(records))
	for i := range records {
		rows[i] = mapper(&records[i], syncedAt)
	}
	return rows
}

// UpsertAgents writes upstream users as agents.
func (db *DB) UpsertAgents(ctx context.Context, users []upstream.User) (int, error) {
	return upsertBatch(ctx, db, &agentSpec, mapRecords(users, db.syncedAt(), models.AgentFromUpstream))
}

// UpsertTags writes tags.
func (db *DB) UpsertTags(ctx context.Context, tags []upstream.Tag) (int, error) {
	return upsertBatch(ctx, db, &tagSpec, mapRecords(tags, db.syncedAt(), models.TagFromUpstream))
}

// UpsertCustomers writes full customer records.
func (db *DB) UpsertCustomers(ctx context.Context, customers []upstream.Customer) (int, error) {
	return upsertBatch(ctx, db, &customerSpec, mapRecords(customers, db.syncedAt(), models.CustomerFromUpstream))
}

// UpsertTickets writes a page of tickets. Embedded customers are upserted
// first so every ticket's customer_id resolves, then the tickets, then the
// ticket-tag join rows are reconciled.
func (db *DB) UpsertTickets(ctx context.Context, tickets []upstream.Ticket) (int, error) {
	if !db.Available() || len(tickets) == 0 {
		return 0, nil
	}
	syncedAt := db.syncedAt()

	embedded := make([]models.Customer, 0, len(tickets))
	for i := range tickets {
		if c := tickets[i].Customer; c != nil && c.ID != 0 {
			embedded = append(embedded, models.CustomerFromUpstream(c, syncedAt))
		}
	}
	if _, err := upsertBatch(ctx, db, &embeddedCustomerSpec, embedded); err != nil {
		return 0, fmt.Errorf("embedded customers: %w", err)
	}

	n, err := upsertBatch(ctx, db, &ticketSpec, mapRecords(tickets, syncedAt, models.TicketFromUpstream))
	if err != nil {
		return n, err
	}

	if err := db.ReconcileTicketTags(ctx, tickets); err != nil {
		return n, fmt.Errorf("ticket tags: %w", err)
	}
	return n, nil
}

// UpsertMessages writes messages for one or more tickets.
func (db *DB) UpsertMessages(ctx context.Context, messages []upstream.Message) (int, error) {
	return upsertBatch(ctx, db, &messageSpec, mapRecords(messages, db.syncedAt(), models.MessageFromUpstream))
}
