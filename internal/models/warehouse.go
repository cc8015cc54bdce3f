// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

// Package models defines the warehouse row types, the mappers that derive
// them from upstream payloads, and the read-side DTOs served by the API.
package models

import "time"

// Entity types, in sync dependency order. Also used as sync_cursors keys.
const (
	EntityUsers     = "users"
	EntityTags      = "tags"
	EntityCustomers = "customers"
	EntityTickets   = "tickets"
	EntityMessages  = "messages"
)

// Ticket statuses observed upstream.
const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// Agent is a support staff account mirrored from upstream users.
type Agent struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	SyncedAt  time.Time  `json:"synced_at"`
}

type Tag struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Decoration *string    `json:"decoration,omitempty"` // raw JSON
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	SyncedAt   time.Time  `json:"synced_at"`
}

// Customer is the warehouse copy of an upstream customer. Ticket counts are
// not stored; the query layer computes them on read.
type Customer struct {
	ID         int64      `json:"id"`
	ExternalID *string    `json:"external_id,omitempty"`
	Email      *string    `json:"email,omitempty"`
	Name       string     `json:"name"`
	Firstname  string     `json:"firstname"`
	Lastname   string     `json:"lastname"`
	Language   *string    `json:"language,omitempty"`
	Timezone   *string    `json:"timezone,omitempty"`
	Note       *string    `json:"note,omitempty"`
	Data       *string    `json:"data,omitempty"`     // raw JSON
	Channels   *string    `json:"channels,omitempty"` // raw JSON array
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	SyncedAt   time.Time  `json:"synced_at"`
}

type Ticket struct {
	ID               int64      `json:"id"`
	ExternalID       *string    `json:"external_id,omitempty"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	Channel          string     `json:"channel"`
	Via              string     `json:"via"`
	Subject          *string    `json:"subject,omitempty"`
	Excerpt          *string    `json:"excerpt,omitempty"`
	CustomerID       *int64     `json:"customer_id,omitempty"`
	AssigneeUserID   *int64     `json:"assignee_user_id,omitempty"`
	AssigneeTeamID   *int64     `json:"assignee_team_id,omitempty"`
	AssigneeTeamName *string    `json:"assignee_team_name,omitempty"`
	MessagesCount    int        `json:"messages_count"`
	OpenedAt         *time.Time `json:"opened_at,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	SnoozedAt        *time.Time `json:"snoozed_at,omitempty"`
	TrashedAt        *time.Time `json:"trashed_at,omitempty"`
	SpamAt           *time.Time `json:"spam_at,omitempty"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
	Meta             *string    `json:"meta,omitempty"` // raw JSON
	OrderReference   *string    `json:"order_reference,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
	SyncedAt         time.Time  `json:"synced_at"`
}

// TicketTag is one ticket<->tag join row.
type TicketTag struct {
	TicketID int64 `json:"ticket_id"`
	TagID    int64 `json:"tag_id"`
}

type Message struct {
	ID            int64      `json:"id"`
	TicketID      int64      `json:"ticket_id"`
	Channel       string     `json:"channel"`
	Via           string     `json:"via"`
	SenderID      *int64     `json:"sender_id,omitempty"`
	SenderEmail   *string    `json:"sender_email,omitempty"`
	SenderName    *string    `json:"sender_name,omitempty"`
	ReceiverID    *int64     `json:"receiver_id,omitempty"`
	ReceiverEmail *string    `json:"receiver_email,omitempty"`
	ReceiverName  *string    `json:"receiver_name,omitempty"`
	Subject       *string    `json:"subject,omitempty"`
	BodyText      *string    `json:"body_text,omitempty"`
	BodyHTML      *string    `json:"body_html,omitempty"`
	StrippedText  *string    `json:"stripped_text,omitempty"`
	StrippedHTML  *string    `json:"stripped_html,omitempty"`
	Public        bool       `json:"public"`
	FromAgent     bool       `json:"from_agent"`
	Attachments   *string    `json:"attachments,omitempty"` // raw JSON
	Macros        *string    `json:"macros,omitempty"`      // raw JSON
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	SyncedAt      time.Time  `json:"synced_at"`
}

// SyncCursor is the engine's bookkeeping row for one entity type.
type SyncCursor struct {
	EntityType   string    `json:"entity_type"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	LastSyncedID *int64    `json:"last_synced_id,omitempty"`
	Cursor       *string   `json:"cursor,omitempty"`
	TotalSynced  int64     `json:"total_synced"`
}
