// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package upstream

import (
	"time"

	"github.com/goccy/go-json"
)

// User is a helpdesk agent account from GET /users.
type User struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Firstname       string     `json:"firstname"`
	Lastname        string     `json:"lastname"`
	Role            *Role      `json:"role"`
	Active          bool       `json:"active"`
	CreatedDatetime *time.Time `json:"created_datetime"`
	UpdatedDatetime *time.Time `json:"updated_datetime"`
}

type Role struct {
	Name string `json:"name"`
}

// Tag from GET /tags, also embedded in tickets.
type Tag struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Decoration      json.RawMessage `json:"decoration"` // {"color": "#...", "emoji": "..."}
	CreatedDatetime *time.Time      `json:"created_datetime"`
	UpdatedDatetime *time.Time      `json:"updated_datetime"`
}

// Customer from GET /customers, also embedded in tickets.
type Customer struct {
	ID              int64             `json:"id"`
	ExternalID      *string           `json:"external_id"`
	Email           *string           `json:"email"`
	Name            string            `json:"name"`
	Firstname       string            `json:"firstname"`
	Lastname        string            `json:"lastname"`
	Language        *string           `json:"language"`
	Timezone        *string           `json:"timezone"`
	Note            *string           `json:"note"`
	Data            json.RawMessage   `json:"data"`
	Channels        []CustomerChannel `json:"channels"`
	CreatedDatetime *time.Time        `json:"created_datetime"`
	UpdatedDatetime *time.Time        `json:"updated_datetime"`
}

// CustomerChannel is one contact method (email address, phone, ...).
type CustomerChannel struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Address   string `json:"address"`
	Preferred bool   `json:"preferred"`
}

// UserRef is the abbreviated user embedded in tickets and messages.
type UserRef struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type TeamRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Ticket from GET /tickets. Customer and Tags are embedded snapshots.
type Ticket struct {
	ID            int64     `json:"id"`
	ExternalID    *string   `json:"external_id"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	Channel       string    `json:"channel"`
	Via           string    `json:"via"`
	Subject       *string   `json:"subject"`
	Excerpt       *string   `json:"excerpt"`
	Customer      *Customer `json:"customer"`
	AssigneeUser  *UserRef  `json:"assignee_user"`
	AssigneeTeam  *TeamRef  `json:"assignee_team"`
	MessagesCount int       `json:"messages_count"`
	Tags          []Tag     `json:"tags"`

	OpenedDatetime      *time.Time `json:"opened_datetime"`
	ClosedDatetime      *time.Time `json:"closed_datetime"`
	SnoozeDatetime      *time.Time `json:"snooze_datetime"`
	TrashedDatetime     *time.Time `json:"trashed_datetime"`
	SpamDatetime        *time.Time `json:"spam_datetime"`
	LastMessageDatetime *time.Time `json:"last_message_datetime"`

	// Meta is free-form; commerce integrations store the order reference here.
	Meta json.RawMessage `json:"meta"`

	CreatedDatetime *time.Time `json:"created_datetime"`
	UpdatedDatetime *time.Time `json:"updated_datetime"`
}

// Message from GET /tickets/{id}/messages.
type Message struct {
	ID           int64           `json:"id"`
	TicketID     int64           `json:"ticket_id"`
	Channel      string          `json:"channel"`
	Via          string          `json:"via"`
	Sender       *UserRef        `json:"sender"`
	Receiver     *UserRef        `json:"receiver"`
	Subject      *string         `json:"subject"`
	BodyText     *string         `json:"body_text"`
	BodyHTML     *string         `json:"body_html"`
	StrippedText *string         `json:"stripped_text"`
	StrippedHTML *string         `json:"stripped_html"`
	Public       bool            `json:"public"`
	FromAgent    bool            `json:"from_agent"`
	Attachments  json.RawMessage `json:"attachments"`
	Macros       json.RawMessage `json:"macros"`

	CreatedDatetime *time.Time `json:"created_datetime"`
}
