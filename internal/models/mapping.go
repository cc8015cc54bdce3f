// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package models

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

// Mappers derive warehouse rows from upstream payloads. The upstream record is
// authoritative: every field is copied, nothing is merged with existing rows.
// syncedAt is the wall-clock time of the write, not the upstream update time.

func AgentFromUpstream(u *upstream.User, syncedAt time.Time) Agent {
	a := Agent{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Active:    u.Active,
		CreatedAt: u.CreatedDatetime,
		UpdatedAt: u.UpdatedDatetime,
		SyncedAt:  syncedAt,
	}
	if a.Name == "" {
		a.Name = strings.TrimSpace(u.Firstname + " " + u.Lastname)
	}
	if u.Role != nil {
		a.Role = u.Role.Name
	}
	return a
}

func TagFromUpstream(t *upstream.Tag, syncedAt time.Time) Tag {
	return Tag{
		ID:         t.ID,
		Name:       t.Name,
		Decoration: rawJSON(t.Decoration),
		CreatedAt:  t.CreatedDatetime,
		UpdatedAt:  t.UpdatedDatetime,
		SyncedAt:   syncedAt,
	}
}

func CustomerFromUpstream(c *upstream.Customer, syncedAt time.Time) Customer {
	row := Customer{
		ID:         c.ID,
		ExternalID: c.ExternalID,
		Email:      c.Email,
		Name:       c.Name,
		Firstname:  c.Firstname,
		Lastname:   c.Lastname,
		Language:   c.Language,
		Timezone:   c.Timezone,
		Note:       c.Note,
		Data:       rawJSON(c.Data),
		CreatedAt:  c.CreatedDatetime,
		UpdatedAt:  c.UpdatedDatetime,
		SyncedAt:   syncedAt,
	}
	if row.Email == nil {
		row.Email = preferredEmail(c.Channels)
	}
	if len(c.Channels) > 0 {
		if b, err := json.Marshal(c.Channels); err == nil {
			s := string(b)
			row.Channels = &s
		}
	}
	return row
}

func TicketFromUpstream(t *upstream.Ticket, syncedAt time.Time) Ticket {
	row := Ticket{
		ID:            t.ID,
		ExternalID:    t.ExternalID,
		Status:        NormalizeStatus(t.Status),
		Priority:      t.Priority,
		Channel:       t.Channel,
		Via:           t.Via,
		Subject:       t.Subject,
		Excerpt:       t.Excerpt,
		MessagesCount: t.MessagesCount,
		OpenedAt:      t.OpenedDatetime,
		ClosedAt:      t.ClosedDatetime,
		SnoozedAt:     t.SnoozeDatetime,
		TrashedAt:     t.TrashedDatetime,
		SpamAt:        t.SpamDatetime,
		LastMessageAt: t.LastMessageDatetime,
		Meta:          rawJSON(t.Meta),
		CreatedAt:     t.CreatedDatetime,
		UpdatedAt:     t.UpdatedDatetime,
		SyncedAt:      syncedAt,
	}
	if t.Customer != nil && t.Customer.ID != 0 {
		id := t.Customer.ID
		row.CustomerID = &id
	}
	if t.AssigneeUser != nil {
		id := t.AssigneeUser.ID
		row.AssigneeUserID = &id
	}
	if t.AssigneeTeam != nil {
		id, name := t.AssigneeTeam.ID, t.AssigneeTeam.Name
		row.AssigneeTeamID = &id
		row.AssigneeTeamName = &name
	}
	row.OrderReference = orderReference(t.Meta)
	return row
}

func MessageFromUpstream(m *upstream.Message, syncedAt time.Time) Message {
	row := Message{
		ID:           m.ID,
		TicketID:     m.TicketID,
		Channel:      m.Channel,
		Via:          m.Via,
		Subject:      m.Subject,
		BodyText:     m.BodyText,
		BodyHTML:     m.BodyHTML,
		StrippedText: m.StrippedText,
		StrippedHTML: m.StrippedHTML,
		Public:       m.Public,
		FromAgent:    m.FromAgent,
		Attachments:  rawJSON(m.Attachments),
		Macros:       rawJSON(m.Macros),
		CreatedAt:    m.CreatedDatetime,
		SyncedAt:     syncedAt,
	}
	if m.Sender != nil {
		row.SenderID, row.SenderEmail, row.SenderName = participant(m.Sender)
	}
	if m.Receiver != nil {
		row.ReceiverID, row.ReceiverEmail, row.ReceiverName = participant(m.Receiver)
	}
	return row
}

// NormalizeStatus lowercases the upstream status. Anything that is not
// "closed" is treated as open.
func NormalizeStatus(status string) string {
	if strings.EqualFold(strings.TrimSpace(status), TicketStatusClosed) {
		return TicketStatusClosed
	}
	return TicketStatusOpen
}

func participant(u *upstream.UserRef) (*int64, *string, *string) {
	var id *int64
	if u.ID != 0 {
		v := u.ID
		id = &v
	}
	return id, optional(u.Email), optional(u.Name)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// rawJSON returns nil for absent or null JSON values.
func rawJSON(raw json.RawMessage) *string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	s := string(trimmed)
	return &s
}

func preferredEmail(channels []upstream.CustomerChannel) *string {
	var first *string
	for i := range channels {
		ch := channels[i]
		if ch.Type != "email" || ch.Address == "" {
			continue
		}
		if ch.Preferred {
			return &ch.Address
		}
		if first == nil {
			first = &ch.Address
		}
	}
	return first
}

// orderReference extracts the commerce order id some integrations put in
// ticket meta, either as meta.order_id or meta.order.id.
func orderReference(meta json.RawMessage) *string {
	if len(meta) == 0 {
		return nil
	}
	var m struct {
		OrderID any `json:"order_id"`
		Order   *struct {
			ID any `json:"id"`
		} `json:"order"`
	}
	if err := json.Unmarshal(meta, &m); err != nil {
		return nil
	}
	ref := m.OrderID
	if ref == nil && m.Order != nil {
		ref = m.Order.ID
	}
	switch v := ref.(type) {
	case string:
		return optional(v)
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}
