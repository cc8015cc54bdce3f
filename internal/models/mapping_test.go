// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

func strPtr(s string) *string { return &s }

func TestTicketFromUpstream(t *testing.T) {
	t.Parallel()

	raw := `{
		"id": 1001,
		"status": "Closed",
		"channel": "email",
		"via": "helpdesk",
		"subject": "Where is my order?",
		"customer": {"id": 555, "email": "jane@example.com"},
		"assignee_user": {"id": 7, "email": "agent@example.com"},
		"assignee_team": {"id": 3, "name": "Tier 1"},
		"messages_count": 4,
		"tags": [{"id": 1, "name": "shipping"}],
		"meta": {"order_id": 987654},
		"created_datetime": "2024-03-01T10:00:00.123456+00:00",
		"closed_datetime": null
	}`
	var tk upstream.Ticket
	if err := json.Unmarshal([]byte(raw), &tk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	syncedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	row := TicketFromUpstream(&tk, syncedAt)

	if row.Status != TicketStatusClosed {
		t.Errorf("Status = %q, want %q", row.Status, TicketStatusClosed)
	}
	if row.CustomerID == nil || *row.CustomerID != 555 {
		t.Errorf("CustomerID = %v, want 555", row.CustomerID)
	}
	if row.AssigneeTeamName == nil || *row.AssigneeTeamName != "Tier 1" {
		t.Errorf("AssigneeTeamName = %v, want Tier 1", row.AssigneeTeamName)
	}
	if row.OrderReference == nil || *row.OrderReference != "987654" {
		t.Errorf("OrderReference = %v, want 987654", row.OrderReference)
	}
	if row.ClosedAt != nil {
		t.Errorf("ClosedAt = %v, want nil", row.ClosedAt)
	}
	if row.CreatedAt == nil || row.CreatedAt.Year() != 2024 {
		t.Errorf("CreatedAt = %v, want 2024 timestamp", row.CreatedAt)
	}
	if !row.SyncedAt.Equal(syncedAt) {
		t.Errorf("SyncedAt = %v, want %v", row.SyncedAt, syncedAt)
	}
}

func TestTicketWithoutCustomer(t *testing.T) {
	t.Parallel()

	row := TicketFromUpstream(&upstream.Ticket{ID: 1, Status: "open"}, time.Now())
	if row.CustomerID != nil {
		t.Errorf("CustomerID = %v, want nil", *row.CustomerID)
	}
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"open":    TicketStatusOpen,
		"OPEN":    TicketStatusOpen,
		"closed":  TicketStatusClosed,
		" Closed": TicketStatusClosed,
		"":        TicketStatusOpen,
	}
	for in, want := range tests {
		if got := NormalizeStatus(in); got != want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCustomerFromUpstreamPreferredEmail(t *testing.T) {
	t.Parallel()

	c := upstream.Customer{
		ID: 9,
		Channels: []upstream.CustomerChannel{
			{Type: "phone", Address: "+15550100"},
			{Type: "email", Address: "old@example.com"},
			{Type: "email", Address: "new@example.com", Preferred: true},
		},
		Data: json.RawMessage(`null`),
	}
	row := CustomerFromUpstream(&c, time.Now())

	if row.Email == nil || *row.Email != "new@example.com" {
		t.Errorf("Email = %v, want preferred channel address", row.Email)
	}
	if row.Data != nil {
		t.Errorf("Data = %q, want nil for JSON null", *row.Data)
	}
	if row.Channels == nil {
		t.Fatal("expected channels JSON")
	}
	var channels []upstream.CustomerChannel
	if err := json.Unmarshal([]byte(*row.Channels), &channels); err != nil || len(channels) != 3 {
		t.Errorf("channels round trip = %v (err %v)", channels, err)
	}
}

func TestCustomerExplicitEmailWins(t *testing.T) {
	t.Parallel()

	c := upstream.Customer{
		ID:       10,
		Email:    strPtr("primary@example.com"),
		Channels: []upstream.CustomerChannel{{Type: "email", Address: "other@example.com", Preferred: true}},
	}
	if row := CustomerFromUpstream(&c, time.Now()); *row.Email != "primary@example.com" {
		t.Errorf("Email = %q, want primary@example.com", *row.Email)
	}
}

func TestMessageFromUpstream(t *testing.T) {
	t.Parallel()

	m := upstream.Message{
		ID:        77,
		TicketID:  1001,
		Sender:    &upstream.UserRef{ID: 5, Email: "jane@example.com", Name: "Jane"},
		Receiver:  &upstream.UserRef{Email: "support@acme.example.com"},
		FromAgent: false,
		Macros:    json.RawMessage(`[{"id": 3}]`),
	}
	row := MessageFromUpstream(&m, time.Now())

	if row.SenderID == nil || *row.SenderID != 5 {
		t.Errorf("SenderID = %v, want 5", row.SenderID)
	}
	if row.ReceiverID != nil {
		t.Errorf("ReceiverID = %v, want nil for zero id", *row.ReceiverID)
	}
	if row.ReceiverName != nil {
		t.Errorf("ReceiverName = %q, want nil", *row.ReceiverName)
	}
	if row.Macros == nil || *row.Macros != `[{"id": 3}]` {
		t.Errorf("Macros = %v", row.Macros)
	}
}

func TestAgentNameFallback(t *testing.T) {
	t.Parallel()

	a := AgentFromUpstream(&upstream.User{ID: 1, Firstname: "Ada", Lastname: "Lovelace", Role: &upstream.Role{Name: "admin"}}, time.Now())
	if a.Name != "Ada Lovelace" || a.Role != "admin" {
		t.Errorf("got name %q role %q", a.Name, a.Role)
	}
}
