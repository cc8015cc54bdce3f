// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

func TestUpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	customer := &upstream.Customer{ID: 10, Email: strPtr("ada@example.com"), Name: "Ada"}
	tagA := upstream.Tag{ID: 1, Name: "refund"}
	tagB := upstream.Tag{ID: 2, Name: "vip"}
	tickets := []upstream.Ticket{
		testTicket(100, "open", customer, tagA, tagB),
		testTicket(101, "closed", customer, tagA),
	}
	messages := []upstream.Message{
		{ID: 1000, TicketID: 100, Channel: "email", BodyText: strPtr("hello")},
		{ID: 1001, TicketID: 100, Channel: "email", FromAgent: true},
	}

	for run := 0; run < 2; run++ {
		n, err := db.UpsertTickets(ctx, tickets)
		checkNoError(t, err)
		checkIntEqual(t, "tickets written", n, 2)

		n, err = db.UpsertMessages(ctx, messages)
		checkNoError(t, err)
		checkIntEqual(t, "messages written", n, 2)
	}

	checkRowCount(t, db, "tickets", 2)
	checkRowCount(t, db, "customers", 1)
	checkRowCount(t, db, "tags", 2)
	checkRowCount(t, db, "ticket_tags", 3)
	checkRowCount(t, db, "messages", 2)
}

func TestUpsertOverwritesMutableFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertTickets(ctx, []upstream.Ticket{testTicket(7, "open", nil)})
	checkNoError(t, err)

	updated := testTicket(7, "closed", nil)
	updated.Subject = strPtr("Resolved")
	_, err = db.UpsertTickets(ctx, []upstream.Ticket{updated})
	checkNoError(t, err)

	got, err := db.GetTicket(ctx, 7)
	checkNoError(t, err)
	if got == nil {
		t.Fatal("expected ticket 7 to exist")
	}
	if got.Status != "closed" {
		t.Errorf("status: got %q, want %q", got.Status, "closed")
	}
	if got.Subject == nil || *got.Subject != "Resolved" {
		t.Errorf("subject: got %v, want Resolved", got.Subject)
	}
}

func TestUpsertDuplicateKeysInBatch(t *testing.T) {
	db := setupTestDB(t)

	n, err := db.UpsertTags(context.Background(), []upstream.Tag{
		{ID: 1, Name: "old"},
		{ID: 1, Name: "new"},
	})
	checkNoError(t, err)
	checkIntEqual(t, "tags written", n, 1)
	checkRowCount(t, db, "tags", 1)
}

func TestUpsertTicketsWritesEmbeddedCustomerFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	customer := &upstream.Customer{ID: 555, Email: strPtr("c555@example.com"), Name: "Customer 555"}
	_, err := db.UpsertTickets(ctx, []upstream.Ticket{testTicket(1, "open", customer)})
	checkNoError(t, err)

	checkRowCount(t, db, "customers", 1)

	got, err := db.GetTicket(ctx, 1)
	checkNoError(t, err)
	if got == nil {
		t.Fatal("expected ticket 1 to exist")
	}
	if got.CustomerID == nil || *got.CustomerID != 555 {
		t.Errorf("customer_id: got %v, want 555", got.CustomerID)
	}
	if got.CustomerEmail == nil || *got.CustomerEmail != "c555@example.com" {
		t.Errorf("customer email did not resolve: got %v", got.CustomerEmail)
	}
}

func TestEmbeddedCustomerKeepsFullRecord(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	full := upstream.Customer{
		ID:       42,
		Email:    strPtr("grace@example.com"),
		Name:     "Grace",
		Language: strPtr("en"),
		Note:     strPtr("prefers phone"),
	}
	_, err := db.UpsertCustomers(ctx, []upstream.Customer{full})
	checkNoError(t, err)

	snapshot := &upstream.Customer{ID: 42, Email: strPtr("grace@example.com"), Name: "Grace H."}
	_, err = db.UpsertTickets(ctx, []upstream.Ticket{testTicket(9, "open", snapshot)})
	checkNoError(t, err)

	var name, language, note string
	err = db.Conn().QueryRowContext(ctx,
		`SELECT name, language, note FROM customers WHERE id = 42`).Scan(&name, &language, &note)
	checkNoError(t, err)

	if name != "Grace H." {
		t.Errorf("name: got %q, want %q", name, "Grace H.")
	}
	if language != "en" || note != "prefers phone" {
		t.Errorf("full customer fields were overwritten: language=%q note=%q", language, note)
	}
}

func TestEmbeddedCustomerIDOnlyKeepsIdentity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	full := upstream.Customer{
		ID:        100,
		Email:     strPtr("ada@example.com"),
		Name:      "Ada Lovelace",
		Firstname: "Ada",
		Lastname:  "Lovelace",
	}
	_, err := db.UpsertCustomers(ctx, []upstream.Customer{full})
	checkNoError(t, err)

	_, err = db.UpsertTickets(ctx, []upstream.Ticket{testTicket(3, "open", &upstream.Customer{ID: 100})})
	checkNoError(t, err)

	var email, name, firstname, lastname string
	err = db.Conn().QueryRowContext(ctx,
		`SELECT email, name, firstname, lastname FROM customers WHERE id = 100`).Scan(&email, &name, &firstname, &lastname)
	checkNoError(t, err)

	if email != "ada@example.com" {
		t.Errorf("email: got %q, want %q", email, "ada@example.com")
	}
	if name != "Ada Lovelace" || firstname != "Ada" || lastname != "Lovelace" {
		t.Errorf("names were blanked: name=%q firstname=%q lastname=%q", name, firstname, lastname)
	}

	tickets, err := db.GetTicketsByCustomerEmail(ctx, "ada@example.com", 10)
	checkNoError(t, err)
	if len(tickets) != 1 || tickets[0].ID != 3 {
		t.Errorf("expected ticket 3 for ada@example.com, got %d tickets", len(tickets))
	}
}

func TestUpsertMessagesAndReadBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	_, err := db.UpsertTickets(ctx, []upstream.Ticket{testTicket(3, "open", nil)})
	checkNoError(t, err)
	_, err = db.UpsertMessages(ctx, []upstream.Message{
		{ID: 31, TicketID: 3, Channel: "email", CreatedDatetime: timeRef(first.Add(time.Hour))},
		{ID: 30, TicketID: 3, Channel: "email", CreatedDatetime: timeRef(first),
			Sender: &upstream.UserRef{ID: 5, Email: "agent@example.com", Name: "Agent"}},
	})
	checkNoError(t, err)

	msgs, err := db.GetTicketMessages(ctx, 3)
	checkNoError(t, err)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != 30 || msgs[1].ID != 31 {
		t.Errorf("messages not in creation order: %d, %d", msgs[0].ID, msgs[1].ID)
	}
	if msgs[0].SenderEmail == nil || *msgs[0].SenderEmail != "agent@example.com" {
		t.Errorf("sender email: got %v", msgs[0].SenderEmail)
	}
}
