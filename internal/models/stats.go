// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package models

// WarehouseStats is the aggregate snapshot served by the query facade.
type WarehouseStats struct {
	TotalTickets     int64          `json:"total_tickets"`
	OpenTickets      int64          `json:"open_tickets"`
	ClosedTickets    int64          `json:"closed_tickets"`
	TicketsByChannel []ChannelCount `json:"tickets_by_channel"`
	TotalCustomers   int64          `json:"total_customers"`
	TotalMessages    int64          `json:"total_messages"`
	TotalAgents      int64          `json:"total_agents"`
	TotalTags        int64          `json:"total_tags"`
}

type ChannelCount struct {
	Channel string `json:"channel"`
	Count   int64  `json:"count"`
}

// TicketDetail is a ticket joined with its customer and tags.
type TicketDetail struct {
	Ticket
	CustomerEmail *string `json:"customer_email,omitempty"`
	CustomerName  *string `json:"customer_name,omitempty"`
	Tags          []Tag   `json:"tags"`
}

// CustomerTicketCounts are computed at query time, never written by the sync.
type CustomerTicketCounts struct {
	CustomerID int64 `json:"customer_id"`
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	Closed     int64 `json:"closed"`
}
