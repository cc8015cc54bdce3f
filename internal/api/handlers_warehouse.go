// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/deskmirror/internal/cache"
	"github.com/tomtom215/deskmirror/internal/models"
	"github.com/tomtom215/deskmirror/internal/validation"
)

const defaultTicketLimit = 50

// customerTicketsQuery is the query string of /customers/tickets.
type customerTicketsQuery struct {
	Email string `query:"email" validate:"required,email"`
	Limit int    `query:"limit" validate:"min=0,max=500"`
}

// Stats returns warehouse totals.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	stats, err := cache.GetOrLoad(h.cache, "stats", func() (models.WarehouseStats, error) {
		return h.db.GetStats(r.Context())
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(stats)
}

// Ticket returns one ticket with its customer identity and tags.
func (h *Handler) Ticket(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := idParam(rw, r, "id")
	if !ok {
		return
	}
	ticket, err := h.db.GetTicket(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if ticket == nil {
		rw.NotFound("ticket " + strconv.FormatInt(id, 10) + " not found")
		return
	}
	rw.Success(ticket)
}

// TicketMessages returns a ticket's messages in creation order.
func (h *Handler) TicketMessages(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := idParam(rw, r, "id")
	if !ok {
		return
	}
	messages, err := h.db.GetTicketMessages(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	rw.List(messages, len(messages))
}

// CustomerTickets returns the tickets of the customer with the given email.
func (h *Handler) CustomerTickets(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := customerTicketsQuery{Email: r.URL.Query().Get("email")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("limit must be an integer")
			return
		}
		q.Limit = limit
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultTicketLimit
	}

	tickets, err := cache.GetOrLoad(h.cache, cache.GenerateKey("customer_tickets", q), func() ([]models.TicketDetail, error) {
		return h.db.GetTicketsByCustomerEmail(r.Context(), q.Email, q.Limit)
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if tickets == nil {
		tickets = []models.TicketDetail{}
	}
	rw.List(tickets, len(tickets))
}

// CustomerTicketCounts returns a customer's total, open and closed tickets.
func (h *Handler) CustomerTicketCounts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := idParam(rw, r, "id")
	if !ok {
		return
	}
	counts, err := h.db.CustomerTicketCounts(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(counts)
}

// idParam parses a positive integer URL parameter, writing 400 on failure.
func idParam(rw *ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		rw.BadRequest(name + " must be a positive integer")
		return 0, false
	}
	return id, true
}
