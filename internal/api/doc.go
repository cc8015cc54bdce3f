// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

/*
Package api serves the read-only warehouse queries and sync control over HTTP.

Routes (chi):

	GET  /health                               liveness and dependency status
	GET  /metrics                              Prometheus exposition
	GET  /api/v1/stats                         warehouse totals
	GET  /api/v1/sync/status                   orchestrator state, last run, cursors
	POST /api/v1/sync                          start a run in the background
	GET  /api/v1/tickets/{id}                  ticket with customer and tags
	GET  /api/v1/tickets/{id}/messages         messages in creation order
	GET  /api/v1/customers/tickets?email=      a customer's tickets, newest first
	GET  /api/v1/customers/{id}/ticket-counts  open and closed totals

Every JSON response uses the APIResponse envelope. An unconfigured warehouse
answers with empty results rather than errors.
*/
package api
