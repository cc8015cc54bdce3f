// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

/*
Package metrics provides Prometheus metrics for the sync engine and the query API.

All collectors are registered on the default registry through promauto and are
exposed at /metrics when the server is running:

	curl http://localhost:8437/metrics

# Available Metrics

Sync Metrics:
  - deskmirror_sync_phase_duration_seconds: Phase wall time (histogram)
    Labels: phase
  - deskmirror_sync_records_written_total: Upserted records (counter)
    Labels: phase
  - deskmirror_sync_phase_runs_total: Phase outcomes (counter)
    Labels: phase, result
  - deskmirror_sync_last_success_timestamp_seconds: Last success per phase (gauge)
  - deskmirror_sync_in_progress: 1 while a run is active (gauge)
  - deskmirror_sync_message_ticket_failures_total: Tickets skipped by the messages phase

Upstream Metrics:
  - deskmirror_upstream_requests_total: Helpdesk API calls (counter)
    Labels: endpoint, status
  - deskmirror_upstream_request_duration_seconds: Helpdesk API latency (histogram)
  - deskmirror_upstream_retries_total: Retried calls (counter)
    Labels: reason ("throttled", "transient")
  - deskmirror_rate_limiter_wait_seconds: Token wait time (histogram)
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - circuit_breaker_requests_total, circuit_breaker_consecutive_failures,
    circuit_breaker_state_transitions_total

HTTP Metrics:
  - http_requests_total, http_request_duration_seconds, http_requests_in_flight

# Example Alerts

	- alert: DeskmirrorSyncStale
	  expr: time() - deskmirror_sync_last_success_timestamp_seconds{phase="tickets"} > 86400
	  for: 15m

	- alert: CircuitBreakerOpen
	  expr: circuit_breaker_state > 0
	  for: 2m
*/
package metrics
