// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

/*
Package helpdesk is the HTTP client for the upstream helpdesk REST API.

Each list endpoint takes limit, cursor, order_by and an optional
updated_datetime_from filter, and answers with a page envelope:

	{"data": [...], "meta": {"next_cursor": "...", "prev_cursor": null}}

The client performs exactly one HTTP request per call. Throttling, retries and
the request budget belong to the caller (see internal/sync); the client only
reports what happened through typed errors:

  - *APIError for any non-2xx response, carrying the status, endpoint, a
    truncated body and the parsed Retry-After header
  - errors.Is(err, ErrThrottled) for HTTP 429
  - IsPermanent(err) for 4xx responses that a retry cannot fix

When helpdesk.circuit_breaker is enabled, every request runs through a
sony/gobreaker circuit breaker. Throttled and permanent responses count as
successes for the breaker since they say nothing about upstream health.
*/
package helpdesk
