// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

/*
Package sync mirrors the helpdesk into the warehouse.

Key Components:

  - RateLimiter: token bucket (golang.org/x/time/rate) shared by every outbound call
  - Fetcher: runs one API call under the limiter, retrying throttled calls with
    exponential backoff (2s, 4s, 8s) and other transient failures after a fixed delay
  - CollectAll / StreamPages: drain a cursor-paginated endpoint into memory or
    hand each page to a writer as it arrives
  - Orchestrator: runs the phases in dependency order and reports per-phase results

Phase Order:

	users -> tags -> customers -> tickets -> messages

Tickets reference customers and agents, ticket_tags reference tags, and
messages reference tickets, so phases never overlap. Users and tags are small
and collected in memory; customers and tickets are written page by page so a
failure on page N keeps pages 1..N-1 committed. Messages have no global
listing: the phase walks the ticket ids already in the warehouse with a small
errgroup worker pool (sync.concurrency, 1 by default). A ticket whose messages
cannot be fetched or written is counted and skipped.

Incremental Mode:

With sync.incremental enabled, customers and tickets are requested with
updated_datetime_from set to the previous run's phase start minus
sync.incremental_overlap, and the messages phase only walks tickets touched
in that window. Without a previous run the phase falls back to a full rescan
ordered by created_datetime.

Time:

Every wait goes through a Clock, so tests drive the limiter and the backoff
schedule without sleeping.
*/
package sync
