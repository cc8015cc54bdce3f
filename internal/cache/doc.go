// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

// Package cache provides a small TTL cache for warehouse query results.
//
// The API caches aggregate reads (warehouse stats, customer lookups) and
// clears the cache whenever a sync phase commits, so readers never see data
// older than the last completed phase plus the TTL.
package cache
