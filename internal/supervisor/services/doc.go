// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

// Package services adapts deskmirror components to suture.Service.
//
// APIServerService turns http.Server's blocking ListenAndServe into a
// context-aware Serve and drains API-triggered syncs on shutdown.
// ScheduledSyncService runs the sync orchestrator on a fixed interval.
package services
