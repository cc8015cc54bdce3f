// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

/*
Package supervisor runs the long-lived parts of deskmirror under a suture
supervisor tree.

The tree has two layers so that a crashing scheduler cannot take the HTTP API
down with it:

	deskmirror (root)
	├── sync-layer
	│   └── scheduled-sync
	└── api-layer
	    └── api-server

Services live in the services subpackage. Events (restarts, backoff, timeouts)
are logged through sutureslog using the zerolog-backed slog logger from
internal/logging.
*/
package supervisor
