// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

// Command deskmirror mirrors a helpdesk into a DuckDB warehouse.
//
// Configuration is loaded via koanf with layered sources (highest priority wins):
//   - Environment variables (HELPDESK_URL, DUCKDB_PATH, SYNC_CONCURRENCY, ...)
//   - Config file (--config, CONFIG_PATH or ./config.yaml)
//   - Built-in defaults
//
// Example:
//
//	export HELPDESK_URL=https://acme.gorgias.com/api
//	export HELPDESK_USERNAME=ops@acme.com
//	export HELPDESK_API_KEY=...
//	export DUCKDB_PATH=/data/helpdesk.duckdb
//	deskmirror sync full --concurrency 4
//	deskmirror serve
package main

import (
	"os"

	"github.com/tomtom215/deskmirror/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
