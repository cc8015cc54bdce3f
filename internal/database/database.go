// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

// Package database is the DuckDB warehouse: schema, idempotent batch upserts
// for every mirrored entity, ticket-tag reconciliation, sync cursors and the
// read-only query facade.
//
// A DB created from a config without a path is "unconfigured": every method
// returns an empty result and a nil error, so callers degrade gracefully when
// no warehouse is available.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/deskmirror/internal/config"
	"github.com/tomtom215/deskmirror/internal/logging"
)

// ErrNotConfigured is returned by Require when the warehouse has no connection.
var ErrNotConfigured = errors.New("warehouse database is not configured")

// maxRowsPerStatement caps a single bulk INSERT regardless of the caller's batch size.
const maxRowsPerStatement = 1000

// DB wraps the DuckDB connection.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// now stamps synced_at and sync cursor rows.
	now func() time.Time
}

// New opens the warehouse at cfg.Path and applies pending migrations.
// An empty path returns an unconfigured DB and no error.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg == nil || cfg.Path == "" {
		logging.Warn().Msg("No warehouse path configured, store operations are no-ops")
		return &DB{cfg: cfg, now: time.Now}, nil
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg, now: time.Now}
	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", numThreads).Str("max_memory", maxMemory).Msg("Warehouse opened")
	return db, nil
}

// Available reports whether the warehouse has a live connection.
func (db *DB) Available() bool {
	return db != nil && db.conn != nil
}

// Require returns ErrNotConfigured for an unconfigured warehouse.
func (db *DB) Require() error {
	if !db.Available() {
		return ErrNotConfigured
	}
	return nil
}

// Conn returns the underlying connection, nil when unconfigured.
func (db *DB) Conn() *sql.DB {
	if db == nil {
		return nil
	}
	return db.conn
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if !db.Available() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return db.conn.Close()
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if !db.Available() {
		return ErrNotConfigured
	}
	return db.conn.PingContext(ctx)
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

func (db *DB) initialize() error {
	if err := db.runMigrations(); err != nil {
		return err
	}
	ctx, cancel := schemaContext()
	defer cancel()
	return db.Checkpoint(ctx)
}

// syncedAt is the write timestamp for a batch, truncated to DuckDB's microsecond precision.
func (db *DB) syncedAt() time.Time {
	now := time.Now
	if db != nil && db.now != nil {
		now = db.now
	}
	return now().UTC().Truncate(time.Microsecond)
}
