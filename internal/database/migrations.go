// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package database

import (
	"context"
	"fmt"
)

// Migration is one versioned schema change, applied exactly once.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name VARCHAR NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`

// getMigrations returns all migrations in version order.
//
// The mirrored tables carry no FOREIGN KEY constraints: DuckDB rejects
// ON CONFLICT DO UPDATE on referenced rows and has no ON DELETE CASCADE.
// Ordering is enforced by the sync phases instead, and DeleteTicket performs
// the cascade explicitly. Mutable columns of upserted tables are also left
// unindexed because DuckDB cannot assign indexed columns in DO UPDATE SET.
func getMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "initial_schema",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS agents (
					id BIGINT PRIMARY KEY,
					email VARCHAR,
					name VARCHAR,
					role VARCHAR,
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP,
					updated_at TIMESTAMP,
					synced_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS tags (
					id BIGINT PRIMARY KEY,
					name VARCHAR NOT NULL,
					decoration VARCHAR,
					created_at TIMESTAMP,
					updated_at TIMESTAMP,
					synced_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS customers (
					id BIGINT PRIMARY KEY,
					external_id VARCHAR,
					email VARCHAR,
					name VARCHAR,
					firstname VARCHAR,
					lastname VARCHAR,
					language VARCHAR,
					timezone VARCHAR,
					note VARCHAR,
					data VARCHAR,
					channels VARCHAR,
					created_at TIMESTAMP,
					updated_at TIMESTAMP,
					synced_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS tickets (
					id BIGINT PRIMARY KEY,
					external_id VARCHAR,
					status VARCHAR NOT NULL,
					priority VARCHAR,
					channel VARCHAR,
					via VARCHAR,
					subject VARCHAR,
					excerpt VARCHAR,
					customer_id BIGINT,
					assignee_user_id BIGINT,
					assignee_team_id BIGINT,
					assignee_team_name VARCHAR,
					messages_count INTEGER NOT NULL DEFAULT 0,
					opened_at TIMESTAMP,
					closed_at TIMESTAMP,
					snoozed_at TIMESTAMP,
					trashed_at TIMESTAMP,
					spam_at TIMESTAMP,
					last_message_at TIMESTAMP,
					meta VARCHAR,
					order_reference VARCHAR,
					created_at TIMESTAMP,
					updated_at TIMESTAMP,
					synced_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS ticket_tags (
					ticket_id BIGINT NOT NULL,
					tag_id BIGINT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_ticket_tags_ticket_id ON ticket_tags(ticket_id)`,
				`CREATE TABLE IF NOT EXISTS messages (
					id BIGINT PRIMARY KEY,
					ticket_id BIGINT NOT NULL,
					channel VARCHAR,
					via VARCHAR,
					sender_id BIGINT,
					sender_email VARCHAR,
					sender_name VARCHAR,
					receiver_id BIGINT,
					receiver_email VARCHAR,
					receiver_name VARCHAR,
					subject VARCHAR,
					body_text VARCHAR,
					body_html VARCHAR,
					stripped_text VARCHAR,
					stripped_html VARCHAR,
					public BOOLEAN NOT NULL DEFAULT TRUE,
					from_agent BOOLEAN NOT NULL DEFAULT FALSE,
					attachments VARCHAR,
					macros VARCHAR,
					created_at TIMESTAMP,
					synced_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS sync_cursors (
					entity_type VARCHAR PRIMARY KEY,
					last_synced_at TIMESTAMP NOT NULL,
					last_synced_id BIGINT,
					page_cursor VARCHAR,
					total_synced BIGINT NOT NULL DEFAULT 0
				)`,
			},
		},
	}
}

// runMigrations applies every migration newer than the recorded version.
func (db *DB) runMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range getMigrations() {
		if m.Version <= current {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	return db.withTx(ctx, func(tx txExecer) error {
		for _, stmt := range m.Statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Name, db.syncedAt()); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		return nil
	})
}

// SchemaVersion returns the highest applied migration version, 0 if none.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	if !db.Available() {
		return 0, nil
	}
	var version int
	if err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
