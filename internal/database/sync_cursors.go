// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/deskmirror/internal/models"
)

// RecordProgress upserts the bookkeeping row for an entity type with the
// current time and the phase's total. One row per entity type, last write wins.
func (db *DB) RecordProgress(ctx context.Context, entityType string, totalSynced int64) error {
	return db.RecordProgressDetail(ctx, models.SyncCursor{EntityType: entityType, TotalSynced: totalSynced})
}

// RecordProgressDetail is RecordProgress with the optional last id and
// pagination cursor. A zero LastSyncedAt is replaced by the write time.
func (db *DB) RecordProgressDetail(ctx context.Context, cur models.SyncCursor) error {
	if !db.Available() {
		return nil
	}
	if cur.EntityType == "" {
		return errors.New("sync cursor requires an entity type")
	}
	if cur.LastSyncedAt.IsZero() {
		cur.LastSyncedAt = db.syncedAt()
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_cursors (entity_type, last_synced_at, last_synced_id, page_cursor, total_synced)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity_type) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			last_synced_id = EXCLUDED.last_synced_id,
			page_cursor = EXCLUDED.page_cursor,
			total_synced = EXCLUDED.total_synced`,
		cur.EntityType, cur.LastSyncedAt.UTC(), nullInt64(cur.LastSyncedID), nullString(cur.Cursor), cur.TotalSynced)
	if err != nil {
		return fmt.Errorf("record sync progress for %s: %w", cur.EntityType, err)
	}
	return nil
}

// GetStatus returns every sync cursor row ordered by entity type.
func (db *DB) GetStatus(ctx context.Context) ([]models.SyncCursor, error) {
	if !db.Available() {
		return []models.SyncCursor{}, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT entity_type, last_synced_at, last_synced_id, page_cursor, total_synced
		FROM sync_cursors ORDER BY entity_type`)
	if err != nil {
		return nil, fmt.Errorf("query sync status: %w", err)
	}
	defer closeQuietly(rows)

	status := []models.SyncCursor{}
	for rows.Next() {
		cur, err := scanCursor(rows)
		if err != nil {
			return nil, err
		}
		status = append(status, cur)
	}
	return status, rows.Err()
}

// GetCursor returns the row for one entity type, or nil if it was never synced.
func (db *DB) GetCursor(ctx context.Context, entityType string) (*models.SyncCursor, error) {
	if !db.Available() {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT entity_type, last_synced_at, last_synced_id, page_cursor, total_synced
		FROM sync_cursors WHERE entity_type = ?`, entityType)
	cur, err := scanCursor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cur, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCursor(s rowScanner) (models.SyncCursor, error) {
	var (
		cur    models.SyncCursor
		lastID sql.NullInt64
		cursor sql.NullString
	)
	if err := s.Scan(&cur.EntityType, &cur.LastSyncedAt, &lastID, &cursor, &cur.TotalSynced); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cur, err
		}
		return cur, fmt.Errorf("scan sync cursor: %w", err)
	}
	cur.LastSyncedAt = cur.LastSyncedAt.UTC()
	cur.LastSyncedID = int64Ptr(lastID)
	cur.Cursor = stringPtr(cursor)
	return cur, nil
}
