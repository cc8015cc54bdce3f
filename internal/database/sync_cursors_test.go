// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/deskmirror/internal/models"
)

func TestRecordProgressBookkeeping(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t1 := time.Date(2025, 7, 1, 12, 0, 0, 123456789, time.UTC)
	db.now = func() time.Time { return t1 }

	checkNoError(t, db.RecordProgress(ctx, models.EntityTickets, 1234))

	status, err := db.GetStatus(ctx)
	checkNoError(t, err)
	if len(status) != 1 {
		t.Fatalf("expected 1 cursor row, got %d", len(status))
	}
	if status[0].EntityType != models.EntityTickets {
		t.Errorf("entity_type: got %q, want %q", status[0].EntityType, models.EntityTickets)
	}
	checkInt64Equal(t, "total_synced", status[0].TotalSynced, 1234)
	if want := t1.Truncate(time.Microsecond); !status[0].LastSyncedAt.Equal(want) {
		t.Errorf("last_synced_at: got %v, want %v", status[0].LastSyncedAt, want)
	}

	t2 := t1.Add(time.Hour)
	db.now = func() time.Time { return t2 }
	checkNoError(t, db.RecordProgress(ctx, models.EntityTickets, 1300))

	cur, err := db.GetCursor(ctx, models.EntityTickets)
	checkNoError(t, err)
	if cur == nil {
		t.Fatal("expected tickets cursor")
	}
	checkInt64Equal(t, "total_synced", cur.TotalSynced, 1300)
	if !cur.LastSyncedAt.After(status[0].LastSyncedAt) {
		t.Errorf("last_synced_at did not advance: %v -> %v", status[0].LastSyncedAt, cur.LastSyncedAt)
	}
	checkRowCount(t, db, "sync_cursors", 1)
}

func TestRecordProgressDetail(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	lastID := int64(9876)
	pageCursor := "abc123"
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	checkNoError(t, db.RecordProgressDetail(ctx, models.SyncCursor{
		EntityType:   models.EntityMessages,
		LastSyncedAt: at,
		LastSyncedID: &lastID,
		Cursor:       &pageCursor,
		TotalSynced:  42,
	}))

	cur, err := db.GetCursor(ctx, models.EntityMessages)
	checkNoError(t, err)
	if cur == nil {
		t.Fatal("expected messages cursor")
	}
	if !cur.LastSyncedAt.Equal(at) {
		t.Errorf("last_synced_at: got %v, want %v", cur.LastSyncedAt, at)
	}
	if cur.LastSyncedID == nil || *cur.LastSyncedID != lastID {
		t.Errorf("last_synced_id: got %v, want %d", cur.LastSyncedID, lastID)
	}
	if cur.Cursor == nil || *cur.Cursor != pageCursor {
		t.Errorf("cursor: got %v, want %q", cur.Cursor, pageCursor)
	}
}

func TestGetStatusOrderedByEntity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, entity := range []string{models.EntityUsers, models.EntityCustomers, models.EntityTags} {
		checkNoError(t, db.RecordProgress(ctx, entity, 1))
	}

	status, err := db.GetStatus(ctx)
	checkNoError(t, err)
	want := []string{models.EntityCustomers, models.EntityTags, models.EntityUsers}
	if len(status) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(status))
	}
	for i, entity := range want {
		if status[i].EntityType != entity {
			t.Errorf("status[%d]: got %q, want %q", i, status[i].EntityType, entity)
		}
	}
}

func TestGetCursorMissing(t *testing.T) {
	db := setupTestDB(t)

	cur, err := db.GetCursor(context.Background(), models.EntityUsers)
	checkNoError(t, err)
	if cur != nil {
		t.Errorf("expected nil cursor, got %+v", cur)
	}
}

func TestRecordProgressRequiresEntity(t *testing.T) {
	db := setupTestDB(t)

	if err := db.RecordProgress(context.Background(), "", 1); err == nil {
		t.Error("expected error for empty entity type")
	}
}
