// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package database

import (
	"context"
	"fmt"
	"strings"
)

// tableSpec describes how rows of type T are written to one table.
// columns[0] is the conflict key; every other column is overwritten on
// conflict unless merge holds an update expression for it.
type tableSpec[T any] struct {
	table   string
	columns []string
	key     func(*T) int64
	values  func(*T) []any
	merge   map[string]string
}

// upsertBatch writes rows with one INSERT ... ON CONFLICT DO UPDATE statement
// per chunk of maxRowsPerStatement rows. Rows sharing a key collapse to the
// last occurrence, since DuckDB refuses to update the same row twice in one
// statement. It returns the number of distinct rows written.
func upsertBatch[T any](ctx context.Context, db *DB, tbl *tableSpec[T], rows []T) (int, error) {
	if !db.Available() || len(rows) == 0 {
		return 0, nil
	}

	rows = dedupeByKey(rows, tbl.key)

	written := 0
	for start := 0; start < len(rows); start += maxRowsPerStatement {
		end := min(start+maxRowsPerStatement, len(rows))
		chunk := rows[start:end]

		query, args := buildUpsert(tbl, chunk)
		err := withConflictRetry(ctx, func() error {
			execCtx, cancel := db.ensureContext(ctx)
			defer cancel()
			_, err := db.conn.ExecContext(execCtx, query, args...)
			return err
		})
		if err != nil {
			return written, fmt.Errorf("upsert %d rows into %s: %w", len(chunk), tbl.table, err)
		}
		written += len(chunk)
	}
	return written, nil
}

func buildUpsert[T any](tbl *tableSpec[T], rows []T) (string, []any) {
	placeholder := "(" + placeholders(len(tbl.columns)) + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(tbl.table)
	b.WriteString(" (")
	b.WriteString(strings.Join(tbl.columns, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(tbl.columns))
	for i := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholder)
		args = append(args, tbl.values(&rows[i])...)
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(tbl.columns[0])
	b.WriteString(") DO UPDATE SET ")
	for i, col := range tbl.columns[1:] {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteString(" = ")
		if expr, ok := tbl.merge[col]; ok {
			b.WriteString(expr)
			continue
		}
		b.WriteString("EXCLUDED.")
		b.WriteString(col)
	}
	return b.String(), args
}

// dedupeByKey keeps the last row for each key, preserving first-seen order.
func dedupeByKey[T any](rows []T, key func(*T) int64) []T {
	index := make(map[int64]int, len(rows))
	out := make([]T, 0, len(rows))
	for i := range rows {
		k := key(&rows[i])
		if pos, seen := index[k]; seen {
			out[pos] = rows[i]
			continue
		}
		index[k] = len(out)
		out = append(out, rows[i])
	}
	return out
}
