// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

// ErrCursorLoop is returned when an endpoint hands back a cursor it already returned.
var ErrCursorLoop = errors.New("pagination cursor repeated")

// PageFunc fetches the page starting at cursor ("" for the first page).
type PageFunc[T any] func(ctx context.Context, cursor string) (upstream.Page[T], error)

// CollectAll drains every page into memory. Only for bounded listings.
func CollectAll[T any](ctx context.Context, f *Fetcher, op string, fetch PageFunc[T]) ([]T, error) {
	var all []T
	_, err := StreamPages(ctx, f, op, fetch, func(_ context.Context, items []T) error {
		all = append(all, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// StreamPages hands each non-empty page to handle before requesting the next
// one and returns the number of items handled. Items from pages handled
// before an error stay handled.
func StreamPages[T any](ctx context.Context, f *Fetcher, op string, fetch PageFunc[T], handle func(context.Context, []T) error) (int, error) {
	seen := make(map[string]bool)
	cursor := ""
	total := 0

	for pageNum := 1; ; pageNum++ {
		page, err := Fetch(ctx, f, op, func(ctx context.Context) (upstream.Page[T], error) {
			return fetch(ctx, cursor)
		})
		if err != nil {
			return total, fmt.Errorf("page %d: %w", pageNum, err)
		}

		if len(page.Data) > 0 {
			if err := handle(ctx, page.Data); err != nil {
				return total, fmt.Errorf("%s page %d: %w", op, pageNum, err)
			}
			total += len(page.Data)
		}

		next := page.Meta.Next()
		if next == "" {
			return total, nil
		}
		if seen[next] {
			return total, fmt.Errorf("%s: %w: %q", op, ErrCursorLoop, next)
		}
		seen[next] = true
		cursor = next
	}
}
