// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

// Package upstream holds the payload types returned by the helpdesk REST API.
package upstream

import "time"

// Page is one response from a cursor-paginated list endpoint:
//
//	{"data": [...], "meta": {"next_cursor": "...", "prev_cursor": null}}
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// PageMeta carries the opaque pagination cursors.
type PageMeta struct {
	NextCursor *string `json:"next_cursor"`
	PrevCursor *string `json:"prev_cursor"`
	HasMore    *bool   `json:"has_more,omitempty"`
}

// Next returns the cursor for the following page, or "" when the listing is exhausted.
func (m PageMeta) Next() string {
	if m.HasMore != nil && !*m.HasMore {
		return ""
	}
	if m.NextCursor == nil {
		return ""
	}
	return *m.NextCursor
}

// ListParams are the query parameters shared by every list endpoint.
type ListParams struct {
	Limit   int
	Cursor  string
	OrderBy string

	// UpdatedFrom maps to updated_datetime_from when non-zero.
	UpdatedFrom *time.Time
}
