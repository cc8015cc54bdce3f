// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package helpdesk

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "5", 5 * time.Second},
		{"negative", "-1", 0},
		{"http date", "Wed, 01 Jan 2025 12:00:10 GMT", 10 * time.Second},
		{"past date", "Wed, 01 Jan 2025 11:00:00 GMT", 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value, now); got != tt.want {
				t.Errorf("parseRetryAfter(%q): got %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestErrThrottledThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("fetch tickets: %w", &APIError{StatusCode: 429, Endpoint: "/tickets", RetryAfter: time.Second})
	if !IsThrottled(err) {
		t.Error("wrapped 429 should be throttled")
	}
	if got := RetryAfter(err); got != time.Second {
		t.Errorf("RetryAfter: got %v, want 1s", got)
	}
	if IsThrottled(errors.New("plain")) || RetryAfter(errors.New("plain")) != 0 {
		t.Error("plain errors carry no throttle information")
	}
}

func TestReadBodyForErrorTruncates(t *testing.T) {
	t.Parallel()

	body := readBodyForError(strings.NewReader(strings.Repeat("x", maxErrorBodySize+10)))
	if !strings.HasSuffix(body, "(truncated)") {
		t.Errorf("expected truncation marker, got suffix %q", body[len(body)-20:])
	}
	if short := readBodyForError(strings.NewReader("oops")); short != "oops" {
		t.Errorf("got %q, want %q", short, "oops")
	}
}
