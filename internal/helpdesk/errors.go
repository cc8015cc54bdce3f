// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package helpdesk

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrThrottled matches (via errors.Is) any APIError with status 429.
var ErrThrottled = errors.New("helpdesk rate limit exceeded")

// maxErrorBodySize limits the response body kept on an APIError.
const maxErrorBodySize = 4 * 1024

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string

	// RetryAfter is the server-requested wait, zero when absent or unparseable.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("helpdesk %s: HTTP %d", e.Endpoint, e.StatusCode)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// Is reports 429 responses as ErrThrottled.
func (e *APIError) Is(target error) bool {
	return target == ErrThrottled && e.StatusCode == http.StatusTooManyRequests
}

// Kind is a low-cardinality label for logs and metrics.
func (e *APIError) Kind() string {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return "throttled"
	case e.StatusCode >= 500:
		return "server_error"
	case IsPermanent(e):
		return "client_error"
	default:
		return "transient"
	}
}

// IsThrottled reports whether err is, or wraps, a 429 response.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsPermanent reports whether err is a 4xx response that retrying cannot fix.
// 408 and 429 are excluded.
func IsPermanent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// RetryAfter returns the Retry-After carried by err, or zero.
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// parseRetryAfter accepts both forms allowed by RFC 9110: delay-seconds and HTTP-date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// readBodyForError reads at most maxErrorBodySize bytes of an error response.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize+1))
	if err != nil {
		return "(failed to read response body)"
	}
	if len(body) > maxErrorBodySize {
		return string(body[:maxErrorBodySize]) + "... (truncated)"
	}
	return string(body)
}
