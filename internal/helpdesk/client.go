// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package helpdesk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/deskmirror/internal/config"
	"github.com/tomtom215/deskmirror/internal/metrics"
	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

const userAgent = "deskmirror/1.0"

// Client talks to the helpdesk REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	username   string
	apiKey     string
	httpClient *http.Client

	// breaker is nil when the circuit breaker is disabled.
	breaker *gobreaker.CircuitBreaker[any]

	now func() time.Time
}

// NewClient creates a client for cfg.URL authenticated with HTTP basic auth
// (username, API key).
func NewClient(cfg *config.HelpdeskConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
	if cfg.CircuitBreaker {
		c.breaker = newCircuitBreaker(breakerName)
	}
	return c
}

// Ping verifies connectivity and credentials with a one-row user listing.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.ListUsers(ctx, upstream.ListParams{Limit: 1}); err != nil {
		return fmt.Errorf("failed to ping helpdesk: %w", err)
	}
	return nil
}

func (c *Client) ListUsers(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.User], error) {
	return getPage[upstream.User](ctx, c, "/users", "/users", p)
}

func (c *Client) ListTags(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.Tag], error) {
	return getPage[upstream.Tag](ctx, c, "/tags", "/tags", p)
}

func (c *Client) ListCustomers(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.Customer], error) {
	return getPage[upstream.Customer](ctx, c, "/customers", "/customers", p)
}

func (c *Client) ListTickets(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.Ticket], error) {
	return getPage[upstream.Ticket](ctx, c, "/tickets", "/tickets", p)
}

// ListTicketMessages lists the messages of one ticket.
func (c *Client) ListTicketMessages(ctx context.Context, ticketID int64, p upstream.ListParams) (upstream.Page[upstream.Message], error) {
	path := "/tickets/" + strconv.FormatInt(ticketID, 10) + "/messages"
	return getPage[upstream.Message](ctx, c, "/tickets/{id}/messages", path, p)
}

// getPage fetches one page of a list endpoint. endpoint is the route
// template used for metrics, path the concrete request path.
func getPage[T any](ctx context.Context, c *Client, endpoint, path string, p upstream.ListParams) (upstream.Page[T], error) {
	var page upstream.Page[T]
	err := c.execute(func() error {
		return c.getJSON(ctx, endpoint, path, listQuery(p), &page)
	})
	if err != nil {
		return upstream.Page[T]{}, err
	}
	return page, nil
}

// listQuery encodes the shared list parameters.
func listQuery(p upstream.ListParams) url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}
	if p.OrderBy != "" {
		q.Set("order_by", p.OrderBy)
	}
	if p.UpdatedFrom != nil && !p.UpdatedFrom.IsZero() {
		q.Set("updated_datetime_from", p.UpdatedFrom.UTC().Format(time.RFC3339))
	}
	return q
}

// getJSON performs one GET and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(endpoint, 0, time.Since(start))
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Body:       readBodyForError(resp.Body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
