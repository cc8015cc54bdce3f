// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package sync

import (
	"context"
	"errors"
	"slices"
	"strconv"
	gosync "sync"
	"testing"
	"time"

	"github.com/tomtom215/deskmirror/internal/config"
	"github.com/tomtom215/deskmirror/internal/models"
	"github.com/tomtom215/deskmirror/internal/models/upstream"
)

// fakeClock records every Sleep. With advance set, Sleep moves time forward.
type fakeClock struct {
	mu      gosync.Mutex
	now     time.Time
	sleeps  []time.Duration
	advance bool
}

func newFakeClock(advance bool) *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), advance: advance}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.advance {
		c.now = c.now.Add(d)
	}
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sleeps)
}

// pageOf serves items[cursor:cursor+size] with the next offset as cursor.
func pageOf[T any](items []T, p upstream.ListParams, size int) upstream.Page[T] {
	start := 0
	if p.Cursor != "" {
		start, _ = strconv.Atoi(p.Cursor)
	}
	start = min(start, len(items))
	end := min(start+size, len(items))
	page := upstream.Page[T]{Data: slices.Clone(items[start:end])}
	if end < len(items) {
		next := strconv.Itoa(end)
		page.Meta.NextCursor = &next
	}
	return page
}

// fakeSource serves fixed fixtures in pages of pageSize.
type fakeSource struct {
	mu gosync.Mutex

	users     []upstream.User
	tags      []upstream.Tag
	customers []upstream.Customer
	tickets   []upstream.Ticket
	messages  map[int64][]upstream.Message

	pageSize int

	// failures keyed by "users", "tickets", "messages:<id>", "customers:<cursor>"
	failures map[string]error

	// block, when set, is waited on by ListUsers.
	block chan struct{}

	calls        map[string]int
	ticketParams []upstream.ListParams
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		messages: make(map[int64][]upstream.Message),
		pageSize: 2,
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (s *fakeSource) record(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[key]++
	return s.failures[key]
}

func (s *fakeSource) callCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *fakeSource) ListUsers(ctx context.Context, p upstream.ListParams) (upstream.Page[upstream.User], error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return upstream.Page[upstream.User]{}, ctx.Err()
		}
	}
	if err := s.record("users"); err != nil {
		return upstream.Page[upstream.User]{}, err
	}
	return pageOf(s.users, p, s.pageSize), nil
}

func (s *fakeSource) ListTags(_ context.Context, p upstream.ListParams) (upstream.Page[upstream.Tag], error) {
	if err := s.record("tags"); err != nil {
		return upstream.Page[upstream.Tag]{}, err
	}
	return pageOf(s.tags, p, s.pageSize), nil
}

func (s *fakeSource) ListCustomers(_ context.Context, p upstream.ListParams) (upstream.Page[upstream.Customer], error) {
	if err := s.record("customers:" + p.Cursor); err != nil {
		return upstream.Page[upstream.Customer]{}, err
	}
	return pageOf(s.customers, p, s.pageSize), nil
}

func (s *fakeSource) ListTickets(_ context.Context, p upstream.ListParams) (upstream.Page[upstream.Ticket], error) {
	s.mu.Lock()
	s.ticketParams = append(s.ticketParams, p)
	s.mu.Unlock()
	if err := s.record("tickets"); err != nil {
		return upstream.Page[upstream.Ticket]{}, err
	}
	return pageOf(s.tickets, p, s.pageSize), nil
}

func (s *fakeSource) ListTicketMessages(_ context.Context, ticketID int64, p upstream.ListParams) (upstream.Page[upstream.Message], error) {
	if err := s.record("messages:" + strconv.FormatInt(ticketID, 10)); err != nil {
		return upstream.Page[upstream.Message]{}, err
	}
	return pageOf(s.messages[ticketID], p, s.pageSize), nil
}

// memStore is an in-memory Store that remembers the order of writes.
type memStore struct {
	mu gosync.Mutex

	agents    map[int64]upstream.User
	tags      map[int64]upstream.Tag
	customers map[int64]upstream.Customer
	tickets   map[int64]upstream.Ticket
	messages  map[int64]upstream.Message
	cursors   map[string]models.SyncCursor

	writes    []string
	failWrite map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		agents:    make(map[int64]upstream.User),
		tags:      make(map[int64]upstream.Tag),
		customers: make(map[int64]upstream.Customer),
		tickets:   make(map[int64]upstream.Ticket),
		messages:  make(map[int64]upstream.Message),
		cursors:   make(map[string]models.SyncCursor),
		failWrite: make(map[string]error),
	}
}

func upsertMap[T any](s *memStore, kind string, m map[int64]T, items []T, key func(*T) int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite[kind]; err != nil {
		return 0, err
	}
	s.writes = append(s.writes, kind)
	for i := range items {
		m[key(&items[i])] = items[i]
	}
	return len(items), nil
}

func (s *memStore) UpsertAgents(_ context.Context, users []upstream.User) (int, error) {
	return upsertMap(s, "agents", s.agents, users, func(u *upstream.User) int64 { return u.ID })
}

func (s *memStore) UpsertTags(_ context.Context, tags []upstream.Tag) (int, error) {
	return upsertMap(s, "tags", s.tags, tags, func(t *upstream.Tag) int64 { return t.ID })
}

func (s *memStore) UpsertCustomers(_ context.Context, customers []upstream.Customer) (int, error) {
	return upsertMap(s, "customers", s.customers, customers, func(c *upstream.Customer) int64 { return c.ID })
}

func (s *memStore) UpsertTickets(_ context.Context, tickets []upstream.Ticket) (int, error) {
	var embedded []upstream.Customer
	for i := range tickets {
		if tickets[i].Customer != nil {
			embedded = append(embedded, *tickets[i].Customer)
		}
	}
	if _, err := upsertMap(s, "customers", s.customers, embedded, func(c *upstream.Customer) int64 { return c.ID }); err != nil {
		return 0, err
	}
	return upsertMap(s, "tickets", s.tickets, tickets, func(t *upstream.Ticket) int64 { return t.ID })
}

func (s *memStore) UpsertMessages(_ context.Context, messages []upstream.Message) (int, error) {
	return upsertMap(s, "messages", s.messages, messages, func(m *upstream.Message) int64 { return m.ID })
}

func (s *memStore) ListTicketIDs(_ context.Context, since *time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.tickets))
	for id, tk := range s.tickets {
		if since != nil && (tk.UpdatedDatetime == nil || tk.UpdatedDatetime.Before(*since)) {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *memStore) RecordProgressDetail(_ context.Context, cur models.SyncCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite["cursor"]; err != nil {
		return err
	}
	s.cursors[cur.EntityType] = cur
	return nil
}

func (s *memStore) GetCursor(_ context.Context, entityType string) (*models.SyncCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cursors[entityType]
	if !ok {
		return nil, nil
	}
	return &cur, nil
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// testSyncConfig retries instantly under a fake clock.
func testSyncConfig() *config.SyncConfig {
	return &config.SyncConfig{
		BatchSize:          500,
		Concurrency:        1,
		MaxRetries:         3,
		BackoffBase:        2 * time.Second,
		TransientDelay:     time.Second,
		IncrementalOverlap: 10 * time.Minute,
	}
}

// newTestOrchestrator uses a fake clock and a limiter that never waits.
func newTestOrchestrator(src Source, store Store, cfg *config.SyncConfig, opts ...Option) (*Orchestrator, *fakeClock) {
	clock := newFakeClock(true)
	base := []Option{
		WithClock(clock),
		WithRateLimiter(NewRateLimiter(1000, clock)),
		WithPageSize(2),
	}
	return NewOrchestrator(src, store, cfg, append(base, opts...)...), clock
}

func strPtr(s string) *string { return &s }

func timeRef(t time.Time) *time.Time { return &t }

// fixtureSource builds a small helpdesk: 3 users, 2 tags, 3 customers,
// 4 tickets (one embedding customer 555) with 2 messages each.
func fixtureSource() *fakeSource {
	src := newFakeSource()
	src.users = []upstream.User{{ID: 1, Email: "a@x.io"}, {ID: 2, Email: "b@x.io"}, {ID: 3, Email: "c@x.io"}}
	src.tags = []upstream.Tag{{ID: 10, Name: "refund"}, {ID: 11, Name: "vip"}}
	src.customers = []upstream.Customer{{ID: 100, Name: "Ada"}, {ID: 101, Name: "Bob"}, {ID: 102, Name: "Cy"}}

	updated := time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC)
	for id := int64(1000); id < 1004; id++ {
		tk := upstream.Ticket{ID: id, Status: "open", UpdatedDatetime: timeRef(updated),
			Customer: &upstream.Customer{ID: 100}, Tags: []upstream.Tag{{ID: 10, Name: "refund"}}}
		if id == 1003 {
			tk.Customer = &upstream.Customer{ID: 555, Email: strPtr("c555@example.com")}
		}
		src.tickets = append(src.tickets, tk)
		src.messages[id] = []upstream.Message{
			{ID: id*10 + 1, TicketID: id},
			{ID: id*10 + 2, TicketID: id},
		}
	}
	return src
}

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func checkIntEqual(t *testing.T, fieldName string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, got)
	}
}

func findPhase(t *testing.T, r RunResult, p Phase) PhaseResult {
	t.Helper()
	for _, pr := range r.Phases {
		if pr.Phase == p {
			return pr
		}
	}
	t.Fatalf("phase %s missing from run result %+v", p, r.Phases)
	return PhaseResult{}
}

var errBoom = errors.New("boom")
