// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/deskmirror/internal/models"
	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
)

type fakeWarehouse struct {
	pingErr  error
	queryErr error

	tickets  map[int64]models.TicketDetail
	messages map[int64][]models.Message
	byEmail  map[string][]models.TicketDetail
	cursors  []models.SyncCursor

	statsCalls atomic.Int32
	lastLimit  atomic.Int32
}

func newFakeWarehouse() *fakeWarehouse {
	subject := "Where is my order?"
	email := "ada@example.com"
	return &fakeWarehouse{
		tickets: map[int64]models.TicketDetail{
			42: {
				Ticket:        models.Ticket{ID: 42, Status: "open", Subject: &subject},
				CustomerEmail: &email,
				Tags:          []models.Tag{{ID: 1, Name: "refund"}},
			},
		},
		messages: map[int64][]models.Message{
			42: {{ID: 1, TicketID: 42}, {ID: 2, TicketID: 42}},
		},
		byEmail: map[string][]models.TicketDetail{
			email: {{Ticket: models.Ticket{ID: 42, Status: "open"}}},
		},
		cursors: []models.SyncCursor{{EntityType: "tickets", TotalSynced: 12}},
	}
}

func (f *fakeWarehouse) Ping(context.Context) error { return f.pingErr }

func (f *fakeWarehouse) GetStats(context.Context) (models.WarehouseStats, error) {
	f.statsCalls.Add(1)
	if f.queryErr != nil {
		return models.WarehouseStats{}, f.queryErr
	}
	return models.WarehouseStats{TotalTickets: int64(len(f.tickets)), TicketsByChannel: []models.ChannelCount{}}, nil
}

func (f *fakeWarehouse) GetStatus(context.Context) ([]models.SyncCursor, error) {
	return f.cursors, f.queryErr
}

func (f *fakeWarehouse) GetTicket(_ context.Context, id int64) (*models.TicketDetail, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	t, ok := f.tickets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeWarehouse) GetTicketMessages(_ context.Context, ticketID int64) ([]models.Message, error) {
	return f.messages[ticketID], f.queryErr
}

func (f *fakeWarehouse) GetTicketsByCustomerEmail(_ context.Context, email string, limit int) ([]models.TicketDetail, error) {
	f.lastLimit.Store(int32(limit))
	return f.byEmail[email], f.queryErr
}

func (f *fakeWarehouse) CustomerTicketCounts(_ context.Context, customerID int64) (models.CustomerTicketCounts, error) {
	return models.CustomerTicketCounts{CustomerID: customerID, Total: 3, Open: 1, Closed: 2}, f.queryErr
}

// fakeSync records runs. With block set, Run waits for it to close.
type fakeSync struct {
	mu      gosync.Mutex
	running bool
	calls   [][]syncpkg.Phase
	block   chan struct{}
	last    *syncpkg.RunResult
}

func (f *fakeSync) Run(ctx context.Context, phases ...syncpkg.Phase) (syncpkg.RunResult, error) {
	f.mu.Lock()
	f.running = true
	f.calls = append(f.calls, phases)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}

	result := syncpkg.RunResult{RunID: "run", Started: time.Now(), Finished: time.Now()}
	f.mu.Lock()
	f.running = false
	f.last = &result
	f.mu.Unlock()
	return result, nil
}

func (f *fakeSync) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeSync) State() syncpkg.State {
	if f.Running() {
		return syncpkg.State(syncpkg.PhaseUsers)
	}
	return syncpkg.StateIdle
}

func (f *fakeSync) LastRun() *syncpkg.RunResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeSync) runCalls() [][]syncpkg.Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]syncpkg.Phase(nil), f.calls...)
}

// envelope mirrors APIResponse with Data left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func newTestServer(h *Handler, mw *ChiMiddleware) http.Handler {
	return NewRouter(h, mw).SetupChi()
}

func doRequest(t *testing.T, srv http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode envelope: %v (body %q)", method, target, err, rec.Body.String())
		}
	}
	return rec, env
}

func checkStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, string(env.Data))
	}
}
