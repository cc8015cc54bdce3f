// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/tomtom215/deskmirror/internal/config"
	"github.com/tomtom215/deskmirror/internal/models"
	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
)

func TestParsePhaseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []syncpkg.Phase
		wantErr bool
	}{
		{"full", []string{"full"}, syncpkg.AllPhases, false},
		{"full wins over others", []string{"tickets", "FULL"}, syncpkg.AllPhases, false},
		{"single", []string{"tickets"}, []syncpkg.Phase{syncpkg.PhaseTickets}, false},
		{"agents alias", []string{"agents", "tags"}, []syncpkg.Phase{syncpkg.PhaseUsers, syncpkg.PhaseTags}, false},
		{"unknown", []string{"orders"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePhaseArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestApplySyncFlagsOnlyOverridesChangedFlags(t *testing.T) {
	a := &app{}
	cmd := a.syncCmd()
	if err := cmd.Flags().Parse([]string{"--batch", "25", "--fail-fast"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.SyncConfig{BatchSize: 500, Concurrency: 4, Incremental: true}
	var f syncFlags
	f.batch, _ = cmd.Flags().GetInt("batch")
	f.failFast, _ = cmd.Flags().GetBool("fail-fast")
	applySyncFlags(cmd, &f, &cfg)

	if cfg.BatchSize != 25 || !cfg.FailFast {
		t.Errorf("expected batch 25 and fail-fast, got %+v", cfg)
	}
	if cfg.Concurrency != 4 || !cfg.Incremental {
		t.Errorf("unset flags must keep configured values, got %+v", cfg)
	}
}

func TestRenderProgress(t *testing.T) {
	tests := []struct {
		name string
		p    syncpkg.Progress
		want string
	}{
		{"unknown total", syncpkg.Progress{Phase: syncpkg.PhaseUsers, Processed: 7}, "users     7 processed"},
		{"half", syncpkg.Progress{Phase: syncpkg.PhaseMessages, Processed: 5, Total: 10}, "messages  [=====     ]  50% 5/10"},
		{"with failures", syncpkg.Progress{Phase: syncpkg.PhaseMessages, Processed: 10, Total: 10, Failed: 2}, "messages  [==========] 100% 10/10 (2 failed)"},
		{"clamped", syncpkg.Progress{Phase: syncpkg.PhaseTickets, Processed: 12, Total: 10}, "tickets   [==========] 100% 10/10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderProgress(tt.p, 10); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestProgressBarIsSilentWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(&buf, true)
	bar.Update(syncpkg.Progress{Phase: syncpkg.PhaseUsers, Processed: 1})
	bar.Finish()
	if buf.Len() != 0 {
		t.Errorf("expected no output for a non-terminal writer, got %q", buf.String())
	}
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	result := syncpkg.RunResult{Phases: []syncpkg.PhaseResult{
		{Phase: syncpkg.PhaseUsers, Success: true, Total: 12},
		{Phase: syncpkg.PhaseTickets, Success: false, Error: "listing tickets: boom"},
		{Phase: syncpkg.PhaseMessages, Success: true, Total: 40, Tickets: 9, Failed: 1},
	}}
	var buf bytes.Buffer
	printSummary(&buf, result)
	out := buf.String()

	for _, want := range []string{
		"✓ users         12 synced",
		"✗ tickets        0 synced",
		": listing tickets: boom",
		"40 synced from 9 tickets, 1 tickets failed",
		"2/3 phases succeeded",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, out)
		}
	}
}

// writeConfig writes a config file with a warehouse under t.TempDir.
func writeConfig(t *testing.T, helpdeskURL string) string {
	t.Helper()
	dir := t.TempDir()
	body := "logging:\n  level: error\ndatabase:\n  path: " + filepath.Join(dir, "warehouse.duckdb") + "\n"
	if helpdeskURL != "" {
		body += "helpdesk:\n  url: " + helpdeskURL + "\n  username: ops@example.com\n  api_key: secret\n  circuit_breaker: false\n"
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Execute(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

// fakeHelpdesk serves empty listings, or 404 for the paths in missing.
func fakeHelpdesk(t *testing.T, missing ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slices.Contains(missing, r.URL.Path) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"meta":{"next_cursor":null,"prev_cursor":null}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusOnEmptyWarehouse(t *testing.T) {
	code, stdout, stderr := run(t, "--config", writeConfig(t, ""), "status")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (%s)", code, stderr)
	}
	if !strings.Contains(stdout, "No syncs recorded yet.") {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestSyncRejectsUnknownPhase(t *testing.T) {
	code, _, stderr := run(t, "--config", writeConfig(t, ""), "sync", "orders")
	if code != 1 || !strings.Contains(stderr, "unknown sync phase") {
		t.Errorf("expected exit 1 with phase error, got %d %q", code, stderr)
	}
}

func TestSyncRequiresHelpdesk(t *testing.T) {
	code, _, stderr := run(t, "--config", writeConfig(t, ""), "sync", "full")
	if code != 1 || stderr == "" {
		t.Errorf("expected exit 1 with an error, got %d %q", code, stderr)
	}
}

func TestSyncFullAgainstFakeHelpdesk(t *testing.T) {
	color.NoColor = true
	srv := fakeHelpdesk(t)
	cfgPath := writeConfig(t, srv.URL)

	code, stdout, stderr := run(t, "--config", cfgPath, "sync", "full", "--no-progress")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (%s)", code, stderr)
	}
	if !strings.Contains(stdout, "5/5 phases succeeded") {
		t.Errorf("unexpected summary:\n%s", stdout)
	}

	code, stdout, _ = run(t, "--config", cfgPath, "status")
	if code != 0 || !strings.Contains(stdout, "tickets") || !strings.Contains(stdout, "messages") {
		t.Errorf("expected cursors for every entity after a full sync, got:\n%s", stdout)
	}
}

func TestSyncExitCodeFollowsFailFast(t *testing.T) {
	color.NoColor = true
	srv := fakeHelpdesk(t, "/users")
	cfgPath := writeConfig(t, srv.URL)

	code, stdout, _ := run(t, "--config", cfgPath, "sync", "users", "tags", "--no-progress")
	if code != 0 {
		t.Errorf("without --fail-fast a failed phase must exit 0, got %d", code)
	}
	if !strings.Contains(stdout, "✗ users") || !strings.Contains(stdout, "✓ tags") {
		t.Errorf("unexpected summary:\n%s", stdout)
	}

	code, stdout, stderr := run(t, "--config", cfgPath, "sync", "users", "tags", "--fail-fast", "--no-progress")
	if code != 1 {
		t.Errorf("with --fail-fast expected exit 1, got %d", code)
	}
	if strings.Contains(stdout, "tags") {
		t.Errorf("fail-fast must stop before tags, got:\n%s", stdout)
	}
	if stderr != "" {
		t.Errorf("the summary already reports the failure, got stderr %q", stderr)
	}
}

var errClosedOutput = errors.New("output closed")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errClosedOutput }

func TestTableOutputReturnsWriteErrors(t *testing.T) {
	cursors := []models.SyncCursor{{EntityType: "tickets", LastSyncedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), TotalSynced: 3}}

	tests := []struct {
		name  string
		print func() error
	}{
		{"cursors", func() error { return printCursors(failingWriter{}, cursors) }},
		{"no cursors", func() error { return printCursors(failingWriter{}, nil) }},
		{"stats", func() error { return printStats(failingWriter{}, models.WarehouseStats{TotalTickets: 1}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.print(); !errors.Is(err, errClosedOutput) {
				t.Errorf("expected %v, got %v", errClosedOutput, err)
			}
		})
	}
}
