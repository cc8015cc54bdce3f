// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/deskmirror/internal/config"
	"github.com/tomtom215/deskmirror/internal/database"
	"github.com/tomtom215/deskmirror/internal/helpdesk"
	"github.com/tomtom215/deskmirror/internal/logging"
	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
)

// errSyncFailed is returned with --fail-fast when a phase failed. The summary
// has already been printed, so Execute only sets the exit code.
var errSyncFailed = errors.New("sync failed")

type syncFlags struct {
	batch       int
	concurrency int
	incremental bool
	failFast    bool
	noProgress  bool
}

func (a *app) syncCmd() *cobra.Command {
	var f syncFlags

	cmd := &cobra.Command{
		Use:   "sync <users|tags|customers|tickets|messages|full>...",
		Short: "Copy helpdesk entities into the warehouse",
		Long: `Run one or more sync phases. Phases always execute in dependency order
(users, tags, customers, tickets, messages) regardless of argument order.
"full" runs every phase. "agents" is accepted as an alias for users.

A failed phase is reported and the remaining phases still run; the command
exits non-zero only when --fail-fast is set.`,
		Example: `  deskmirror sync full
  deskmirror sync tickets messages --concurrency 4
  deskmirror sync full --incremental --fail-fast`,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{"users", "agents", "tags", "customers", "tickets", "messages", "full"},
		RunE: func(cmd *cobra.Command, args []string) error {
			phases, err := parsePhaseArgs(args)
			if err != nil {
				return err
			}
			applySyncFlags(cmd, &f, &a.cfg.Sync)
			return a.runSync(cmd, phases, !f.noProgress)
		},
	}

	cmd.Flags().IntVar(&f.batch, "batch", 0, "rows per bulk upsert (overrides sync.batch_size)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "parallel per-ticket message fetches, 1-10 (overrides sync.concurrency)")
	cmd.Flags().BoolVar(&f.incremental, "incremental", false, "resume customers, tickets and messages from the last cursor")
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "stop at the first failed phase and exit non-zero")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

// parsePhaseArgs maps CLI arguments to phases. "full" expands to every phase.
func parsePhaseArgs(args []string) ([]syncpkg.Phase, error) {
	phases := make([]syncpkg.Phase, 0, len(args))
	for _, arg := range args {
		if strings.EqualFold(strings.TrimSpace(arg), "full") {
			return append([]syncpkg.Phase(nil), syncpkg.AllPhases...), nil
		}
		p, err := syncpkg.ParsePhase(arg)
		if err != nil {
			return nil, fmt.Errorf("%w (expected users, tags, customers, tickets, messages or full)", err)
		}
		phases = append(phases, p)
	}
	return phases, nil
}

// applySyncFlags overlays explicitly set flags on the configured values.
func applySyncFlags(cmd *cobra.Command, f *syncFlags, cfg *config.SyncConfig) {
	flags := cmd.Flags()
	if flags.Changed("batch") {
		cfg.BatchSize = f.batch
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if flags.Changed("incremental") {
		cfg.Incremental = f.incremental
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = f.failFast
	}
}

func (a *app) runSync(cmd *cobra.Command, phases []syncpkg.Phase, progress bool) error {
	if err := a.cfg.RequireHelpdesk(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if a.cfg.Sync.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Sync.RunTimeout)
		defer cancel()
	}
	ctx = logging.ContextWithRunID(ctx, logging.GenerateRunID())

	return a.withDB(func(db *database.DB) error {
		bar := newProgressBar(cmd.ErrOrStderr(), progress)
		orch := syncpkg.NewOrchestrator(
			helpdesk.NewClient(&a.cfg.Helpdesk),
			db,
			&a.cfg.Sync,
			syncpkg.WithRateLimiter(syncpkg.NewRateLimiter(a.cfg.Helpdesk.RequestsPerSecond, syncpkg.SystemClock{})),
			syncpkg.WithPageSize(a.cfg.Helpdesk.PageSize),
			syncpkg.WithProgress(bar.Update),
			syncpkg.WithPhaseCallback(func(syncpkg.PhaseResult) { bar.Finish() }),
		)

		result, err := orch.Run(ctx, phases...)
		bar.Finish()
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), result)
		if a.cfg.Sync.FailFast && result.Failed() {
			return errSyncFailed
		}
		return nil
	})
}
