// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/deskmirror/internal/api"
	"github.com/tomtom215/deskmirror/internal/cache"
	"github.com/tomtom215/deskmirror/internal/database"
	"github.com/tomtom215/deskmirror/internal/helpdesk"
	"github.com/tomtom215/deskmirror/internal/logging"
	"github.com/tomtom215/deskmirror/internal/supervisor"
	"github.com/tomtom215/deskmirror/internal/supervisor/services"
	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
	"github.com/tomtom215/deskmirror/internal/version"
)

const queryCacheTTL = 5 * time.Minute

func (a *app) serveCmd() *cobra.Command {
	var syncOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API and run scheduled syncs",
		Long: `Start the HTTP query API under a supervisor tree. When a helpdesk is
configured and sync.interval is positive, full syncs also run on that schedule
and can be triggered with POST /api/v1/sync.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(func(db *database.DB) error {
				return a.serve(cmd.Context(), db, syncOnStart)
			})
		},
	}
	cmd.Flags().BoolVar(&syncOnStart, "sync-on-start", false, "run a full sync immediately instead of after one interval")
	return cmd
}

func (a *app) serve(parent context.Context, db *database.DB, syncOnStart bool) error {
	cfg := a.cfg
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	treeCfg := supervisor.DefaultTreeConfig()
	if cfg.Server.ShutdownTimeout > 0 {
		// The API service reports its own drain timeout before suture gives up on it.
		treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout + 5*time.Second
	}
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return err
	}

	queryCache := cache.New(queryCacheTTL)
	opts := []api.HandlerOption{
		api.WithCache(queryCache),
		api.WithBaseContext(ctx),
		api.WithVersion(version.Version),
	}

	if err := cfg.RequireHelpdesk(); err != nil {
		logging.Warn().Msg("No helpdesk configured, serving the warehouse read-only")
	} else {
		client := helpdesk.NewClient(&cfg.Helpdesk)
		if perr := client.Ping(ctx); perr != nil {
			logging.Warn().Err(perr).Msg("Helpdesk not reachable yet, syncs will retry")
		}
		orch := syncpkg.NewOrchestrator(client, db, &cfg.Sync,
			syncpkg.WithRateLimiter(syncpkg.NewRateLimiter(cfg.Helpdesk.RequestsPerSecond, syncpkg.SystemClock{})),
			syncpkg.WithPageSize(cfg.Helpdesk.PageSize),
			syncpkg.WithPhaseCallback(func(syncpkg.PhaseResult) { queryCache.Clear() }),
		)
		opts = append(opts, api.WithSync(orch), api.WithBreakerState(client.BreakerState))

		if cfg.Sync.Interval > 0 || syncOnStart {
			tree.AddSyncService(services.NewScheduledSyncService(orch, cfg.Sync.Interval, syncOnStart))
			logging.Info().Dur("interval", cfg.Sync.Interval).Bool("on_start", syncOnStart).Msg("Scheduled sync enabled")
		}
	}
	handler := api.NewHandler(db, opts...)

	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(&cfg.Server)))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewAPIServerService(server, cfg.Server.ShutdownTimeout, handler.Wait))
	logging.Info().Str("addr", server.Addr).Str("version", version.String()).Msg("Starting deskmirror server")

	// The tree returns once ctx is cancelled and every service has stopped.
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	// The API service gives up on a triggered run at its deadline, but the
	// run still holds the warehouse.
	handler.Wait()

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	logging.Info().Msg("Server stopped")
	return nil
}
