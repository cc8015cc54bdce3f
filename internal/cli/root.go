// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

// Package cli implements the deskmirror command line.
//
//	deskmirror sync <users|tags|customers|tickets|messages|full>...
//	deskmirror status
//	deskmirror stats
//	deskmirror serve
//
// Configuration comes from the file named by --config (or the default search
// paths) layered under environment variables.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomtom215/deskmirror/internal/config"
	"github.com/tomtom215/deskmirror/internal/database"
	"github.com/tomtom215/deskmirror/internal/logging"
	"github.com/tomtom215/deskmirror/internal/version"
)

// app is shared by every subcommand. cfg is loaded in PersistentPreRunE.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config

	// openDB is replaced in tests.
	openDB func(*config.DatabaseConfig) (*database.DB, error)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{openDB: database.New}

	root := &cobra.Command{
		Use:           "deskmirror",
		Short:         "Mirror a helpdesk into a DuckDB warehouse",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `deskmirror copies users, tags, customers, tickets and messages from a
helpdesk REST API into a local DuckDB warehouse, respecting the upstream
rate limit, and serves read-only queries over the result.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Close()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file (default: search "+config.ConfigPathEnvVar+" and standard paths)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(a.syncCmd())
	root.AddCommand(a.statusCmd())
	root.AddCommand(a.statsCmd())
	root.AddCommand(a.serveCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errSyncFailed) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return 1
}

func (a *app) load() error {
	cfg, err := config.LoadWithKoanf(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Caller:     cfg.Logging.Caller,
		Timestamp:  true,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	return nil
}

// withDB opens the warehouse for the duration of fn.
func (a *app) withDB(fn func(*database.DB) error) error {
	db, err := a.openDB(&a.cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("Error closing warehouse")
		}
	}()
	return fn(db)
}
