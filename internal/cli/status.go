// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/deskmirror/internal/database"
	"github.com/tomtom215/deskmirror/internal/models"
)

func (a *app) statusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the sync cursor of every entity type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(func(db *database.DB) error {
				cursors, err := db.GetStatus(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), cursors)
				}
				return printCursors(cmd.OutOrStdout(), cursors)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show warehouse totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(func(db *database.DB) error {
				stats, err := db.GetStats(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), stats)
				}
				return printStats(cmd.OutOrStdout(), stats)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printCursors(w io.Writer, cursors []models.SyncCursor) error {
	if len(cursors) == 0 {
		_, err := fmt.Fprintln(w, "No syncs recorded yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tLAST SYNCED\tTOTAL\tLAST ID")
	for _, c := range cursors {
		lastID := "-"
		if c.LastSyncedID != nil {
			lastID = fmt.Sprint(*c.LastSyncedID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.EntityType, c.LastSyncedAt.UTC().Format(time.RFC3339), c.TotalSynced, lastID)
	}
	return tw.Flush()
}

func printStats(w io.Writer, s models.WarehouseStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Tickets\t%d\t(%d open, %d closed)\n", s.TotalTickets, s.OpenTickets, s.ClosedTickets)
	fmt.Fprintf(tw, "Customers\t%d\n", s.TotalCustomers)
	fmt.Fprintf(tw, "Messages\t%d\n", s.TotalMessages)
	fmt.Fprintf(tw, "Agents\t%d\n", s.TotalAgents)
	fmt.Fprintf(tw, "Tags\t%d\n", s.TotalTags)
	for _, c := range s.TicketsByChannel {
		fmt.Fprintf(tw, "  %s\t%d\n", c.Channel, c.Count)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
