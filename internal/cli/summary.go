// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
)

// printSummary writes one line per phase and a closing total.
func printSummary(w io.Writer, result syncpkg.RunResult) {
	succeeded := 0
	for _, p := range result.Phases {
		if p.Success {
			succeeded++
		}
		fmt.Fprintln(w, summaryLine(p))
	}
	fmt.Fprintf(w, "\n%d/%d phases succeeded in %s\n", succeeded, len(result.Phases), formatDuration(result.Duration()))
}

func summaryLine(p syncpkg.PhaseResult) string {
	mark := color.New(color.FgGreen).Sprint("✓")
	if !p.Success {
		mark = color.New(color.FgRed).Sprint("✗")
	}
	line := fmt.Sprintf("%s %-9s %6d synced", mark, p.Phase, p.Total)
	if p.Phase == syncpkg.PhaseMessages && (p.Tickets > 0 || p.Failed > 0) {
		line += fmt.Sprintf(" from %d tickets", p.Tickets)
		if p.Failed > 0 {
			line += fmt.Sprintf(", %d tickets failed", p.Failed)
		}
	}
	line += fmt.Sprintf(" (%s)", formatDuration(p.Duration))
	if p.Error != "" {
		line += ": " + color.New(color.FgRed).Sprint(p.Error)
	}
	return line
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
