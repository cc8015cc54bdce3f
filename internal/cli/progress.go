// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	gosync "sync"

	"golang.org/x/term"

	syncpkg "github.com/tomtom215/deskmirror/internal/sync"
)

const barWidth = 30

// progressBar redraws one line per phase on a terminal. It is inert when the
// writer is not a TTY so piped output stays clean.
type progressBar struct {
	mu      gosync.Mutex
	w       io.Writer
	enabled bool
	drawn   bool
}

func newProgressBar(w io.Writer, want bool) *progressBar {
	return &progressBar{w: w, enabled: want && isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Update redraws the current line.
func (b *progressBar) Update(p syncpkg.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled {
		return
	}
	fmt.Fprint(b.w, "\r\033[K"+renderProgress(p, barWidth))
	b.drawn = true
}

// Finish ends the current line so the next phase starts fresh.
func (b *progressBar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drawn {
		fmt.Fprintln(b.w)
		b.drawn = false
	}
}

// renderProgress draws a bar when the total is known and a counter otherwise.
func renderProgress(p syncpkg.Progress, width int) string {
	label := fmt.Sprintf("%-9s", p.Phase)
	failed := ""
	if p.Failed > 0 {
		failed = fmt.Sprintf(" (%d failed)", p.Failed)
	}
	if p.Total <= 0 {
		return fmt.Sprintf("%s %d processed%s", label, p.Processed, failed)
	}

	done := min(p.Processed, p.Total)
	filled := done * width / p.Total
	pct := done * 100 / p.Total
	return fmt.Sprintf("%s [%s%s] %3d%% %d/%d%s",
		label, strings.Repeat("=", filled), strings.Repeat(" ", width-filled), pct, done, p.Total, failed)
}
