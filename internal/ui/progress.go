// Package ui renders in-place terminal progress for long-running
// batch downloads, degrading to plain line output when stderr is not
// a terminal.
package ui

import (
	"fmt"
	"os"
	"sync"
)

// Progress renders a single updating "[done/total] item" line. Off a
// terminal (or with NO_COLOR set) each update becomes its own line, so
// logs captured from cron or CI stay readable.
type Progress struct {
	total    int
	done     int
	terminal bool
	mu       sync.Mutex
}

// NewProgress starts a progress line over total items.
func NewProgress(label string, total int) *Progress {
	p := &Progress{
		total:    total,
		terminal: isTerminal() && os.Getenv("NO_COLOR") == "",
	}
	if !p.terminal {
		fmt.Fprintf(os.Stderr, "%s: %d items\n", label, total)
	}
	return p
}

// Step records one finished item and redraws the line.
func (p *Progress) Step(item string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if p.terminal {
		fmt.Fprintf(os.Stderr, "\r\033[K[%d/%d] %s", p.done, p.total, item)
	} else {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", p.done, p.total, item)
	}
}

// Finish clears the in-place line and prints a final summary.
func (p *Progress) Finish(summary string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.terminal {
		fmt.Fprintf(os.Stderr, "\r\033[K")
	}
	if summary != "" {
		fmt.Fprintf(os.Stderr, "%s\n", summary)
	}
}

// isTerminal checks if output is to a terminal
func isTerminal() bool {
	fileInfo, _ := os.Stderr.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
