// Package tui renders sync progress and session reports for the terminal.
package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/MKhiriev/go-note-sync/models"
)

// Printer writes one progress line per report it observes. It satisfies the
// synchronizer's Observer interface.
type Printer struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// OnProgress prints report unless it renders the same as the previous line.
func (p *Printer) OnProgress(report models.SyncReport) {
	line := RenderProgress(report)

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.w, line)
}
