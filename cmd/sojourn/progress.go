package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// progressPrinter renders fan-out progress as a single rewritten line.
// Safe to call from racing workers.
type progressPrinter struct {
	w  io.Writer
	mu sync.Mutex

	stageStyle lipgloss.Style
	countStyle lipgloss.Style
	last       int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{
		w:          w,
		stageStyle: lipgloss.NewStyle().Bold(true),
		countStyle: lipgloss.NewStyle().Faint(true),
	}
}

// Report is a fanout.Progress. Out-of-order callbacks from racing workers
// are dropped so the displayed counter never moves backwards.
func (p *progressPrinter) Report(stage string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if done < p.last {
		return
	}
	p.last = done
	fmt.Fprintf(p.w, "\r%s %s",
		p.stageStyle.Render(stage),
		p.countStyle.Render(fmt.Sprintf("%d/%d", done, total)))
	if done == total {
		fmt.Fprintln(p.w)
		p.last = 0
	}
}
