package tui

import (
	"fmt"
	"io"
	"sync"

	"kidep/internal/tools"
)

// LineObserver prints one line per stage change. On a terminal the
// download bar is redrawn in place.
type LineObserver struct {
	w   io.Writer
	tty bool

	mu      sync.Mutex
	drawing bool
}

// NewLineObserver creates a plain observer writing to w.
func NewLineObserver(w io.Writer) *LineObserver {
	return &LineObserver{w: w, tty: IsTerminal(w)}
}

// Stage implements tools.Observer.
func (o *LineObserver) Stage(tool, stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.endBar()
	fmt.Fprintf(o.w, "%s: %s\n", tool, stage)
}

// Progress implements tools.Observer.
func (o *LineObserver) Progress(tool string, fraction float64) {
	if !o.tty {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "\r\033[K%s %s", tool, tools.ProgressBar(fraction))
	o.drawing = true
}

func (o *LineObserver) endBar() {
	if o.drawing {
		fmt.Fprint(o.w, "\n")
		o.drawing = false
	}
}
