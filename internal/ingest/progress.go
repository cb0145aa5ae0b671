package ingest

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// progressBar renders a textual bar on one output line, redrawn in place
// with a carriage return. Increment is safe to call from many workers.
type progressBar struct {
	mu    sync.Mutex
	w     io.Writer
	label string
	width int
	total int64
	count int64
}

func newProgressBar(w io.Writer, label string, width int, total int64) *progressBar {
	return &progressBar{w: w, label: label, width: width, total: total}
}

// Increment advances the counter by one and redraws the bar.
func (p *progressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	p.render()
}

func (p *progressBar) render() {
	total := p.total
	if total == 0 {
		total = 1
	}
	pct := int(float64(p.count) * 100.0 / float64(total))
	filled := int(float64(p.width) * float64(p.count) / float64(total))
	if filled > p.width {
		filled = p.width
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", p.width-filled)
	fmt.Fprintf(p.w, "\r%s: [%s] %3d%% (%d/%d)", p.label, bar, pct, p.count, p.total)
}

// Finish moves the cursor off the bar line.
func (p *progressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w)
}
