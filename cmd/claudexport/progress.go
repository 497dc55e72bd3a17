package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// progressLine redraws a single status line on a terminal.
type progressLine struct {
	mu      sync.Mutex
	out     io.Writer
	width   func() int
	enabled bool
	drawn   bool
}

func newProgressLine(f *os.File) *progressLine {
	fd := int(f.Fd())
	return &progressLine{
		out:     f,
		enabled: term.IsTerminal(fd),
		width: func() int {
			w, _, err := term.GetSize(fd)
			if err != nil || w <= 0 {
				return 80
			}
			return w
		},
	}
}

// Update implements exporter.ProgressFunc.
func (p *progressLine) Update(completed, total int, text, detail string) {
	if !p.enabled {
		return
	}
	line := formatProgress(completed, total, text, detail, p.width())

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, "\r"+line+ansi.EraseLineRight)
	p.drawn = true
}

// Done clears the line.
func (p *progressLine) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprint(p.out, "\r"+ansi.EraseLineRight)
		p.drawn = false
	}
}

func formatProgress(completed, total int, text, detail string, width int) string {
	pct := 0
	if total > 0 {
		pct = completed * 100 / total
	}
	line := fmt.Sprintf("[%3d%%] %s", pct, text)
	if detail != "" {
		line += " · " + detail
	}
	return ansi.Truncate(line, width-1, "…")
}
