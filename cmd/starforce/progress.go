package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const barWidth = 30

// progressBar redraws one line in place with a carriage return.
type progressBar struct {
	mu   sync.Mutex
	w    io.Writer
	p    *message.Printer
	last int
	used bool
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w, p: message.NewPrinter(language.English), last: -1}
}

// Update implements starforce.ProgressFunc.
func (b *progressBar) Update(done, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if done == b.last {
		return
	}
	b.last = done
	b.used = true
	fmt.Fprint(b.w, "\r"+b.line(done, total))
}

// Done ends the line if anything was drawn.
func (b *progressBar) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used {
		fmt.Fprintln(b.w)
	}
}

func (b *progressBar) line(done, total int) string {
	frac := 0.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	filled := int(frac * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}
	return b.p.Sprintf("[%s] %5.1f%% %d/%d", bar, frac*100, done, total)
}
