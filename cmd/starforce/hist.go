package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xtding233/starforce/internal/starforce"
)

// writeHistogram draws h as horizontal bars scaled to width characters.
func writeHistogram(w io.Writer, h starforce.Histogram, width int) {
	p := message.NewPrinter(language.English)
	peak := 0
	for _, c := range h.Counts {
		peak = max(peak, c)
	}
	labels := make([]string, len(h.Counts))
	labelWidth := 0
	for i := range h.Counts {
		labels[i] = p.Sprintf("%d", int64(math.Round(h.Edges[i])))
		labelWidth = max(labelWidth, len(labels[i]))
	}
	fmt.Fprintf(w, "HISTOGRAM (%s)\n", h.Metric)
	for i, c := range h.Counts {
		n := 0
		if peak > 0 {
			n = c * width / peak
		}
		fmt.Fprintf(w, "%*s | %s %d\n", labelWidth, labels[i], strings.Repeat("#", n), c)
	}
}
