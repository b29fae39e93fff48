package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Grapher ASCII banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"   ____                 _               ", "#34d399"},
		{"  / ___|_ __ __ _ _ __ | |__   ___ _ __ ", "#2dd4bf"},
		{" | |  _| '__/ _` | '_ \\| '_ \\ / _ \\ '__|", "#22d3ee"},
		{" | |_| | | | (_| | |_) | | | |  __/ |   ", "#38bdf8"},
		{"  \\____|_|  \\__,_| .__/|_| |_|\\___|_|   ", "#60a5fa"},
		{"                 |_|                    ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
