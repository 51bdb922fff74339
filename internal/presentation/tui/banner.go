package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Green Office Villas banner to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	// Jungle greens, darkest at the bottom.
	lines := []struct{ text, color string }{
		{"   ___                        ___   __  __ _          ", "#bbf7d0"},
		{"  / __|_ _ ___ ___ _ _       / _ \\ / _|/ _(_)__ ___   ", "#86efac"},
		{" | (_ | '_/ -_) -_) ' \\     | (_) |  _|  _| / _/ -_)  ", "#4ade80"},
		{"  \\___|_| \\___\\___|_||_|     \\___/|_| |_| |_\\__\\___|  ", "#22c55e"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	tag := out.String("  Villas retreat concierge " + strings.TrimSpace(version)).Faint()
	fmt.Fprintln(w, tag)
	fmt.Fprintln(w)
}
