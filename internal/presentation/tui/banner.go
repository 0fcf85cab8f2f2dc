package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// PrintBanner writes the startup banner to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Indigo to rose, one shade per line
	lines := []struct{ text, color string }{
		{" ___                  _ ___ _", "#818cf8"},
		{"| _ \\_ _ ___ __ _ ___| | __| |_____ __ __", "#a78bfa"},
		{"|  _/ '_/ -_) _` / -_) | _|| / _ \\ V  V /", "#e879f9"},
		{"|_| |_| \\___\\__, \\___|_|_| |_\\___/\\_/\\_/", "#f472b6"},
		{"            |___/", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  research workflow  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
