package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders a research report through
// glamour. Styles follow the terminal background.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, err
	}

	return func(report string) (string, error) {
		return r.Render(ReportMarkdown(report))
	}, nil
}

// ReportMarkdown turns the plain report layout into markdown: the title
// becomes a heading, the rules become thematic breaks and findings keep
// their line breaks.
func ReportMarkdown(report string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimLeft(report, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "INTELLIGENCE REPORT:"):
			sb.WriteString("# " + line + "\n\n")
		case isRule(line, '='):
		case isRule(line, '-'):
			sb.WriteString("\n---\n\n")
		case line == "":
		default:
			// Two trailing spaces keep multi-line findings (news lists) intact.
			sb.WriteString(line + "  \n")
		}
	}
	return sb.String()
}

func isRule(line string, c byte) bool {
	if len(line) < 3 {
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] != c {
			return false
		}
	}
	return true
}
