package tui_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/Himanshu040604/PregelFlow/internal/presentation/tui"
	"github.com/Himanshu040604/PregelFlow/internal/research"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportMarkdown(t *testing.T) {
	report := research.Report("London", []string{
		"Weather in London: Clear, 15°C",
		"- Rain expected (BBC)\n- Tube strike (Guardian)",
	})

	md := tui.ReportMarkdown(report)
	assert.True(t, strings.HasPrefix(md, "# INTELLIGENCE REPORT: 'LONDON'\n\n"))
	assert.Equal(t, 2, strings.Count(md, "\n---\n"))
	assert.NotContains(t, md, "=====")
	assert.Contains(t, md, "- Rain expected (BBC)  \n- Tube strike (Guardian)  \n")
}

func TestNewRenderer(t *testing.T) {
	render, err := tui.NewRenderer()
	require.NoError(t, err)

	out, err := render(research.Report("Paris", []string{"Weather in Paris: Sunny, 21°C"}))
	require.NoError(t, err)
	assert.Contains(t, out, "Sunny")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3\n")
	assert.Contains(t, buf.String(), "v1.2.3\n")
}

func TestIsTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, tui.IsTerminal(f))
	assert.False(t, tui.IsTerminal(nil))
}
