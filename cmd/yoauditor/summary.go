package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/martinemde/yoauditor/report"
)

var severityColors = map[report.Severity]lipgloss.Color{
	report.SeverityCritical: lipgloss.Color("9"),
	report.SeverityHigh:     lipgloss.Color("208"),
	report.SeverityMedium:   lipgloss.Color("11"),
	report.SeverityLow:      lipgloss.Color("10"),
}

// printSummary writes one block per audited target. Colors are only
// emitted when w is a color-capable terminal.
func printSummary(w io.Writer, outcomes []*outcome) {
	re := lipgloss.NewRenderer(w)
	title := re.NewStyle().Bold(true)
	dim := re.NewStyle().Faint(true)
	box := re.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	for _, o := range outcomes {
		if o == nil {
			continue
		}
		m := o.report.Metadata
		var b strings.Builder
		b.WriteString(title.Render(m.Repository))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %d files, %d issues, %s in %.1fs\n",
			dim.Render("analyzed"), m.FilesAnalyzed, m.TotalIssues, m.Termination, m.DurationSeconds)

		counts := make([]string, 0, len(report.Severities))
		for _, sev := range report.Severities {
			style := re.NewStyle().Foreground(severityColors[sev])
			counts = append(counts, style.Render(fmt.Sprintf("%s %d", sev.Label(), o.report.Summary.Count(sev))))
		}
		b.WriteString(strings.Join(counts, "  "))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s", dim.Render("report"), o.path)

		fmt.Fprintln(w, box.Render(b.String()))
	}
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(w io.Writer, md string, log *zap.Logger) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		var out string
		if out, err = renderer.Render(md); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	log.Debug("markdown rendering failed, printing raw report", zap.Error(err))
	fmt.Fprint(w, md)
}
