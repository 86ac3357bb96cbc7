package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/user/nsenso/pkg/engine"
)

const (
	reportTitle     = "=== nSenso Security Scan Report ==="
	timestampLayout = "2006-01-02 15:04:05"
)

// Terminal colours per severity.
var severityColors = map[engine.Severity]lipgloss.Color{
	engine.Critical: lipgloss.Color("9"),  // Red
	engine.Warning:  lipgloss.Color("11"), // Yellow
	engine.Info:     lipgloss.Color("12"), // Blue
}

// TextReporter renders the narrative report: a header, then one section per
// non-empty severity with a bordered panel per finding.
type TextReporter struct {
	Color bool
}

// Render writes the text report for res to w.
func (r *TextReporter) Render(w io.Writer, res *engine.ScanResult) error {
	renderer := lipgloss.NewRenderer(w)
	if !r.Color {
		renderer.SetColorProfile(termenv.Ascii)
	}
	titleStyle := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	labelStyle := renderer.NewStyle().Bold(true)

	var sb strings.Builder
	sb.WriteString("\n" + titleStyle.Render(reportTitle) + "\n")
	sb.WriteString(fmt.Sprintf("Scan completed at: %s\n", res.CompletedAt().Format(timestampLayout)))
	sb.WriteString(fmt.Sprintf("Findings: %d critical, %d warning, %d info\n",
		res.Count(engine.Critical), res.Count(engine.Warning), res.Count(engine.Info)))

	for _, sev := range engine.Severities() {
		findings := res.Findings(sev)
		if len(findings) == 0 {
			continue
		}
		color := severityColors[sev]
		heading := renderer.NewStyle().Bold(true).Foreground(color)
		panel := renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(color).
			Padding(0, 1).
			TabWidth(lipgloss.NoTabConversion)

		label := strings.ToUpper(sev.String())
		sb.WriteString("\n" + heading.Render(label+" FINDINGS:") + "\n")
		for _, f := range findings {
			body := strings.Join([]string{
				heading.Render(label + " Issue"),
				labelStyle.Render("Type:") + " " + f.Kind(),
				labelStyle.Render("Description:") + " " + f.Description(),
				labelStyle.Render("Command:") + " " + f.Command(),
				labelStyle.Render("Remediation:") + " " + f.Remediation(),
			}, "\n")
			sb.WriteString(panel.Render(body) + "\n")
		}
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}
