package analysis

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Veraticus/spice-rules/internal/cli"
)

var severityLabels = map[Severity]string{
	SeverityInfo:     "INFO",
	SeverityWarning:  "ATENÇÃO",
	SeverityCritical: "CRÍTICO",
}

var typeLabels = map[AlertType]string{
	AlertHighFrequency: "Alta frequência",
	AlertLowFrequency:  "Baixa frequência",
	AlertHighImpact:    "Alto impacto",
	AlertDormant:       "Inativa",
}

// CLIFormatter renders anomaly reports for the terminal.
type CLIFormatter struct {
	styles *Styles
}

// NewCLIFormatter creates a formatter with the default styles.
func NewCLIFormatter() *CLIFormatter {
	return &CLIFormatter{styles: NewStyles()}
}

// WithWidth adapts the formatter to the terminal width.
func (f *CLIFormatter) WithWidth(width int) *CLIFormatter {
	return &CLIFormatter{styles: f.styles.WithWidth(width)}
}

// FormatReport renders the whole report.
func (f *CLIFormatter) FormatReport(report Report) string {
	sections := []string{
		f.styles.Title.Render(cli.SpiceIcon + " Anomalias de regras"),
		f.styles.Subtle.Render(fmt.Sprintf("%d regras analisadas · média de %d matches · janela de %d dias",
			report.Stats.TotalRules, report.Stats.AvgMatchCount, report.Stats.AnalyzedDays)),
	}

	if len(report.Alerts) == 0 {
		sections = append(sections, cli.MatchStyle.Render(cli.MatchIcon+" Nenhuma anomalia encontrada"))
		return strings.Join(sections, "\n")
	}

	alerts := make([]string, 0, len(report.Alerts))
	for _, a := range report.Alerts {
		alerts = append(alerts, f.FormatAlert(a))
	}
	sections = append(sections, "", strings.Join(alerts, "\n\n"), "", f.formatSummary(report.Summary))
	return strings.Join(sections, "\n")
}

// FormatAlert renders one alert.
func (f *CLIFormatter) FormatAlert(a Alert) string {
	label := severityLabels[a.Severity]
	if label == "" {
		label = strings.ToUpper(string(a.Severity))
	}

	lines := []string{
		fmt.Sprintf("%s %s %s",
			f.styles.ForSeverity(a.Severity).Render("["+label+"]"),
			a.RuleName,
			f.styles.Subtle.Render("("+a.RuleID+")")),
		"  " + typeLabel(a.Type) + ": " + a.Message,
	}
	if a.Type == AlertHighImpact {
		if pct, ok := a.Details["percentage"].(int); ok {
			lines = append(lines, "  "+f.styles.Bar.Render(ShareBar(float64(pct)/100, 20)))
		}
	}
	return strings.Join(lines, "\n")
}

func (f *CLIFormatter) formatSummary(s Summary) string {
	types := slices.Sorted(maps.Keys(s.ByType))
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s: %d", typeLabel(t), s.ByType[t]))
	}

	content := fmt.Sprintf("Total: %d\n%s", s.Total, strings.Join(parts, " · "))
	return f.styles.Box.Render(content)
}

func typeLabel(t AlertType) string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}
