package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIFormatter_FormatReport(t *testing.T) {
	formatter := NewCLIFormatter()

	tests := []struct {
		name        string
		report      Report
		contains    []string
		notContains []string
	}{
		{
			name:        "no alerts",
			report:      DetectAnomalies(nil, now, 30),
			contains:    []string{"Anomalias de regras", "Nenhuma anomalia encontrada", "janela de 30 dias"},
			notContains: []string{"Total:"},
		},
		{
			name: "with alerts",
			report: DetectAnomalies([]RuleStats{
				stat("big", 10, 600, 3, 0),
				stat("mid", 10, 350, 3, 0),
				stat("small", 10, 100, 3, 0),
			}, now, 30),
			contains: []string{
				"[ATENÇÃO]",
				"[INFO]",
				"Regra big",
				"(big)",
				"Alto impacto: Esta regra representa 57% do impacto financeiro total",
				"Total: 2",
				"Alto impacto: 2",
				"3 regras analisadas",
			},
			notContains: []string{"Nenhuma anomalia"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatter.FormatReport(tt.report)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestCLIFormatter_FormatAlert(t *testing.T) {
	out := NewCLIFormatter().FormatAlert(Alert{
		RuleID:   "r1",
		RuleName: "Frete loja",
		Type:     AlertHighImpact,
		Severity: SeverityWarning,
		Message:  "Esta regra representa 75% do impacto financeiro total",
		Details:  map[string]any{"percentage": 75},
	})

	assert.Contains(t, out, "Frete loja")
	assert.Contains(t, out, strings.Repeat("█", 15)+strings.Repeat("░", 5))
}

func TestShareBar(t *testing.T) {
	tests := []struct {
		name  string
		want  string
		share float64
		width int
	}{
		{name: "half", share: 0.5, width: 10, want: "█████░░░░░"},
		{name: "overflow", share: 2, width: 4, want: "████"},
		{name: "negative", share: -1, width: 4, want: "░░░░"},
		{name: "default width", share: 0, width: 0, want: strings.Repeat("░", 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShareBar(tt.share, tt.width))
		})
	}
}

func TestStyles_ForSeverity(t *testing.T) {
	s := NewStyles()
	assert.Equal(t, s.Warning, s.ForSeverity(SeverityWarning))
	assert.Equal(t, s.Info, s.ForSeverity(SeverityInfo))
	assert.Equal(t, s.Critical, s.ForSeverity(SeverityCritical))
	assert.Equal(t, s.Normal, s.ForSeverity("other"))
}
