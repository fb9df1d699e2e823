package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/spice-rules/internal/classification"
	"github.com/Veraticus/spice-rules/internal/engine"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/pattern"
	"github.com/charmbracelet/lipgloss"
)

const maxDescriptionWidth = 36

// ClassifiedPayment pairs a payment with its classification.
type ClassifiedPayment struct {
	Payment model.PaymentInput     `json:"payment"`
	Result  model.RuleEngineResult `json:"result"`
}

// Renderer writes human-readable output. A plain renderer emits no styling,
// for pipes and tests.
type Renderer struct {
	w     io.Writer
	plain bool
}

// NewRenderer creates a styled renderer.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// NewPlainRenderer creates a renderer that writes unstyled text.
func NewPlainRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, plain: true}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.plain || text == "" {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) println(lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(r.w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// table lays cells out in columns two spaces apart. Styling is applied after
// padding so escape codes do not skew the widths.
type table struct {
	header []string
	rows   [][]string
	cell   func(col int, text string) string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(r *Renderer) []string {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, styleFn func(int, string) string) string {
		var b strings.Builder
		for i, cell := range cells {
			padded := cell
			if i < len(cells)-1 {
				padded += strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2)
			}
			if styleFn != nil {
				padded = styleFn(i, padded)
			}
			b.WriteString(padded)
		}
		return strings.TrimRight(b.String(), " ")
	}

	out := make([]string, 0, len(t.rows)+1)
	out = append(out, line(t.header, func(_ int, s string) string { return r.style(HeaderStyle, s) }))
	for _, row := range t.rows {
		out = append(out, line(row, t.cell))
	}
	return out
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func flow(res model.RuleEngineResult) string {
	switch {
	case res.IsExpense:
		return "saída"
	case res.IsIncome:
		return "entrada"
	default:
		return "-"
	}
}

func notes(res model.RuleEngineResult) string {
	var parts []string
	if res.Skipped {
		parts = append(parts, "ignorar")
	}
	if res.FlaggedForReview {
		if res.ReviewNote != "" {
			parts = append(parts, "revisar: "+res.ReviewNote)
		} else {
			parts = append(parts, "revisar")
		}
	}
	if res.Category != "" {
		parts = append(parts, "categoria: "+res.Category)
	}
	return orDash(strings.Join(parts, "; "))
}

// Results prints one line per classified payment and a summary line.
func (r *Renderer) Results(rows []ClassifiedPayment) error {
	t := &table{header: []string{"PEDIDO", "DESCRIÇÃO", "VALOR", "TAGS", "FLUXO", "OBSERVAÇÕES"}}
	var classified, review int
	for _, row := range rows {
		res := row.Result
		if len(res.Tags) > 0 || len(res.MatchedRuleIDs()) > 0 {
			classified++
		}
		if res.FlaggedForReview {
			review++
		}
		t.add(
			orDash(row.Payment.MarketplaceOrderID),
			truncate(orDash(row.Payment.TransactionDescription), maxDescriptionWidth),
			row.Payment.Amount.StringFixed(2),
			orDash(strings.Join(res.Tags, ", ")),
			flow(res),
			notes(res),
		)
	}
	t.cell = func(col int, s string) string {
		switch col {
		case 3:
			return r.style(TagStyle, s)
		case 5:
			if strings.TrimSpace(s) != "-" {
				return r.style(ReviewStyle, s)
			}
		}
		return s
	}

	lines := t.render(r)
	lines = append(lines, "", r.style(SubtleStyle,
		fmt.Sprintf("%d pagamentos, %d classificados, %d para revisão", len(rows), classified, review)))
	return r.println(lines...)
}

func describeCondition(c model.ConditionEvalResult) string {
	return fmt.Sprintf("%s %s %q", pattern.FieldLabel(c.Field), pattern.OperatorLabel(c.Operator), c.ExpectedValue.String())
}

// Trace prints the full rule walk of one payment.
func (r *Renderer) Trace(payment model.PaymentInput, res model.RuleEngineResult) error {
	lines := []string{
		r.style(TitleStyle, fmt.Sprintf("Pedido %s · %s · %s",
			orDash(payment.MarketplaceOrderID), orDash(payment.TransactionDescription), payment.Amount.StringFixed(2))),
	}

	for _, m := range res.MatchedRules {
		mark := r.style(MissStyle, MissIcon)
		if m.Matched {
			mark = r.style(MatchStyle, MatchIcon)
		}
		lines = append(lines, fmt.Sprintf("%s [%s] %s (%d/%d)", mark, m.RuleID, m.RuleName, m.MatchedConditions, m.TotalConditions))

		for _, c := range m.ConditionResults {
			cm := r.style(SubtleStyle, MissIcon)
			if c.Matched {
				cm = r.style(MatchStyle, MatchIcon)
			}
			lines = append(lines, fmt.Sprintf("    %s %s ← %q", cm, describeCondition(c), c.ActualValue))
		}
		for _, a := range m.AppliedActions {
			lines = append(lines, "    → "+engine.DescribeAction(a))
		}
		if m.StoppedProcessing {
			lines = append(lines, "    "+r.style(ReviewStyle, StopIcon+" avaliação interrompida"))
		}
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Tags: %s", r.style(TagStyle, orDash(strings.Join(res.Tags, ", ")))),
		fmt.Sprintf("Fluxo: %s", flow(res)),
		fmt.Sprintf("Observações: %s", notes(res)),
		r.style(SubtleStyle, fmt.Sprintf("Regras avaliadas: %d", res.TotalRulesEvaluated)),
	)
	return r.println(lines...)
}

// Rules prints a rule listing.
func (r *Renderer) Rules(rules []model.AutoRule) error {
	t := &table{header: []string{"PRIOR.", "ID", "NOME", "MARKETPLACES", "ATIVA", "USOS"}}
	for _, rule := range rules {
		active := "sim"
		if !rule.Enabled {
			active = "não"
		}
		marketplaces := strings.Join(rule.Marketplaces, ",")
		if model.CoversAllMarketplaces(rule.Marketplaces) {
			marketplaces = model.ScopeAll
		}
		uses := fmt.Sprintf("%d", rule.MatchCount)
		if rule.IsSystemRule {
			uses = "sistema"
		}
		t.add(fmt.Sprintf("%d", rule.Priority), rule.ID, rule.Name, marketplaces, active, uses)
	}
	t.cell = func(col int, s string) string {
		if col == 1 {
			return r.style(SubtleStyle, s)
		}
		return s
	}

	lines := t.render(r)
	lines = append(lines, "", r.style(SubtleStyle, fmt.Sprintf("%d regras", len(rules))))
	return r.println(lines...)
}

// Rule prints every field of one rule.
func (r *Renderer) Rule(rule model.AutoRule) error {
	lines := []string{
		r.style(TitleStyle, rule.Name) + " " + r.style(SubtleStyle, "["+rule.ID+"]"),
	}
	if rule.Description != "" {
		lines = append(lines, rule.Description)
	}
	lines = append(lines,
		fmt.Sprintf("Prioridade: %d", rule.Priority),
		fmt.Sprintf("Marketplaces: %s", strings.Join(rule.Marketplaces, ", ")),
		fmt.Sprintf("Ativa: %t · Para na correspondência: %t · Sistema: %t", rule.Enabled, rule.StopOnMatch, rule.IsSystemRule),
		fmt.Sprintf("Condições (%s):", rule.ConditionLogic),
	)
	for _, c := range rule.Conditions {
		line := fmt.Sprintf("  - %s %s %q", pattern.FieldLabel(c.Field), pattern.OperatorLabel(c.Operator), c.Value.String())
		if c.Value2 != nil {
			line += fmt.Sprintf(" e %q", c.Value2.String())
		}
		lines = append(lines, line)
	}
	lines = append(lines, "Ações:")
	for _, a := range rule.Actions {
		lines = append(lines, "  - "+engine.DescribeAction(a))
	}
	if !rule.IsSystemRule {
		lines = append(lines, r.style(SubtleStyle, fmt.Sprintf("Usos: %d · Impacto: %s", rule.MatchCount, rule.TotalImpact.StringFixed(2))))
	}
	return r.println(lines...)
}

// Simulation prints the outcome of a simulated rule.
func (r *Renderer) Simulation(report engine.SimulationReport) error {
	s := report.Summary
	lines := []string{
		r.style(TitleStyle, "Simulação: "+report.Rule.Name),
		fmt.Sprintf("%d de %d pagamentos correspondem (%d%%)", s.Matched, s.Tested, s.MatchRate),
		fmt.Sprintf("Impacto total: %s · Média por correspondência: %s", s.TotalImpact.StringFixed(2), s.AvgImpactPerMatch.StringFixed(2)),
	}
	for _, res := range report.Results {
		if !res.Matched {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s %s · %s · %s",
			r.style(MatchStyle, MatchIcon),
			orDash(res.Payment.MarketplaceOrderID),
			truncate(orDash(res.Payment.TransactionDescription), maxDescriptionWidth),
			res.Payment.Amount.StringFixed(2)))
	}
	return r.println(lines...)
}

// Lint prints lint warnings.
func (r *Renderer) Lint(warnings []model.LintWarning) error {
	if len(warnings) == 0 {
		return r.println(r.style(MatchStyle, MatchIcon+" Nenhum problema encontrado"))
	}
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			r.style(ReviewStyle, ReviewIcon),
			r.style(SubtleStyle, "["+string(w.Kind)+"]"),
			w.Message))
	}
	return r.println(lines...)
}

// History prints audit entries.
func (r *Renderer) History(entries []model.AuditEntry) error {
	t := &table{header: []string{"QUANDO", "AÇÃO", "REGRA", "NOME", "MOTIVO"}}
	for _, e := range entries {
		t.add(e.ChangedAt.Local().Format("2006-01-02 15:04"), string(e.Action), e.RuleID, orDash(e.RuleName), orDash(e.ChangeReason))
	}
	return r.println(t.render(r)...)
}

// Templates prints the rule templates grouped by category.
func (r *Renderer) Templates(category string) error {
	var lines []string
	for _, c := range classification.TemplateCategories() {
		if category != "" && string(c.ID) != category {
			continue
		}
		lines = append(lines, r.style(TitleStyle, c.Name))
		for _, tpl := range classification.TemplatesByCategory(c.ID) {
			lines = append(lines, fmt.Sprintf("  %s %s", r.style(HeaderStyle, tpl.ID), tpl.Name))
			lines = append(lines, "    "+r.style(SubtleStyle, tpl.Description))
		}
	}
	return r.println(lines...)
}
