package pattern

import (
	"fmt"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/agnivade/levenshtein"
)

// similarNameDistance is the largest edit distance at which two rule names
// are reported as look-alikes.
const similarNameDistance = 2

// Lint reports interactions between rules that are legal but likely
// unintended. Disabled rules are ignored.
func (v *Validator) Lint(rules []model.AutoRule) []model.LintWarning {
	enabled := make([]model.AutoRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	model.SortByPriority(enabled)

	var warnings []model.LintWarning
	warnings = append(warnings, lintDirectionOverrides(enabled)...)
	warnings = append(warnings, lintSimilarNames(enabled)...)
	warnings = append(warnings, lintSignatures(enabled)...)
	return warnings
}

// netDirection is the expense/income action a rule leaves in effect.
func netDirection(actions model.Actions) model.ActionType {
	var last model.ActionType
	for _, a := range actions {
		switch a.(type) {
		case model.MarkExpense, model.MarkIncome:
			last = a.Type()
		}
	}
	return last
}

// lintDirectionOverrides flags a lower-priority rule whose expense/income mark
// overwrites the opposite mark of an earlier rule that does not stop processing.
func lintDirectionOverrides(sorted []model.AutoRule) []model.LintWarning {
	var warnings []model.LintWarning
	for i, first := range sorted {
		d1 := netDirection(first.Actions)
		if d1 == "" || first.StopOnMatch {
			continue
		}
		for _, later := range sorted[i+1:] {
			d2 := netDirection(later.Actions)
			if d2 == "" || d2 == d1 || !model.MarketplacesOverlap(first.Marketplaces, later.Marketplaces) {
				continue
			}
			warnings = append(warnings, model.LintWarning{
				Kind:    model.LintExpenseIncomeOverride,
				RuleIDs: []string{first.ID, later.ID},
				Message: fmt.Sprintf("%q (priority %d) applies %s, but %q (priority %d) runs later and applies %s; when both match the later one wins",
					first.Name, first.Priority, d1, later.Name, later.Priority, d2),
			})
		}
	}
	return warnings
}

func lintSimilarNames(rules []model.AutoRule) []model.LintWarning {
	var warnings []model.LintWarning
	for i := range rules {
		a := NormalizeText(rules[i].Name)
		for j := i + 1; j < len(rules); j++ {
			b := NormalizeText(rules[j].Name)
			if levenshtein.ComputeDistance(a, b) > similarNameDistance {
				continue
			}
			warnings = append(warnings, model.LintWarning{
				Kind:    model.LintSimilarName,
				RuleIDs: []string{rules[i].ID, rules[j].ID},
				Message: fmt.Sprintf("rule names %q and %q are nearly identical", rules[i].Name, rules[j].Name),
			})
		}
	}
	return warnings
}

func lintSignatures(rules []model.AutoRule) []model.LintWarning {
	sigs := make([]string, len(rules))
	acts := make([]string, len(rules))
	for i, r := range rules {
		sigs[i] = RuleSignature(r.ConditionLogic, r.Conditions)
		acts[i] = ActionsSignature(r.Actions)
	}

	var warnings []model.LintWarning
	for i := range rules {
		for j := i + 1; j < len(rules); j++ {
			if sigs[i] != sigs[j] {
				continue
			}
			ids := []string{rules[i].ID, rules[j].ID}
			switch {
			case acts[i] == acts[j]:
				warnings = append(warnings, model.LintWarning{
					Kind:    model.LintDuplicateRule,
					RuleIDs: ids,
					Message: fmt.Sprintf("%q and %q have the same conditions and actions", rules[i].Name, rules[j].Name),
				})
			case model.MarketplacesOverlap(rules[i].Marketplaces, rules[j].Marketplaces):
				warnings = append(warnings, model.LintWarning{
					Kind:    model.LintConflictingRule,
					RuleIDs: ids,
					Message: fmt.Sprintf("%q and %q have the same conditions but different actions", rules[i].Name, rules[j].Name),
				})
			}
		}
	}
	return warnings
}
