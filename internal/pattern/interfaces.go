// Package pattern evaluates rule conditions against payments and checks
// authored rules before they are stored.
package pattern

import "github.com/Veraticus/spice-rules/internal/model"

// RuleChecker validates and normalizes authored rules.
type RuleChecker interface {
	// Validate lists every problem in a draft.
	Validate(draft model.RuleDraft) model.ValidationResult
	// Sanitize returns a normalized copy of a draft.
	Sanitize(draft model.RuleDraft) model.RuleDraft
	// ValidateUnique reports a name already used by another rule.
	ValidateUnique(draft model.RuleDraft, existing []model.AutoRule, selfID string) model.ValidationResult
	// Lint reports likely unintended interactions between rules.
	Lint(rules []model.AutoRule) []model.LintWarning
}

var _ RuleChecker = (*Validator)(nil)
