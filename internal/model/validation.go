package model

import "strings"

// ValidationCode classifies a validation problem.
type ValidationCode string

// Validation codes.
const (
	CodeRequired      ValidationCode = "REQUIRED"
	CodeInvalidRegex  ValidationCode = "INVALID_REGEX"
	CodeInvalidValue  ValidationCode = "INVALID_VALUE"
	CodeDuplicateName ValidationCode = "DUPLICATE_NAME"
)

// ValidationError is a single problem found in a rule draft.
type ValidationError struct {
	Field   string         `json:"field"`
	Message string         `json:"message"`
	Code    ValidationCode `json:"code"`
}

// ValidationResult lists every problem found in a draft.
type ValidationResult struct {
	Errors []ValidationError `json:"errors"`
	Valid  bool              `json:"valid"`
}

// Messages returns the error messages joined by "; ".
func (v ValidationResult) Messages() string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// HasCode reports whether any error carries code.
func (v ValidationResult) HasCode(code ValidationCode) bool {
	for _, e := range v.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// LintKind classifies a lint warning over a rule set.
type LintKind string

// Lint kinds.
const (
	LintExpenseIncomeOverride LintKind = "expense_income_override"
	LintSimilarName           LintKind = "similar_name"
	LintDuplicateRule         LintKind = "duplicate_rule"
	LintConflictingRule       LintKind = "conflicting_rule"
)

// LintWarning is an advisory finding about how rules interact.
type LintWarning struct {
	Kind    LintKind `json:"kind"`
	Message string   `json:"message"`
	RuleIDs []string `json:"ruleIds"`
}
