package model

import (
	"slices"
	"time"
)

// ConditionEvalResult records how one condition evaluated against one payment.
type ConditionEvalResult struct {
	ConditionID   string            `json:"conditionId"`
	Field         ConditionField    `json:"field"`
	Operator      ConditionOperator `json:"operator"`
	ExpectedValue ConditionValue    `json:"expectedValue"`
	ActualValue   string            `json:"actualValue"`
	Matched       bool              `json:"matched"`
}

// RuleMatchResult is the trace entry of one walked rule.
type RuleMatchResult struct {
	RuleID            string                `json:"ruleId"`
	RuleName          string                `json:"ruleName"`
	ConditionResults  []ConditionEvalResult `json:"conditionResults"`
	AppliedActions    Actions               `json:"appliedActions"`
	MatchedConditions int                   `json:"matchedConditions"`
	TotalConditions   int                   `json:"totalConditions"`
	Matched           bool                  `json:"matched"`
	StoppedProcessing bool                  `json:"stoppedProcessing"`
}

// RuleEngineResult is the folded outcome of processing one payment.
type RuleEngineResult struct {
	TransactionType        string            `json:"transactionType,omitempty"`
	TransactionDescription string            `json:"transactionDescription,omitempty"`
	Category               string            `json:"category,omitempty"`
	ReviewNote             string            `json:"reviewNote,omitempty"`
	Tags                   []string          `json:"tags"`
	MatchedRules           []RuleMatchResult `json:"matchedRules"`
	TotalRulesEvaluated    int               `json:"totalRulesEvaluated"`
	ProcessingTime         time.Duration     `json:"processingTime"`
	IsExpense              bool              `json:"isExpense"`
	IsIncome               bool              `json:"isIncome"`
	Skipped                bool              `json:"skipped"`
	FlaggedForReview       bool              `json:"flaggedForReview"`
}

// NewRuleEngineResult returns an empty result with non-nil collections.
func NewRuleEngineResult() RuleEngineResult {
	return RuleEngineResult{
		Tags:         []string{},
		MatchedRules: []RuleMatchResult{},
	}
}

// AddTag appends tag unless it is already present.
func (r *RuleEngineResult) AddTag(tag string) {
	if !slices.Contains(r.Tags, tag) {
		r.Tags = append(r.Tags, tag)
	}
}

// HasTag reports whether tag was applied.
func (r RuleEngineResult) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// MatchedRuleIDs returns the ids of rules that matched, in walk order.
func (r RuleEngineResult) MatchedRuleIDs() []string {
	var ids []string
	for _, m := range r.MatchedRules {
		if m.Matched {
			ids = append(ids, m.RuleID)
		}
	}
	return ids
}

// Clone returns a deep copy of the result.
func (r RuleEngineResult) Clone() RuleEngineResult {
	out := r
	out.Tags = slices.Clone(r.Tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	out.MatchedRules = make([]RuleMatchResult, len(r.MatchedRules))
	for i, m := range r.MatchedRules {
		m.ConditionResults = slices.Clone(m.ConditionResults)
		m.AppliedActions = m.AppliedActions.Clone()
		out.MatchedRules[i] = m
	}
	return out
}
