package model

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Priority bounds for rules.
const (
	MinPriority     = 1
	MaxPriority     = 100
	DefaultPriority = 50
)

// SystemRuleIDPrefix marks built-in rule ids.
const SystemRuleIDPrefix = "system_"

// AutoRule is a named, prioritized conditional rule.
type AutoRule struct {
	CreatedAt      time.Time       `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt" yaml:"updatedAt"`
	LastAppliedAt  *time.Time      `json:"lastAppliedAt,omitempty" yaml:"lastAppliedAt,omitempty"`
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	ConditionLogic ConditionLogic  `json:"conditionLogic" yaml:"conditionLogic"`
	Marketplaces   []string        `json:"marketplaces" yaml:"marketplaces"`
	Conditions     []RuleCondition `json:"conditions" yaml:"conditions"`
	Actions        Actions         `json:"actions" yaml:"actions"`
	Priority       int             `json:"priority" yaml:"priority"`
	TotalImpact    decimal.Decimal `json:"totalImpact" yaml:"-"`
	MatchCount     int             `json:"matchCount,omitempty" yaml:"matchCount,omitempty"`
	Enabled        bool            `json:"enabled" yaml:"enabled"`
	StopOnMatch    bool            `json:"stopOnMatch" yaml:"stopOnMatch"`
	IsSystemRule   bool            `json:"isSystemRule" yaml:"isSystemRule"`
}

// IsSystemRuleID reports whether id names a built-in rule.
func IsSystemRuleID(id string) bool {
	return strings.HasPrefix(id, SystemRuleIDPrefix)
}

// AppliesTo reports whether the rule is in scope for a processing scope.
// A rule without marketplaces applies everywhere, and scope "all" selects every rule.
func (r AutoRule) AppliesTo(scope string) bool {
	scope = NormalizeScope(scope)
	if scope == ScopeAll || len(r.Marketplaces) == 0 {
		return true
	}
	for _, m := range r.Marketplaces {
		m = strings.ToLower(m)
		if m == scope || m == ScopeAll {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the rule.
func (r AutoRule) Clone() AutoRule {
	out := r
	out.Marketplaces = slices.Clone(r.Marketplaces)
	out.Conditions = make([]RuleCondition, len(r.Conditions))
	for i, c := range r.Conditions {
		if c.Value2 != nil {
			v2 := *c.Value2
			c.Value2 = &v2
		}
		out.Conditions[i] = c
	}
	out.Actions = r.Actions.Clone()
	if r.LastAppliedAt != nil {
		t := *r.LastAppliedAt
		out.LastAppliedAt = &t
	}
	return out
}

// RuleDraft is an authored rule before sanitization. Optional booleans are
// pointers so that "unset" can be told apart from false.
type RuleDraft struct {
	Enabled        *bool           `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	StopOnMatch    *bool           `json:"stopOnMatch,omitempty" yaml:"stopOnMatch,omitempty"`
	Name           string          `json:"name" yaml:"name"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	ConditionLogic ConditionLogic  `json:"conditionLogic,omitempty" yaml:"conditionLogic,omitempty"`
	Marketplaces   []string        `json:"marketplaces,omitempty" yaml:"marketplaces,omitempty"`
	Conditions     []RuleCondition `json:"conditions" yaml:"conditions"`
	Actions        Actions         `json:"actions" yaml:"actions"`
	Priority       int             `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// ToRule builds a rule from the draft. The draft is expected to be sanitized.
func (d RuleDraft) ToRule(id string, now time.Time) AutoRule {
	r := AutoRule{
		ID:             id,
		Name:           d.Name,
		Description:    d.Description,
		Marketplaces:   slices.Clone(d.Marketplaces),
		Conditions:     slices.Clone(d.Conditions),
		ConditionLogic: d.ConditionLogic,
		Actions:        d.Actions.Clone(),
		Priority:       d.Priority,
		Enabled:        true,
		IsSystemRule:   IsSystemRuleID(id),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if r.ConditionLogic == "" {
		r.ConditionLogic = LogicAnd
	}
	if d.Enabled != nil {
		r.Enabled = *d.Enabled
	}
	if d.StopOnMatch != nil {
		r.StopOnMatch = *d.StopOnMatch
	}
	return r
}

// DraftFromRule returns the authored form of a rule.
func DraftFromRule(r AutoRule) RuleDraft {
	enabled, stop := r.Enabled, r.StopOnMatch
	return RuleDraft{
		Name:           r.Name,
		Description:    r.Description,
		Marketplaces:   slices.Clone(r.Marketplaces),
		Conditions:     slices.Clone(r.Conditions),
		ConditionLogic: r.ConditionLogic,
		Actions:        r.Actions.Clone(),
		Priority:       r.Priority,
		Enabled:        &enabled,
		StopOnMatch:    &stop,
	}
}

// SortByPriority stable-sorts rules, highest priority first.
func SortByPriority(rules []AutoRule) {
	slices.SortStableFunc(rules, func(a, b AutoRule) int {
		return b.Priority - a.Priority
	})
}
