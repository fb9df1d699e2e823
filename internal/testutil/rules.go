package testutil

import (
	"time"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/shopspring/decimal"
)

// RuleBuilder assembles rules for tests.
//
//	rule := testutil.NewRule("frete").
//		Contains(model.FieldDescription, "frete").
//		Tags("frete").
//		Priority(70).
//		Build()
type RuleBuilder struct {
	rule model.AutoRule
}

// NewRule starts an enabled AND rule scoped to every marketplace.
func NewRule(id string) *RuleBuilder {
	created := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
	return &RuleBuilder{rule: model.AutoRule{
		ID:             id,
		Name:           "Regra " + id,
		Marketplaces:   model.KnownMarketplaces(),
		ConditionLogic: model.LogicAnd,
		Priority:       model.DefaultPriority,
		Enabled:        true,
		IsSystemRule:   model.IsSystemRuleID(id),
		CreatedAt:      created,
		UpdatedAt:      created,
	}}
}

// Named sets the rule name.
func (b *RuleBuilder) Named(name string) *RuleBuilder {
	b.rule.Name = name
	return b
}

// Scope sets the marketplaces.
func (b *RuleBuilder) Scope(marketplaces ...string) *RuleBuilder {
	b.rule.Marketplaces = marketplaces
	return b
}

// Or switches the rule to OR logic.
func (b *RuleBuilder) Or() *RuleBuilder {
	b.rule.ConditionLogic = model.LogicOr
	return b
}

// Priority sets the priority.
func (b *RuleBuilder) Priority(p int) *RuleBuilder {
	b.rule.Priority = p
	return b
}

// Disabled marks the rule disabled.
func (b *RuleBuilder) Disabled() *RuleBuilder {
	b.rule.Enabled = false
	return b
}

// StopOnMatch makes the rule halt evaluation when it matches.
func (b *RuleBuilder) StopOnMatch() *RuleBuilder {
	b.rule.StopOnMatch = true
	return b
}

// Condition appends a condition.
func (b *RuleBuilder) Condition(field model.ConditionField, op model.ConditionOperator, value model.ConditionValue) *RuleBuilder {
	b.rule.Conditions = append(b.rule.Conditions, model.RuleCondition{
		ID:       b.rule.ID + "_cond_" + string(rune('a'+len(b.rule.Conditions))),
		Field:    field,
		Operator: op,
		Value:    value,
	})
	return b
}

// Contains appends a contains condition.
func (b *RuleBuilder) Contains(field model.ConditionField, value string) *RuleBuilder {
	return b.Condition(field, model.OperatorContains, model.TextValue(value))
}

// AmountAbove appends an amount greater_than condition.
func (b *RuleBuilder) AmountAbove(limit float64) *RuleBuilder {
	return b.Condition(model.FieldAmount, model.OperatorGreaterThan, model.NumberValue(limit))
}

// Action appends actions.
func (b *RuleBuilder) Action(actions ...model.RuleAction) *RuleBuilder {
	b.rule.Actions = append(b.rule.Actions, actions...)
	return b
}

// Tags appends an add_tags action.
func (b *RuleBuilder) Tags(tags ...string) *RuleBuilder {
	return b.Action(model.AddTags{Tags: tags})
}

// Usage sets usage metrics.
func (b *RuleBuilder) Usage(matches int, impact string, lastApplied *time.Time) *RuleBuilder {
	b.rule.MatchCount = matches
	b.rule.TotalImpact = decimal.RequireFromString(impact)
	b.rule.LastAppliedAt = lastApplied
	return b
}

// CreatedAt sets both timestamps.
func (b *RuleBuilder) CreatedAt(t time.Time) *RuleBuilder {
	b.rule.CreatedAt = t
	b.rule.UpdatedAt = t
	return b
}

// Build returns a copy of the rule.
func (b *RuleBuilder) Build() model.AutoRule {
	return b.rule.Clone()
}

// Draft returns the rule in authored form.
func (b *RuleBuilder) Draft() model.RuleDraft {
	return model.DraftFromRule(b.rule)
}
