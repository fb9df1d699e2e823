// Package classification holds the built-in rules and the rule templates
// offered to users as starting points.
package classification

import (
	"strings"
	"time"

	"github.com/Veraticus/spice-rules/internal/model"
)

// systemRulesCreatedAt is the fixed creation time of every built-in rule.
var systemRulesCreatedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// SystemRuleID derives the stable id of a built-in rule from its slug.
func SystemRuleID(slug string) string {
	return model.SystemRuleIDPrefix + strings.Join(strings.Fields(strings.ToLower(slug)), "_")
}

type systemRule struct {
	slug        string
	name        string
	description string
	condID      string
	operator    model.ConditionOperator
	value       string
	actions     model.Actions
	priority    int
}

// systemRuleDefs lists the built-in rules, highest priority first. Every rule
// matches the full text of a payment and never stops processing.
var systemRuleDefs = []systemRule{
	// Refunds and chargebacks
	{
		slug:        "reembolso",
		name:        "Reembolso",
		description: "Detecta reembolsos, devoluções e estornos",
		condID:      "cond_refund_1",
		operator:    model.OperatorRegex,
		value:       `reembolso|devolu[çc][ãa]o|estorno|chargeback`,
		actions:     model.Actions{model.AddTags{Tags: []string{"reembolso"}}},
		priority:    100,
	},
	// Adjustments
	{
		slug:        "ajuste",
		name:        "Ajuste",
		description: "Detecta ajustes, compensações e correções",
		condID:      "cond_adjust_1",
		operator:    model.OperatorRegex,
		value:       `ajuste|compensa[çc][ãa]o|corre[çc][ãa]o`,
		actions:     model.Actions{model.AddTags{Tags: []string{"ajuste"}}},
		priority:    90,
	},
	// Advertising
	{
		slug:        "marketing_ads",
		name:        "Marketing e ADS",
		description: "Detecta gastos com publicidade e anúncios",
		condID:      "cond_ads_1",
		operator:    model.OperatorRegex,
		value:       `ads|an[úu]ncio|publicidade|recarga.*compra.*ads`,
		actions:     model.Actions{model.AddTags{Tags: []string{"marketing", "ads"}}, model.MarkExpense{}},
		priority:    85,
	},
	// Fees
	{
		slug:        "taxas",
		name:        "Taxas e Tarifas",
		description: "Detecta taxas, tarifas e comissões",
		condID:      "cond_fee_1",
		operator:    model.OperatorRegex,
		value:       `taxa|tarifa|comiss[ãa]o|mdr`,
		actions:     model.Actions{model.AddTags{Tags: []string{"taxa"}}},
		priority:    80,
	},
	// Shipping
	{
		slug:        "frete",
		name:        "Frete",
		description: "Detecta cobranças de frete e envio",
		condID:      "cond_frete_1",
		operator:    model.OperatorContains,
		value:       "frete",
		actions:     model.Actions{model.AddTags{Tags: []string{"frete"}}},
		priority:    80,
	},
	// Withdrawals
	{
		slug:        "saque",
		name:        "Saque",
		description: "Detecta saques, retiradas e transferências",
		condID:      "cond_saque_1",
		operator:    model.OperatorRegex,
		value:       `saque|retirada|transfer[êe]ncia`,
		actions:     model.Actions{model.AddTags{Tags: []string{"saque", "retirada"}}, model.MarkExpense{}},
		priority:    70,
	},
	// Discounts
	{
		slug:        "desconto",
		name:        "Desconto",
		description: "Detecta descontos e cupons",
		condID:      "cond_desc_1",
		operator:    model.OperatorRegex,
		value:       `desconto|cupom|abatimento`,
		actions:     model.Actions{model.AddTags{Tags: []string{"desconto"}}},
		priority:    60,
	},
}

func (d systemRule) rule() model.AutoRule {
	return model.AutoRule{
		ID:           SystemRuleID(d.slug),
		Name:         d.name,
		Description:  d.description,
		Marketplaces: model.KnownMarketplaces(),
		Conditions: []model.RuleCondition{{
			ID:       d.condID,
			Field:    model.FieldFullText,
			Operator: d.operator,
			Value:    model.TextValue(d.value),
		}},
		ConditionLogic: model.LogicOr,
		Actions:        d.actions.Clone(),
		Priority:       d.priority,
		Enabled:        true,
		StopOnMatch:    false,
		IsSystemRule:   true,
		CreatedAt:      systemRulesCreatedAt,
		UpdatedAt:      systemRulesCreatedAt,
	}
}

// SystemRules returns fresh copies of the built-in rules.
func SystemRules() []model.AutoRule {
	rules := make([]model.AutoRule, len(systemRuleDefs))
	for i, d := range systemRuleDefs {
		rules[i] = d.rule()
	}
	return rules
}

// IsSystemRule reports whether id names a built-in rule.
func IsSystemRule(id string) bool {
	return model.IsSystemRuleID(id)
}

// SystemRule returns the built-in rule with the given id.
func SystemRule(id string) (model.AutoRule, bool) {
	for _, d := range systemRuleDefs {
		if SystemRuleID(d.slug) == id {
			return d.rule(), true
		}
	}
	return model.AutoRule{}, false
}
