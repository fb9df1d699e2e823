package classification

import (
	"github.com/Veraticus/spice-rules/internal/model"
)

// TemplateCategory groups templates for display.
type TemplateCategory string

// Template categories.
const (
	CategoryExpenses    TemplateCategory = "expenses"
	CategoryAdjustments TemplateCategory = "adjustments"
	CategoryIncome      TemplateCategory = "income"
	CategoryAlerts      TemplateCategory = "alerts"
)

// TemplateCategoryInfo is a category id with its display name.
type TemplateCategoryInfo struct {
	ID   TemplateCategory
	Name string
}

// TemplateCategories lists the template categories in display order.
func TemplateCategories() []TemplateCategoryInfo {
	return []TemplateCategoryInfo{
		{ID: CategoryExpenses, Name: "Despesas"},
		{ID: CategoryAdjustments, Name: "Ajustes"},
		{ID: CategoryIncome, Name: "Receitas"},
		{ID: CategoryAlerts, Name: "Alertas"},
	}
}

// Template is a ready-made rule a user can adopt and adjust.
type Template struct {
	ID          string
	Name        string
	Description string
	Category    TemplateCategory
	Logic       model.ConditionLogic
	Conditions  []model.RuleCondition
	Actions     model.Actions
	Priority    int
}

func textTemplate(id, name, description string, category TemplateCategory, pattern string, priority int, actions ...model.RuleAction) Template {
	return Template{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    category,
		Logic:       model.LogicOr,
		Conditions: []model.RuleCondition{{
			ID:       "cond_1",
			Field:    model.FieldFullText,
			Operator: model.OperatorRegex,
			Value:    model.TextValue(pattern),
		}},
		Actions:  actions,
		Priority: priority,
	}
}

func amountTemplate(id, name, description string, op model.ConditionOperator, limit float64, priority int, actions ...model.RuleAction) Template {
	return Template{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    CategoryAlerts,
		Logic:       model.LogicAnd,
		Conditions: []model.RuleCondition{{
			ID:       "cond_1",
			Field:    model.FieldAmount,
			Operator: op,
			Value:    model.NumberValue(limit),
		}},
		Actions:  actions,
		Priority: priority,
	}
}

// Templates returns every rule template.
func Templates() []Template {
	return []Template{
		textTemplate("template_ads", "Custos com Anúncios",
			"Detecta gastos com publicidade e anúncios patrocinados", CategoryExpenses,
			`anuncio|anúncio|publicidade|ads|patrocinado|impulsiona`, 70,
			model.AddTags{Tags: []string{"anúncios", "marketing"}}, model.MarkExpense{}, model.SetCategory{Category: "anuncios"}),
		textTemplate("template_shipping", "Custos de Frete",
			"Identifica cobranças de frete e logística", CategoryExpenses,
			`frete|envio|entrega|logistica|shipping|transporte`, 65,
			model.AddTags{Tags: []string{"frete"}}, model.MarkExpense{}, model.SetCategory{Category: "frete"}),
		textTemplate("template_fees", "Taxas e Comissões",
			"Detecta taxas de marketplace, comissões e tarifas", CategoryExpenses,
			`taxa|tarifa|comissao|comissão|fee|rate`, 60,
			model.AddTags{Tags: []string{"taxas"}}, model.MarkExpense{}, model.SetCategory{Category: "taxas"}),
		textTemplate("template_storage", "Armazenagem",
			"Custos de armazenamento em fulfillment", CategoryExpenses,
			`armazen|storage|fulfillment|estoque|deposito|depósito`, 55,
			model.AddTags{Tags: []string{"armazenagem", "fulfillment"}}, model.MarkExpense{}, model.SetCategory{Category: "armazenagem"}),
		textTemplate("template_refund", "Reembolsos e Devoluções",
			"Identifica reembolsos, chargebacks e devoluções", CategoryAdjustments,
			`reembolso|devolucao|devolução|estorno|chargeback|reversa`, 80,
			model.AddTags{Tags: []string{"reembolso"}}),
		textTemplate("template_adjustment", "Ajustes Financeiros",
			"Detecta ajustes, correções e compensações", CategoryAdjustments,
			`ajuste|correcao|correção|compensacao|compensação|credito|crédito`, 75,
			model.AddTags{Tags: []string{"ajuste"}}),
		textTemplate("template_withdrawal", "Saques e Transferências",
			"Identifica retiradas e transferências para conta", CategoryAdjustments,
			`saque|retirada|transfer|repasse|liberacao|liberação`, 50,
			model.AddTags{Tags: []string{"saque", "transferência"}}),
		textTemplate("template_bonus", "Bônus e Incentivos",
			"Detecta bônus de vendedor, cashback e incentivos", CategoryIncome,
			`bonus|bônus|incentivo|cashback|premio|prêmio|recompensa`, 70,
			model.AddTags{Tags: []string{"bônus", "incentivo"}}, model.MarkIncome{}),
		amountTemplate("template_high_value", "Valores Altos",
			"Sinaliza transações acima de R$ 500 para revisão",
			model.OperatorGreaterThan, 500, 90,
			model.AddTags{Tags: []string{"alto-valor"}}, model.FlagReview{ReviewNote: "Valor acima de R$ 500"}),
		amountTemplate("template_negative", "Valores Negativos",
			"Sinaliza qualquer transação negativa para análise",
			model.OperatorLessThan, 0, 85,
			model.AddTags{Tags: []string{"negativo"}}, model.FlagReview{ReviewNote: "Valor negativo - verificar"}),
	}
}

// TemplatesByCategory returns the templates of one category.
func TemplatesByCategory(category TemplateCategory) []Template {
	var out []Template
	for _, t := range Templates() {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// TemplateByID finds a template by id.
func TemplateByID(id string) (Template, bool) {
	for _, t := range Templates() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// ToDraft turns the template into a rule draft scoped to the marketplaces it
// was written for. Non-zero fields of overrides replace the template's.
func (t Template) ToDraft(overrides model.RuleDraft) model.RuleDraft {
	enabled, stop := true, false
	d := model.RuleDraft{
		Name:           t.Name,
		Description:    t.Description,
		Marketplaces:   model.KnownMarketplaces(),
		Conditions:     append([]model.RuleCondition(nil), t.Conditions...),
		ConditionLogic: t.Logic,
		Actions:        t.Actions.Clone(),
		Priority:       t.Priority,
		Enabled:        &enabled,
		StopOnMatch:    &stop,
	}

	if overrides.Name != "" {
		d.Name = overrides.Name
	}
	if overrides.Description != "" {
		d.Description = overrides.Description
	}
	if len(overrides.Marketplaces) > 0 {
		d.Marketplaces = overrides.Marketplaces
	}
	if len(overrides.Conditions) > 0 {
		d.Conditions = overrides.Conditions
	}
	if overrides.ConditionLogic != "" {
		d.ConditionLogic = overrides.ConditionLogic
	}
	if len(overrides.Actions) > 0 {
		d.Actions = overrides.Actions
	}
	if overrides.Priority != 0 {
		d.Priority = overrides.Priority
	}
	if overrides.Enabled != nil {
		d.Enabled = overrides.Enabled
	}
	if overrides.StopOnMatch != nil {
		d.StopOnMatch = overrides.StopOnMatch
	}
	return d
}
