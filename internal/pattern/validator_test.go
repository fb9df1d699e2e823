package pattern

import (
	"strings"
	"testing"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() model.RuleDraft {
	return model.RuleDraft{
		Name:         "Frete Shopee",
		Marketplaces: []string{"shopee"},
		Conditions: []model.RuleCondition{
			{Field: model.FieldDescription, Operator: model.OperatorContains, Value: model.TextValue("frete")},
		},
		ConditionLogic: model.LogicAnd,
		Actions:        model.Actions{model.AddTags{Tags: []string{"frete"}}},
		Priority:       60,
	}
}

func TestValidator_Validate(t *testing.T) {
	v2 := model.NumberValue(20)
	badV2 := model.TextValue("lots")

	tests := []struct {
		mutate    func(d *model.RuleDraft)
		name      string
		wantField string
		wantCode  model.ValidationCode
		wantValid bool
	}{
		{name: "valid", mutate: func(*model.RuleDraft) {}, wantValid: true},
		{name: "unset priority is fine", mutate: func(d *model.RuleDraft) { d.Priority = 0 }, wantValid: true},
		{name: "blank name", mutate: func(d *model.RuleDraft) { d.Name = "   " }, wantField: "name", wantCode: model.CodeRequired},
		{name: "long name", mutate: func(d *model.RuleDraft) { d.Name = strings.Repeat("á", 101) }, wantField: "name", wantCode: model.CodeInvalidValue},
		{name: "no marketplace", mutate: func(d *model.RuleDraft) { d.Marketplaces = nil }, wantField: "marketplaces", wantCode: model.CodeRequired},
		{name: "no conditions", mutate: func(d *model.RuleDraft) { d.Conditions = nil }, wantField: "conditions", wantCode: model.CodeRequired},
		{name: "no actions", mutate: func(d *model.RuleDraft) { d.Actions = nil }, wantField: "actions", wantCode: model.CodeRequired},
		{name: "priority too high", mutate: func(d *model.RuleDraft) { d.Priority = 101 }, wantField: "priority", wantCode: model.CodeInvalidValue},
		{name: "priority negative", mutate: func(d *model.RuleDraft) { d.Priority = -1 }, wantField: "priority", wantCode: model.CodeInvalidValue},
		{name: "bad logic", mutate: func(d *model.RuleDraft) { d.ConditionLogic = "XOR" }, wantField: "conditionLogic", wantCode: model.CodeInvalidValue},
		{
			name:      "missing field",
			mutate:    func(d *model.RuleDraft) { d.Conditions[0].Field = "" },
			wantField: "conditions[0].field", wantCode: model.CodeRequired,
		},
		{
			name:      "unknown field",
			mutate:    func(d *model.RuleDraft) { d.Conditions[0].Field = "merchant" },
			wantField: "conditions[0].field", wantCode: model.CodeInvalidValue,
		},
		{
			name:      "legacy field alias is accepted",
			mutate:    func(d *model.RuleDraft) { d.Conditions[0].Field = "descricao" },
			wantValid: true,
		},
		{
			name:      "missing operator",
			mutate:    func(d *model.RuleDraft) { d.Conditions[0].Operator = "" },
			wantField: "conditions[0].operator", wantCode: model.CodeRequired,
		},
		{
			name:      "numeric operator on text field",
			mutate:    func(d *model.RuleDraft) { d.Conditions[0].Operator = model.OperatorGreaterThan },
			wantField: "conditions[0].operator", wantCode: model.CodeInvalidValue,
		},
		{
			name:      "missing value",
			mutate:    func(d *model.RuleDraft) { d.Conditions[0].Value = model.ConditionValue{} },
			wantField: "conditions[0].value", wantCode: model.CodeRequired,
		},
		{
			name: "invalid regex",
			mutate: func(d *model.RuleDraft) {
				d.Conditions[0].Operator = model.OperatorRegex
				d.Conditions[0].Value = model.TextValue("(frete")
			},
			wantField: "conditions[0].value", wantCode: model.CodeInvalidRegex,
		},
		{
			name: "between without second value",
			mutate: func(d *model.RuleDraft) {
				d.Conditions[0] = model.RuleCondition{Field: model.FieldAmount, Operator: model.OperatorBetween, Value: model.NumberValue(10)}
			},
			wantField: "conditions[0].value2", wantCode: model.CodeRequired,
		},
		{
			name: "between with non numeric second value",
			mutate: func(d *model.RuleDraft) {
				d.Conditions[0] = model.RuleCondition{Field: model.FieldAmount, Operator: model.OperatorBetween, Value: model.NumberValue(10), Value2: &badV2}
			},
			wantField: "conditions[0].value2", wantCode: model.CodeInvalidValue,
		},
		{
			name: "valid between",
			mutate: func(d *model.RuleDraft) {
				d.Conditions[0] = model.RuleCondition{Field: model.FieldAmount, Operator: model.OperatorBetween, Value: model.NumberValue(10), Value2: &v2}
			},
			wantValid: true,
		},
		{
			name: "numeric operator with text value",
			mutate: func(d *model.RuleDraft) {
				d.Conditions[0] = model.RuleCondition{Field: model.FieldAmount, Operator: model.OperatorGreaterThan, Value: model.TextValue("muito")}
			},
			wantField: "conditions[0].value", wantCode: model.CodeInvalidValue,
		},
		{
			name: "numeric string is numeric",
			mutate: func(d *model.RuleDraft) {
				d.Conditions[0] = model.RuleCondition{Field: model.FieldAmount, Operator: model.OperatorLessThan, Value: model.TextValue("0")}
			},
			wantValid: true,
		},
		{
			name:      "add tags without tags",
			mutate:    func(d *model.RuleDraft) { d.Actions = model.Actions{model.AddTags{Tags: []string{" "}}} },
			wantField: "actions[0].tags", wantCode: model.CodeRequired,
		},
		{
			name:      "set category without category",
			mutate:    func(d *model.RuleDraft) { d.Actions = model.Actions{model.MarkExpense{}, model.SetCategory{}} },
			wantField: "actions[1].category", wantCode: model.CodeRequired,
		},
		{
			name:      "set type without type",
			mutate:    func(d *model.RuleDraft) { d.Actions = model.Actions{model.SetType{}} },
			wantField: "actions[0].transactionType", wantCode: model.CodeRequired,
		},
		{
			name:      "set description without description",
			mutate:    func(d *model.RuleDraft) { d.Actions = model.Actions{model.SetDescription{Description: " "}} },
			wantField: "actions[0].description", wantCode: model.CodeRequired,
		},
		{
			name:      "flag review note is optional",
			mutate:    func(d *model.RuleDraft) { d.Actions = model.Actions{model.FlagReview{}} },
			wantValid: true,
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)

			res := v.Validate(d)
			assert.Equal(t, tt.wantValid, res.Valid, res.Messages())
			if tt.wantValid {
				assert.Empty(t, res.Errors)
				return
			}

			found := false
			for _, e := range res.Errors {
				if e.Field == tt.wantField && e.Code == tt.wantCode {
					found = true
				}
			}
			assert.True(t, found, "expected %s/%s in %+v", tt.wantField, tt.wantCode, res.Errors)
		})
	}
}

func TestValidator_ValidateListsEveryProblem(t *testing.T) {
	res := NewValidator().Validate(model.RuleDraft{})
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 4)
	assert.True(t, res.HasCode(model.CodeRequired))
}

func TestValidator_Sanitize(t *testing.T) {
	d := model.RuleDraft{
		Name:           "  Frete  ",
		Description:    " desc ",
		Marketplaces:   []string{" SHOPEE ", "shopee"},
		ConditionLogic: "or",
		Conditions: []model.RuleCondition{
			{Field: "descricao", Operator: "CONTAINS", Value: model.TextValue("  frete ")},
			{Field: model.FieldAmount, Operator: model.OperatorGreaterThan, Value: model.NumberValue(10)},
		},
		Actions: model.Actions{
			model.AddTags{Tags: []string{" Frete ", "", "LOGISTICA"}},
			model.SetCategory{Category: " Envio "},
			model.FlagReview{ReviewNote: " olhar "},
		},
		Priority: 250,
	}

	out := NewValidator().Sanitize(d)

	assert.Equal(t, "Frete", out.Name)
	assert.Equal(t, "desc", out.Description)
	assert.Equal(t, []string{"shopee"}, out.Marketplaces)
	assert.Equal(t, model.LogicOr, out.ConditionLogic)
	assert.Equal(t, model.FieldDescription, out.Conditions[0].Field)
	assert.Equal(t, model.OperatorContains, out.Conditions[0].Operator)
	assert.Equal(t, "frete", out.Conditions[0].Value.String())
	assert.True(t, out.Conditions[1].Value.IsNumber())
	assert.NotEmpty(t, out.Conditions[0].ID)
	assert.NotEqual(t, out.Conditions[0].ID, out.Conditions[1].ID)
	assert.Equal(t, model.Actions{
		model.AddTags{Tags: []string{"frete", "logistica"}},
		model.SetCategory{Category: "envio"},
		model.FlagReview{ReviewNote: "olhar"},
	}, out.Actions)
	assert.Equal(t, 100, out.Priority)
	require.NotNil(t, out.Enabled)
	require.NotNil(t, out.StopOnMatch)
	assert.True(t, *out.Enabled)
	assert.False(t, *out.StopOnMatch)

	// Sanitizing is stable.
	again := NewValidator().Sanitize(out)
	assert.Equal(t, out, again)
}

func TestValidator_SanitizeDefaults(t *testing.T) {
	off := false
	out := NewValidator().Sanitize(model.RuleDraft{Name: "x", Enabled: &off})
	assert.Equal(t, model.DefaultPriority, out.Priority)
	assert.Equal(t, model.KnownMarketplaces(), out.Marketplaces)
	assert.Equal(t, model.LogicAnd, out.ConditionLogic)
	assert.False(t, *out.Enabled)
}

func TestClampPriority(t *testing.T) {
	assert.Equal(t, 50, ClampPriority(0))
	assert.Equal(t, 1, ClampPriority(-5))
	assert.Equal(t, 100, ClampPriority(101))
	assert.Equal(t, 42, ClampPriority(42))
}

func TestValidator_ValidateUnique(t *testing.T) {
	existing := []model.AutoRule{{ID: "a", Name: "Frete Grátis"}}
	v := NewValidator()

	res := v.ValidateUnique(model.RuleDraft{Name: "  FRETE gratis "}, existing, "")
	assert.False(t, res.Valid)
	assert.True(t, res.HasCode(model.CodeDuplicateName))

	res = v.ValidateUnique(model.RuleDraft{Name: "Frete Grátis"}, existing, "a")
	assert.True(t, res.Valid)

	res = v.ValidateUnique(model.RuleDraft{Name: "Taxas"}, existing, "")
	assert.True(t, res.Valid)
}
