package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestActions_Apply(t *testing.T) {
	tests := []struct {
		check   func(t *testing.T, r RuleEngineResult)
		name    string
		actions Actions
	}{
		{
			name:    "add tags dedupes and keeps order",
			actions: Actions{AddTags{Tags: []string{"frete", "taxa"}}, AddTags{Tags: []string{"taxa", "ads"}}},
			check: func(t *testing.T, r RuleEngineResult) {
				assert.Equal(t, []string{"frete", "taxa", "ads"}, r.Tags)
			},
		},
		{
			name:    "empty set payloads are ignored",
			actions: Actions{SetCategory{Category: "frete"}, SetCategory{}, SetType{}, SetDescription{}},
			check: func(t *testing.T, r RuleEngineResult) {
				assert.Equal(t, "frete", r.Category)
				assert.Empty(t, r.TransactionType)
				assert.Empty(t, r.TransactionDescription)
			},
		},
		{
			name:    "last writer wins",
			actions: Actions{SetType{TransactionType: "a"}, SetType{TransactionType: "b"}, SetDescription{Description: "x"}},
			check: func(t *testing.T, r RuleEngineResult) {
				assert.Equal(t, "b", r.TransactionType)
				assert.Equal(t, "x", r.TransactionDescription)
			},
		},
		{
			name:    "income after expense clears expense",
			actions: Actions{MarkExpense{}, MarkIncome{}},
			check: func(t *testing.T, r RuleEngineResult) {
				assert.True(t, r.IsIncome)
				assert.False(t, r.IsExpense)
			},
		},
		{
			name:    "expense after income clears income",
			actions: Actions{MarkIncome{}, MarkExpense{}},
			check: func(t *testing.T, r RuleEngineResult) {
				assert.True(t, r.IsExpense)
				assert.False(t, r.IsIncome)
			},
		},
		{
			name:    "skip and flag review",
			actions: Actions{Skip{}, FlagReview{ReviewNote: "first"}, FlagReview{ReviewNote: "second"}},
			check: func(t *testing.T, r RuleEngineResult) {
				assert.True(t, r.Skipped)
				assert.True(t, r.FlaggedForReview)
				assert.Equal(t, "second", r.ReviewNote)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRuleEngineResult()
			for _, a := range tt.actions {
				a.Apply(&r)
			}
			tt.check(t, r)
		})
	}
}

func TestActions_JSON(t *testing.T) {
	input := `[
		{"type":"add_tags","tags":["reembolso"]},
		{"type":"set_type","transactionType":"refund"},
		{"type":"set_description","description":"Estorno"},
		{"type":"set_category","category":"frete"},
		{"type":"mark_expense"},
		{"type":"mark_income"},
		{"type":"skip"},
		{"type":"flag_review","reviewNote":"check"}
	]`

	var as Actions
	require.NoError(t, json.Unmarshal([]byte(input), &as))
	assert.Equal(t, Actions{
		AddTags{Tags: []string{"reembolso"}},
		SetType{TransactionType: "refund"},
		SetDescription{Description: "Estorno"},
		SetCategory{Category: "frete"},
		MarkExpense{},
		MarkIncome{},
		Skip{},
		FlagReview{ReviewNote: "check"},
	}, as)

	out, err := json.Marshal(as)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestActions_DecodeErrors(t *testing.T) {
	var as Actions
	err := json.Unmarshal([]byte(`[{"type":"mark_expense"},{"type":"explode"}]`), &as)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `action 2: unknown action type "explode"`)

	err = json.Unmarshal([]byte(`[{"tags":["x"]}]`), &as)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action type is required")

	err = yaml.Unmarshal([]byte("- type: nope\n"), &as)
	require.Error(t, err)
}

func TestActions_YAML(t *testing.T) {
	as := Actions{AddTags{Tags: []string{"frete"}}, MarkExpense{}}
	out, err := yaml.Marshal(as)
	require.NoError(t, err)

	var back Actions
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, as, back)
}

func TestActions_CloneIsIndependent(t *testing.T) {
	as := Actions{AddTags{Tags: []string{"a"}}}
	cp := as.Clone()
	cp[0].(AddTags).Tags[0] = "changed"
	assert.Equal(t, "a", as[0].(AddTags).Tags[0])
	assert.Equal(t, []ActionType{ActionAddTags}, as.Types())
}
