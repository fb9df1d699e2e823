package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConditionValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantRaw     string
		wantNumeric bool
		wantEmpty   bool
		wantErr     bool
	}{
		{name: "string", input: `"frete"`, wantRaw: "frete"},
		{name: "numeric string stays text", input: `"500"`, wantRaw: "500"},
		{name: "integer", input: `500`, wantRaw: "500", wantNumeric: true},
		{name: "negative float", input: `-12.5`, wantRaw: "-12.5", wantNumeric: true},
		{name: "null", input: `null`, wantEmpty: true},
		{name: "object rejected", input: `{"a":1}`, wantErr: true},
		{name: "bool rejected", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v ConditionValue
			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRaw, v.String())
			assert.Equal(t, tt.wantNumeric, v.IsNumber())
			assert.Equal(t, tt.wantEmpty, v.IsEmpty())
		})
	}
}

func TestConditionValue_MarshalKeepsAuthoredKind(t *testing.T) {
	cond := RuleCondition{
		ID:       "c1",
		Field:    FieldAmount,
		Operator: OperatorBetween,
		Value:    NumberValue(10),
		Value2:   &ConditionValue{raw: "20.5", numeric: true},
	}

	data, err := json.Marshal(cond)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1","field":"amount","operator":"between","value":10,"value2":20.5}`, string(data))

	text := RuleCondition{ID: "c2", Field: FieldDescription, Operator: OperatorContains, Value: TextValue("10")}
	data, err = json.Marshal(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c2","field":"description","operator":"contains","value":"10"}`, string(data))
}

func TestConditionValue_YAML(t *testing.T) {
	var cond RuleCondition
	err := yaml.Unmarshal([]byte("field: amount\noperator: greater_than\nvalue: 500\n"), &cond)
	require.NoError(t, err)
	assert.True(t, cond.Value.IsNumber())

	d, ok := cond.Value.Decimal()
	require.True(t, ok)
	assert.Equal(t, "500", d.String())

	err = yaml.Unmarshal([]byte("field: description\noperator: contains\nvalue: frete\n"), &cond)
	require.NoError(t, err)
	assert.False(t, cond.Value.IsNumber())
	assert.Equal(t, "frete", cond.Value.String())

	out, err := yaml.Marshal(RuleCondition{Field: FieldAmount, Operator: OperatorLessThan, Value: NumberValue(0)})
	require.NoError(t, err)
	assert.Contains(t, string(out), "value: 0\n")
}

func TestConditionValue_Decimal(t *testing.T) {
	d, ok := TextValue(" 12.30 ").Decimal()
	require.True(t, ok)
	assert.Equal(t, "12.3", d.String())

	_, ok = TextValue("abc").Decimal()
	assert.False(t, ok)

	_, ok = ConditionValue{}.Decimal()
	assert.False(t, ok)
}

func TestNormalizeConditionField(t *testing.T) {
	tests := map[string]ConditionField{
		"description":            FieldDescription,
		"transactionDescription": FieldDescription,
		"Descricao":              FieldDescription,
		"tipo":                   FieldType,
		"transactionType":        FieldType,
		"valor":                  FieldAmount,
		"orderId":                FieldOrderID,
		"pedido":                 FieldOrderID,
		"fullText":               FieldFullText,
		" texto ":                FieldFullText,
		"unknown":                ConditionField("unknown"),
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeConditionField(in))
		})
	}
}

func TestConditionOperator_IsNumericOnly(t *testing.T) {
	assert.True(t, OperatorGreaterThan.IsNumericOnly())
	assert.True(t, OperatorLessThan.IsNumericOnly())
	assert.True(t, OperatorBetween.IsNumericOnly())
	assert.False(t, OperatorEquals.IsNumericOnly())
	assert.False(t, OperatorRegex.IsNumericOnly())
	assert.False(t, ConditionOperator("bogus").IsValid())
}
