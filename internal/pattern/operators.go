package pattern

import (
	"slices"

	"github.com/Veraticus/spice-rules/internal/model"
)

var (
	textOperators = []model.ConditionOperator{
		model.OperatorContains,
		model.OperatorNotContains,
		model.OperatorStartsWith,
		model.OperatorEndsWith,
		model.OperatorRegex,
	}
	numericOperators = []model.ConditionOperator{
		model.OperatorGreaterThan,
		model.OperatorLessThan,
		model.OperatorBetween,
	}
	universalOperators = []model.ConditionOperator{
		model.OperatorEquals,
		model.OperatorNotEquals,
	}
)

var operatorLabels = map[model.ConditionOperator]string{
	model.OperatorContains:    "contém",
	model.OperatorNotContains: "não contém",
	model.OperatorEquals:      "é igual a",
	model.OperatorNotEquals:   "é diferente de",
	model.OperatorStartsWith:  "começa com",
	model.OperatorEndsWith:    "termina com",
	model.OperatorRegex:       "corresponde ao padrão",
	model.OperatorGreaterThan: "maior que",
	model.OperatorLessThan:    "menor que",
	model.OperatorBetween:     "entre",
}

var fieldLabels = map[model.ConditionField]string{
	model.FieldDescription: "Descrição",
	model.FieldType:        "Tipo de transação",
	model.FieldAmount:      "Valor",
	model.FieldOrderID:     "ID do pedido",
	model.FieldFullText:    "Texto completo",
}

// OperatorsForField lists the operators a field accepts.
func OperatorsForField(field model.ConditionField) []model.ConditionOperator {
	if field.IsNumeric() {
		return slices.Concat(numericOperators, universalOperators)
	}
	return slices.Concat(textOperators, universalOperators)
}

// IsOperatorValidForField reports whether op may be used on field.
func IsOperatorValidForField(op model.ConditionOperator, field model.ConditionField) bool {
	return slices.Contains(OperatorsForField(field), op)
}

// OperatorLabel returns the display label of an operator.
func OperatorLabel(op model.ConditionOperator) string {
	if l, ok := operatorLabels[op]; ok {
		return l
	}
	return string(op)
}

// FieldLabel returns the display label of a field.
func FieldLabel(field model.ConditionField) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return string(field)
}
