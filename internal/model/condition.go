package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ConditionField names the payment attribute a condition inspects.
type ConditionField string

// Condition fields.
const (
	FieldDescription ConditionField = "description"
	FieldType        ConditionField = "type"
	FieldAmount      ConditionField = "amount"
	FieldOrderID     ConditionField = "order_id"
	FieldFullText    ConditionField = "full_text"
)

// AllFields lists every supported condition field.
func AllFields() []ConditionField {
	return []ConditionField{FieldDescription, FieldType, FieldAmount, FieldOrderID, FieldFullText}
}

// IsValid reports whether f is a known field.
func (f ConditionField) IsValid() bool {
	switch f {
	case FieldDescription, FieldType, FieldAmount, FieldOrderID, FieldFullText:
		return true
	}
	return false
}

// IsNumeric reports whether the field carries a number.
func (f ConditionField) IsNumeric() bool {
	return f == FieldAmount
}

// ConditionOperator is the comparison applied by a condition.
type ConditionOperator string

// Condition operators.
const (
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorStartsWith  ConditionOperator = "starts_with"
	OperatorEndsWith    ConditionOperator = "ends_with"
	OperatorRegex       ConditionOperator = "regex"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorBetween     ConditionOperator = "between"
)

// IsValid reports whether o is a known operator.
func (o ConditionOperator) IsValid() bool {
	switch o {
	case OperatorContains, OperatorNotContains, OperatorEquals, OperatorNotEquals,
		OperatorStartsWith, OperatorEndsWith, OperatorRegex,
		OperatorGreaterThan, OperatorLessThan, OperatorBetween:
		return true
	}
	return false
}

// IsNumericOnly reports whether the operator only makes sense for numbers.
func (o ConditionOperator) IsNumericOnly() bool {
	switch o {
	case OperatorGreaterThan, OperatorLessThan, OperatorBetween:
		return true
	}
	return false
}

// ConditionLogic combines the conditions of a rule.
type ConditionLogic string

// Condition logic values.
const (
	LogicAnd ConditionLogic = "AND"
	LogicOr  ConditionLogic = "OR"
)

// IsValid reports whether l is AND or OR.
func (l ConditionLogic) IsValid() bool {
	return l == LogicAnd || l == LogicOr
}

// ConditionValue is a condition operand as authored: either text or a number.
// The zero value is an absent operand.
type ConditionValue struct {
	raw     string
	numeric bool
}

// TextValue creates a text operand.
func TextValue(s string) ConditionValue {
	return ConditionValue{raw: s}
}

// NumberValue creates a numeric operand.
func NumberValue(f float64) ConditionValue {
	return ConditionValue{raw: strconv.FormatFloat(f, 'f', -1, 64), numeric: true}
}

// DecimalValue creates a numeric operand from a decimal.
func DecimalValue(d decimal.Decimal) ConditionValue {
	return ConditionValue{raw: d.String(), numeric: true}
}

// String returns the operand as text.
func (v ConditionValue) String() string {
	return v.raw
}

// IsNumber reports whether the operand was authored as a number.
func (v ConditionValue) IsNumber() bool {
	return v.numeric
}

// IsEmpty reports whether the operand is absent or an empty string.
func (v ConditionValue) IsEmpty() bool {
	return v.raw == ""
}

// Decimal parses the operand as a number.
func (v ConditionValue) Decimal() (decimal.Decimal, bool) {
	s := strings.TrimSpace(v.raw)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Trimmed returns a copy with surrounding whitespace removed from text operands.
func (v ConditionValue) Trimmed() ConditionValue {
	if v.numeric {
		return v
	}
	return ConditionValue{raw: strings.TrimSpace(v.raw)}
}

// MarshalJSON writes numbers as JSON numbers and text as JSON strings.
func (v ConditionValue) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return []byte(v.raw), nil
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON accepts a JSON string, number or null.
func (v *ConditionValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ConditionValue{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("condition value must be a string or number: %w", err)
	}
	*v = ConditionValue{raw: n.String(), numeric: true}
	return nil
}

// MarshalYAML writes numbers as YAML numbers and text as YAML strings.
func (v ConditionValue) MarshalYAML() (any, error) {
	if v.numeric {
		d, ok := v.Decimal()
		if ok {
			f, _ := d.Float64()
			return f, nil
		}
	}
	return v.raw, nil
}

// UnmarshalYAML accepts a YAML scalar.
func (v *ConditionValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("condition value must be a scalar, got %v", node.Tag)
	}
	switch node.ShortTag() {
	case "!!null":
		*v = ConditionValue{}
	case "!!int", "!!float":
		*v = ConditionValue{raw: node.Value, numeric: true}
	default:
		*v = TextValue(node.Value)
	}
	return nil
}

// RuleCondition is one predicate over one payment field.
type RuleCondition struct {
	Value2   *ConditionValue   `json:"value2,omitempty" yaml:"value2,omitempty"`
	ID       string            `json:"id" yaml:"id,omitempty"`
	Field    ConditionField    `json:"field" yaml:"field"`
	Operator ConditionOperator `json:"operator" yaml:"operator"`
	Value    ConditionValue    `json:"value" yaml:"value"`
}

// fieldAliases maps legacy and localized field names found in stored rows.
var fieldAliases = map[string]ConditionField{
	"description":            FieldDescription,
	"descricao":              FieldDescription,
	"transactiondescription": FieldDescription,
	"type":                   FieldType,
	"tipo":                   FieldType,
	"transactiontype":        FieldType,
	"amount":                 FieldAmount,
	"valor":                  FieldAmount,
	"order_id":               FieldOrderID,
	"orderid":                FieldOrderID,
	"pedido":                 FieldOrderID,
	"marketplaceorderid":     FieldOrderID,
	"full_text":              FieldFullText,
	"fulltext":               FieldFullText,
	"texto":                  FieldFullText,
}

// NormalizeConditionField maps a stored field name onto a known field.
// Unknown names are returned lowercased so validation can report them.
func NormalizeConditionField(name string) ConditionField {
	key := strings.ToLower(strings.TrimSpace(name))
	if f, ok := fieldAliases[key]; ok {
		return f
	}
	return ConditionField(key)
}
