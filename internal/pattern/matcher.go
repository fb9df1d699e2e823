package pattern

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/shopspring/decimal"
)

// amountEpsilon is the tolerance of numeric equality.
var amountEpsilon = decimal.New(1, -2)

// CompiledRule is a rule whose regular expressions have been compiled once.
type CompiledRule struct {
	compiledRegex map[int]*regexp.Regexp
	Rule          model.AutoRule
}

// CompileRule precompiles every regex condition of rule. Patterns that do not
// compile are logged and evaluate as non-matches.
func CompileRule(rule model.AutoRule) *CompiledRule {
	c := &CompiledRule{
		Rule:          rule,
		compiledRegex: make(map[int]*regexp.Regexp),
	}

	for i, cond := range rule.Conditions {
		if cond.Operator != model.OperatorRegex {
			continue
		}
		re, err := common.CompileFolded(cond.Value.String())
		if err != nil {
			slog.Warn("Invalid regex in rule condition",
				"rule_id", rule.ID,
				"condition_id", cond.ID,
				"pattern", cond.Value.String(),
				"error", err)
			continue
		}
		c.compiledRegex[i] = re
	}

	return c
}

// Evaluate runs every condition of the rule against payment and combines
// the outcomes with the rule's logic.
func (c *CompiledRule) Evaluate(payment model.PaymentInput) (bool, []model.ConditionEvalResult) {
	results := make([]model.ConditionEvalResult, len(c.Rule.Conditions))
	for i, cond := range c.Rule.Conditions {
		re, ok := c.compiledRegex[i]
		results[i] = evaluate(cond, payment, func() (*regexp.Regexp, bool) { return re, ok })
	}
	return combine(results, c.Rule.ConditionLogic), results
}

// EvaluateCondition evaluates a single condition against a payment.
func EvaluateCondition(cond model.RuleCondition, payment model.PaymentInput) model.ConditionEvalResult {
	return evaluate(cond, payment, func() (*regexp.Regexp, bool) {
		re, err := common.CompileFolded(cond.Value.String())
		if err != nil {
			slog.Warn("Invalid regex in rule condition",
				"condition_id", cond.ID,
				"pattern", cond.Value.String(),
				"error", err)
			return nil, false
		}
		return re, true
	})
}

// EvaluateConditions evaluates every condition and combines them with logic.
// AND requires all conditions, OR requires any. An empty list never matches.
func EvaluateConditions(conds []model.RuleCondition, payment model.PaymentInput, logic model.ConditionLogic) (bool, []model.ConditionEvalResult) {
	results := make([]model.ConditionEvalResult, len(conds))
	for i, cond := range conds {
		results[i] = EvaluateCondition(cond, payment)
	}
	return combine(results, logic), results
}

func combine(results []model.ConditionEvalResult, logic model.ConditionLogic) bool {
	if len(results) == 0 {
		return false
	}
	if logic == model.LogicOr {
		for _, r := range results {
			if r.Matched {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r.Matched {
			return false
		}
	}
	return true
}

// FieldValue extracts the raw value of a field from a payment.
func FieldValue(field model.ConditionField, payment model.PaymentInput) string {
	switch field {
	case model.FieldDescription:
		return payment.TransactionDescription
	case model.FieldType:
		return payment.TransactionType
	case model.FieldAmount:
		return payment.Amount.String()
	case model.FieldOrderID:
		return payment.MarketplaceOrderID
	case model.FieldFullText:
		return payment.FullText()
	}
	return ""
}

func evaluate(cond model.RuleCondition, payment model.PaymentInput, regex func() (*regexp.Regexp, bool)) model.ConditionEvalResult {
	actual := FieldValue(cond.Field, payment)
	result := model.ConditionEvalResult{
		ConditionID:   cond.ID,
		Field:         cond.Field,
		Operator:      cond.Operator,
		ExpectedValue: cond.Value,
		ActualValue:   actual,
	}

	if cond.Field.IsNumeric() {
		result.Matched = matchesAmount(cond, payment.Amount)
		return result
	}

	if cond.Operator == model.OperatorRegex {
		// Regex sees the value as written; case folding is part of the pattern.
		if re, ok := regex(); ok {
			result.Matched = re.MatchString(actual)
		}
		return result
	}

	result.Matched = matchesText(cond.Operator, NormalizeText(actual), NormalizeText(cond.Value.String()))
	return result
}

func matchesText(op model.ConditionOperator, actual, expected string) bool {
	switch op {
	case model.OperatorContains:
		return strings.Contains(actual, expected)
	case model.OperatorNotContains:
		return !strings.Contains(actual, expected)
	case model.OperatorEquals:
		return actual == expected
	case model.OperatorNotEquals:
		return actual != expected
	case model.OperatorStartsWith:
		return strings.HasPrefix(actual, expected)
	case model.OperatorEndsWith:
		return strings.HasSuffix(actual, expected)
	}
	return false
}

func matchesAmount(cond model.RuleCondition, amount decimal.Decimal) bool {
	expected := operand(cond.Value)

	switch cond.Operator {
	case model.OperatorEquals:
		return amount.Sub(expected).Abs().LessThan(amountEpsilon)
	case model.OperatorNotEquals:
		return !amount.Sub(expected).Abs().LessThan(amountEpsilon)
	case model.OperatorGreaterThan:
		return amount.GreaterThan(expected)
	case model.OperatorLessThan:
		return amount.LessThan(expected)
	case model.OperatorBetween:
		if cond.Value2 == nil || cond.Value2.IsEmpty() {
			return false
		}
		upper := operand(*cond.Value2)
		return amount.GreaterThanOrEqual(expected) && amount.LessThanOrEqual(upper)
	}
	return false
}

// operand parses a numeric operand; anything unparsable counts as zero.
func operand(v model.ConditionValue) decimal.Decimal {
	d, ok := v.Decimal()
	if !ok {
		return decimal.Zero
	}
	return d
}
