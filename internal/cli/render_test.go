package cli

import (
	"bytes"
	"testing"

	"github.com/Veraticus/spice-rules/internal/classification"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func payment(orderID, desc, amount string) model.PaymentInput {
	return model.PaymentInput{
		MarketplaceOrderID:     orderID,
		TransactionDescription: desc,
		Amount:                 decimal.RequireFromString(amount),
	}
}

func TestRenderer_Results(t *testing.T) {
	freight := model.NewRuleEngineResult()
	freight.Tags = []string{"frete"}
	freight.IsExpense = true

	review := model.NewRuleEngineResult()
	review.Tags = []string{"ajuste", "alto-valor"}
	review.IsIncome = true
	review.FlaggedForReview = true
	review.ReviewNote = "Valor acima de R$ 500"

	var buf bytes.Buffer
	err := NewPlainRenderer(&buf).Results([]ClassifiedPayment{
		{Payment: payment("A1", "Frete grátis", "-12.5"), Result: freight},
		{Payment: payment("A2", "Venda produto", "150"), Result: model.NewRuleEngineResult()},
		{Payment: payment("", "Ajuste de saldo", "1000"), Result: review},
	})
	require.NoError(t, err)

	newGoldie(t).Assert(t, "results", buf.Bytes())
}

func TestRenderer_Trace(t *testing.T) {
	p := payment("A1", "Frete grátis", "-12.5")
	p.TransactionType = "Débito"

	res := model.NewRuleEngineResult()
	res.Tags = []string{"frete"}
	res.IsExpense = true
	res.TotalRulesEvaluated = 2
	res.MatchedRules = []model.RuleMatchResult{
		{
			RuleID:   "system_reembolso",
			RuleName: "Reembolso",
			ConditionResults: []model.ConditionEvalResult{{
				Field:         model.FieldFullText,
				Operator:      model.OperatorRegex,
				ExpectedValue: model.TextValue("reembolso|estorno"),
				ActualValue:   "Frete grátis Débito",
			}},
			AppliedActions:  model.Actions{},
			TotalConditions: 1,
		},
		{
			RuleID:   "system_frete",
			RuleName: "Frete",
			ConditionResults: []model.ConditionEvalResult{{
				Field:         model.FieldFullText,
				Operator:      model.OperatorContains,
				ExpectedValue: model.TextValue("frete"),
				ActualValue:   "Frete grátis Débito",
				Matched:       true,
			}},
			AppliedActions:    model.Actions{model.AddTags{Tags: []string{"frete"}}},
			MatchedConditions: 1,
			TotalConditions:   1,
			Matched:           true,
			StoppedProcessing: true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPlainRenderer(&buf).Trace(p, res))

	newGoldie(t).Assert(t, "trace", buf.Bytes())
}

func TestRenderer_Rules(t *testing.T) {
	sys, ok := classification.SystemRule("system_frete")
	require.True(t, ok)

	user := model.AutoRule{
		ID:           "rule-1",
		Name:         "Bônus loja",
		Marketplaces: []string{"shopee", "magalu"},
		Priority:     60,
		MatchCount:   3,
	}

	var buf bytes.Buffer
	require.NoError(t, NewPlainRenderer(&buf).Rules([]model.AutoRule{sys, user}))

	newGoldie(t).Assert(t, "rules", buf.Bytes())
}

func TestRenderer_Lint(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(&buf)

	require.NoError(t, r.Lint(nil))
	assert.Equal(t, "✓ Nenhum problema encontrado\n", buf.String())

	buf.Reset()
	require.NoError(t, r.Lint([]model.LintWarning{{
		Kind:    model.LintSimilarName,
		Message: `"Tarifa" e "Tarifas" têm nomes parecidos`,
	}}))
	assert.Contains(t, buf.String(), "[similar_name]")
	assert.Contains(t, buf.String(), "nomes parecidos")
}

func TestRenderer_Templates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainRenderer(&buf).Templates(string(classification.CategoryAlerts)))

	out := buf.String()
	assert.Contains(t, out, "Alertas")
	assert.Contains(t, out, "template_high_value")
	assert.Contains(t, out, "template_negative")
	assert.NotContains(t, out, "template_shipping")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "ação…", truncate("açãoxyz", 5))
}
