package engine

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/shopspring/decimal"
)

// SimulatedRuleID is the id a rule gets while it is being simulated.
const SimulatedRuleID = "simulate_rule"

// SimulationResult is the outcome of one payment in a simulation.
type SimulationResult struct {
	Payment        model.PaymentInput     `json:"payment"`
	MatchDetails   *model.RuleMatchResult `json:"matchDetails,omitempty"`
	AppliedTags    []string               `json:"appliedTags"`
	AppliedActions []string               `json:"appliedActions"`
	Matched        bool                   `json:"matched"`
}

// SimulationSummary aggregates a simulation.
type SimulationSummary struct {
	TotalImpact       decimal.Decimal `json:"totalImpact"`
	AvgImpactPerMatch decimal.Decimal `json:"avgImpactPerMatch"`
	Tested            int             `json:"tested"`
	Matched           int             `json:"matched"`
	MatchRate         int             `json:"matchRate"`
}

// SimulationReport is what Simulate returns.
type SimulationReport struct {
	Rule    model.AutoRule     `json:"rule"`
	Results []SimulationResult `json:"results"`
	Summary SimulationSummary  `json:"summary"`
}

// Simulate runs a single rule in isolation against payments, without touching
// any stored state. The rule is forced enabled so drafts can be previewed.
func Simulate(rule model.AutoRule, payments []model.PaymentInput, scope string) SimulationReport {
	rule = rule.Clone()
	rule.ID = SimulatedRuleID
	rule.Enabled = true

	e := New([]model.AutoRule{rule}, WithMemoization(false))
	report := SimulationReport{
		Rule:    rule,
		Results: make([]SimulationResult, 0, len(payments)),
	}

	for _, p := range payments {
		res := e.Process(p, scope)
		sr := SimulationResult{
			Payment:        p,
			AppliedTags:    []string{},
			AppliedActions: []string{},
		}
		if len(res.MatchedRules) > 0 {
			m := res.MatchedRules[0]
			sr.MatchDetails = &m
			sr.Matched = m.Matched
		}
		if sr.Matched {
			sr.AppliedTags = res.Tags
			for _, a := range rule.Actions {
				sr.AppliedActions = append(sr.AppliedActions, DescribeAction(a))
			}
			report.Summary.Matched++
			report.Summary.TotalImpact = report.Summary.TotalImpact.Add(p.Amount.Abs())
		}
		report.Results = append(report.Results, sr)
	}

	report.Summary.Tested = len(payments)
	if report.Summary.Tested > 0 {
		rate := decimal.NewFromInt(int64(report.Summary.Matched)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(report.Summary.Tested))).
			Round(0)
		report.Summary.MatchRate = int(rate.IntPart())
	}
	if report.Summary.Matched > 0 {
		report.Summary.AvgImpactPerMatch = report.Summary.TotalImpact.
			Div(decimal.NewFromInt(int64(report.Summary.Matched))).
			Round(2)
	}
	return report
}

// DescribeAction renders an action for people.
func DescribeAction(a model.RuleAction) string {
	switch act := a.(type) {
	case model.AddTags:
		return "Tags: " + strings.Join(act.Tags, ", ")
	case model.SetType:
		return "Tipo: " + act.TransactionType
	case model.SetDescription:
		return "Descrição: " + act.Description
	case model.SetCategory:
		return "Categoria: " + act.Category
	case model.MarkExpense:
		return "Marcar saída"
	case model.MarkIncome:
		return "Marcar entrada"
	case model.Skip:
		return "Ignorar"
	case model.FlagReview:
		if act.ReviewNote == "" {
			return "Revisar"
		}
		return fmt.Sprintf("Revisar: %s", act.ReviewNote)
	default:
		return string(a.Type())
	}
}
