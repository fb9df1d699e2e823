package pattern

import (
	"slices"
	"strings"

	"github.com/Veraticus/spice-rules/internal/model"
)

// ConflictKind describes how a candidate rule collides with an existing one.
type ConflictKind string

// Conflict kinds.
const (
	ConflictNone            ConflictKind = ""
	ConflictDuplicate       ConflictKind = "duplicate"
	ConflictSystemDuplicate ConflictKind = "system-duplicate"
	ConflictDiffersInAction ConflictKind = "conflict"
)

// Conflict pairs a collision kind with the existing rule involved.
type Conflict struct {
	Rule model.AutoRule
	Kind ConflictKind
}

// RuleSignature identifies what a rule matches: its logic plus its
// normalized conditions in a canonical order. Condition ids are ignored.
func RuleSignature(logic model.ConditionLogic, conds []model.RuleCondition) string {
	l := strings.ToUpper(string(logic))
	if l == "" {
		l = string(model.LogicAnd)
	}

	parts := make([]string, len(conds))
	for i, c := range conds {
		op := model.ConditionOperator(strings.ToLower(string(c.Operator)))
		v2 := ""
		if c.Value2 != nil {
			v2 = signatureValue(*c.Value2, op)
		}
		parts[i] = strings.Join([]string{
			string(model.NormalizeConditionField(string(c.Field))),
			string(op),
			signatureValue(c.Value, op),
			v2,
		}, "\x1f")
	}
	slices.Sort(parts)

	return l + "\x1e" + strings.Join(parts, "\x1e")
}

func signatureValue(v model.ConditionValue, op model.ConditionOperator) string {
	if op == model.OperatorRegex {
		return strings.TrimSpace(v.String())
	}
	if d, ok := v.Decimal(); ok {
		return "#" + d.String()
	}
	return NormalizeText(v.String())
}

// ActionsSignature identifies what a rule does, independent of action order
// and of tag order and case.
func ActionsSignature(actions model.Actions) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		var payload string
		switch v := a.(type) {
		case model.AddTags:
			tags := make([]string, len(v.Tags))
			for j, t := range v.Tags {
				tags[j] = NormalizeText(t)
			}
			slices.Sort(tags)
			payload = strings.Join(tags, ",")
		case model.SetType:
			payload = NormalizeText(v.TransactionType)
		case model.SetDescription:
			payload = NormalizeText(v.Description)
		case model.SetCategory:
			payload = NormalizeText(v.Category)
		}
		parts[i] = string(a.Type()) + "\x1f" + payload
	}
	slices.Sort(parts)
	return strings.Join(parts, "\x1e")
}

// FindConflict compares a candidate against enabled existing rules. A rule
// with the same conditions and actions is a duplicate (or a system duplicate
// when it is built in). A rule with the same conditions but different actions
// on an overlapping scope is a conflict. Duplicates are reported first.
func FindConflict(candidate model.AutoRule, existing []model.AutoRule) Conflict {
	sig := RuleSignature(candidate.ConditionLogic, candidate.Conditions)
	acts := ActionsSignature(candidate.Actions)

	for _, r := range existing {
		if !r.Enabled || r.ID == candidate.ID {
			continue
		}
		if RuleSignature(r.ConditionLogic, r.Conditions) != sig || ActionsSignature(r.Actions) != acts {
			continue
		}
		if r.IsSystemRule {
			return Conflict{Kind: ConflictSystemDuplicate, Rule: r}
		}
		return Conflict{Kind: ConflictDuplicate, Rule: r}
	}

	for _, r := range existing {
		if !r.Enabled || r.ID == candidate.ID {
			continue
		}
		if !model.MarketplacesOverlap(r.Marketplaces, candidate.Marketplaces) {
			continue
		}
		if RuleSignature(r.ConditionLogic, r.Conditions) == sig && ActionsSignature(r.Actions) != acts {
			return Conflict{Kind: ConflictDiffersInAction, Rule: r}
		}
	}

	return Conflict{Kind: ConflictNone}
}
