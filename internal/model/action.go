package model

import (
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// ActionType identifies a rule action on the wire.
type ActionType string

// Action types.
const (
	ActionAddTags        ActionType = "add_tags"
	ActionSetType        ActionType = "set_type"
	ActionSetDescription ActionType = "set_description"
	ActionSetCategory    ActionType = "set_category"
	ActionMarkExpense    ActionType = "mark_expense"
	ActionMarkIncome     ActionType = "mark_income"
	ActionSkip           ActionType = "skip"
	ActionFlagReview     ActionType = "flag_review"
)

// RuleAction is one effect applied to a result when a rule matches.
// The set of actions is closed; each variant folds itself into a result.
type RuleAction interface {
	// Type returns the wire identifier of the action.
	Type() ActionType
	// Apply folds the action into result.
	Apply(result *RuleEngineResult)
	isRuleAction()
}

// AddTags unions its tags into the result.
type AddTags struct {
	Tags []string
}

// SetType overrides the transaction type. An empty value is ignored.
type SetType struct {
	TransactionType string
}

// SetDescription overrides the transaction description. An empty value is ignored.
type SetDescription struct {
	Description string
}

// SetCategory assigns a category. An empty value is ignored.
type SetCategory struct {
	Category string
}

// MarkExpense marks the payment as an expense and clears income.
type MarkExpense struct{}

// MarkIncome marks the payment as income and clears expense.
type MarkIncome struct{}

// Skip excludes the payment from downstream import.
type Skip struct{}

// FlagReview flags the payment for manual review.
type FlagReview struct {
	ReviewNote string
}

func (AddTags) Type() ActionType        { return ActionAddTags }
func (SetType) Type() ActionType        { return ActionSetType }
func (SetDescription) Type() ActionType { return ActionSetDescription }
func (SetCategory) Type() ActionType    { return ActionSetCategory }
func (MarkExpense) Type() ActionType    { return ActionMarkExpense }
func (MarkIncome) Type() ActionType     { return ActionMarkIncome }
func (Skip) Type() ActionType           { return ActionSkip }
func (FlagReview) Type() ActionType     { return ActionFlagReview }

func (AddTags) isRuleAction()        {}
func (SetType) isRuleAction()        {}
func (SetDescription) isRuleAction() {}
func (SetCategory) isRuleAction()    {}
func (MarkExpense) isRuleAction()    {}
func (MarkIncome) isRuleAction()     {}
func (Skip) isRuleAction()           {}
func (FlagReview) isRuleAction()     {}

// Apply implements RuleAction.
func (a AddTags) Apply(r *RuleEngineResult) {
	for _, tag := range a.Tags {
		r.AddTag(tag)
	}
}

// Apply implements RuleAction.
func (a SetType) Apply(r *RuleEngineResult) {
	if a.TransactionType != "" {
		r.TransactionType = a.TransactionType
	}
}

// Apply implements RuleAction.
func (a SetDescription) Apply(r *RuleEngineResult) {
	if a.Description != "" {
		r.TransactionDescription = a.Description
	}
}

// Apply implements RuleAction.
func (a SetCategory) Apply(r *RuleEngineResult) {
	if a.Category != "" {
		r.Category = a.Category
	}
}

// Apply implements RuleAction.
func (MarkExpense) Apply(r *RuleEngineResult) {
	r.IsExpense = true
	r.IsIncome = false
}

// Apply implements RuleAction.
func (MarkIncome) Apply(r *RuleEngineResult) {
	r.IsIncome = true
	r.IsExpense = false
}

// Apply implements RuleAction.
func (Skip) Apply(r *RuleEngineResult) {
	r.Skipped = true
}

// Apply implements RuleAction.
func (a FlagReview) Apply(r *RuleEngineResult) {
	r.FlaggedForReview = true
	r.ReviewNote = a.ReviewNote
}

// actionWire is the portable form of an action: a type tag plus the payload
// field that belongs to that type.
type actionWire struct {
	Type            ActionType `json:"type" yaml:"type"`
	TransactionType string     `json:"transactionType,omitempty" yaml:"transactionType,omitempty"`
	Description     string     `json:"description,omitempty" yaml:"description,omitempty"`
	Category        string     `json:"category,omitempty" yaml:"category,omitempty"`
	ReviewNote      string     `json:"reviewNote,omitempty" yaml:"reviewNote,omitempty"`
	Tags            []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func toWire(a RuleAction) actionWire {
	w := actionWire{Type: a.Type()}
	switch v := a.(type) {
	case AddTags:
		w.Tags = slices.Clone(v.Tags)
	case SetType:
		w.TransactionType = v.TransactionType
	case SetDescription:
		w.Description = v.Description
	case SetCategory:
		w.Category = v.Category
	case FlagReview:
		w.ReviewNote = v.ReviewNote
	}
	return w
}

func (w actionWire) action() (RuleAction, error) {
	switch w.Type {
	case ActionAddTags:
		return AddTags{Tags: w.Tags}, nil
	case ActionSetType:
		return SetType{TransactionType: w.TransactionType}, nil
	case ActionSetDescription:
		return SetDescription{Description: w.Description}, nil
	case ActionSetCategory:
		return SetCategory{Category: w.Category}, nil
	case ActionMarkExpense:
		return MarkExpense{}, nil
	case ActionMarkIncome:
		return MarkIncome{}, nil
	case ActionSkip:
		return Skip{}, nil
	case ActionFlagReview:
		return FlagReview{ReviewNote: w.ReviewNote}, nil
	case "":
		return nil, fmt.Errorf("action type is required")
	default:
		return nil, fmt.Errorf("unknown action type %q", w.Type)
	}
}

// CloneAction returns a copy of a that shares no memory with it.
func CloneAction(a RuleAction) RuleAction {
	if t, ok := a.(AddTags); ok {
		return AddTags{Tags: slices.Clone(t.Tags)}
	}
	return a
}

// Actions is an ordered list of rule actions with a portable encoding.
type Actions []RuleAction

// Clone deep-copies the list.
func (as Actions) Clone() Actions {
	if as == nil {
		return nil
	}
	out := make(Actions, len(as))
	for i, a := range as {
		out[i] = CloneAction(a)
	}
	return out
}

// Types returns the action types in order.
func (as Actions) Types() []ActionType {
	out := make([]ActionType, len(as))
	for i, a := range as {
		out[i] = a.Type()
	}
	return out
}

func (as Actions) wire() []actionWire {
	out := make([]actionWire, len(as))
	for i, a := range as {
		out[i] = toWire(a)
	}
	return out
}

func fromWire(ws []actionWire) (Actions, error) {
	out := make(Actions, 0, len(ws))
	for i, w := range ws {
		a, err := w.action()
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler.
func (as Actions) MarshalJSON() ([]byte, error) {
	return json.Marshal(as.wire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (as *Actions) UnmarshalJSON(data []byte) error {
	var ws []actionWire
	if err := json.Unmarshal(data, &ws); err != nil {
		return err
	}
	decoded, err := fromWire(ws)
	if err != nil {
		return err
	}
	*as = decoded
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (as Actions) MarshalYAML() (any, error) {
	return as.wire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (as *Actions) UnmarshalYAML(node *yaml.Node) error {
	var ws []actionWire
	if err := node.Decode(&ws); err != nil {
		return err
	}
	decoded, err := fromWire(ws)
	if err != nil {
		return err
	}
	*as = decoded
	return nil
}
