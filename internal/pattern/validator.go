package pattern

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/google/uuid"
)

// MaxNameLength is the longest rule name accepted, in characters.
const MaxNameLength = 100

// Validator checks and normalizes authored rules. It never fails: every
// problem found is reported in the returned ValidationResult.
type Validator struct{}

// NewValidator creates a rule validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate lists every problem in draft.
func (v *Validator) Validate(draft model.RuleDraft) model.ValidationResult {
	var errs []model.ValidationError
	add := func(field, msg string, code model.ValidationCode) {
		errs = append(errs, model.ValidationError{Field: field, Message: msg, Code: code})
	}

	name := strings.TrimSpace(draft.Name)
	if name == "" {
		add("name", "Nome da regra é obrigatório", model.CodeRequired)
	}
	if utf8.RuneCountInString(draft.Name) > MaxNameLength {
		add("name", fmt.Sprintf("Nome da regra deve ter no máximo %d caracteres", MaxNameLength), model.CodeInvalidValue)
	}

	if !hasMarketplace(draft.Marketplaces) {
		add("marketplaces", "Marketplace é obrigatório", model.CodeRequired)
	}

	if draft.ConditionLogic != "" && !model.ConditionLogic(strings.ToUpper(string(draft.ConditionLogic))).IsValid() {
		add("conditionLogic", "Lógica deve ser AND ou OR", model.CodeInvalidValue)
	}

	if len(draft.Conditions) == 0 {
		add("conditions", "Pelo menos uma condição é obrigatória", model.CodeRequired)
	}
	for i, cond := range draft.Conditions {
		errs = append(errs, validateCondition(cond, i)...)
	}

	if len(draft.Actions) == 0 {
		add("actions", "Pelo menos uma ação é obrigatória", model.CodeRequired)
	}
	for i, action := range draft.Actions {
		errs = append(errs, validateAction(action, i)...)
	}

	if draft.Priority != 0 && (draft.Priority < model.MinPriority || draft.Priority > model.MaxPriority) {
		add("priority", fmt.Sprintf("Prioridade deve estar entre %d e %d", model.MinPriority, model.MaxPriority), model.CodeInvalidValue)
	}

	return model.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func hasMarketplace(marketplaces []string) bool {
	for _, m := range marketplaces {
		if strings.TrimSpace(m) != "" {
			return true
		}
	}
	return false
}

func validateCondition(cond model.RuleCondition, index int) []model.ValidationError {
	var errs []model.ValidationError
	prefix := fmt.Sprintf("conditions[%d]", index)
	add := func(field, msg string, code model.ValidationCode) {
		errs = append(errs, model.ValidationError{Field: prefix + "." + field, Message: msg, Code: code})
	}

	field := model.NormalizeConditionField(string(cond.Field))
	switch {
	case cond.Field == "":
		add("field", "Campo é obrigatório", model.CodeRequired)
	case !field.IsValid():
		add("field", fmt.Sprintf("Campo %q não é suportado", cond.Field), model.CodeInvalidValue)
	}

	switch {
	case cond.Operator == "":
		add("operator", "Operador é obrigatório", model.CodeRequired)
	case !cond.Operator.IsValid():
		add("operator", fmt.Sprintf("Operador %q não é suportado", cond.Operator), model.CodeInvalidValue)
	case field.IsValid() && !IsOperatorValidForField(cond.Operator, field):
		add("operator", fmt.Sprintf("Operador %q não se aplica ao campo %q", OperatorLabel(cond.Operator), FieldLabel(field)), model.CodeInvalidValue)
	}

	if cond.Value.IsEmpty() {
		add("value", "Valor é obrigatório", model.CodeRequired)
	}

	if cond.Operator == model.OperatorRegex && !cond.Value.IsEmpty() {
		if _, err := common.CompileFolded(cond.Value.String()); err != nil {
			add("value", "Expressão regular inválida", model.CodeInvalidRegex)
		}
	}

	if cond.Operator == model.OperatorBetween {
		switch {
		case cond.Value2 == nil || cond.Value2.IsEmpty():
			add("value2", `Segundo valor é obrigatório para operador "entre"`, model.CodeRequired)
		case !isNumeric(*cond.Value2):
			add("value2", "Segundo valor deve ser numérico", model.CodeInvalidValue)
		}
	}

	if (cond.Operator.IsNumericOnly() || field.IsNumeric()) && !cond.Value.IsEmpty() && !isNumeric(cond.Value) {
		add("value", "Valor deve ser numérico para este operador", model.CodeInvalidValue)
	}

	return errs
}

func isNumeric(v model.ConditionValue) bool {
	_, ok := v.Decimal()
	return ok
}

func validateAction(action model.RuleAction, index int) []model.ValidationError {
	prefix := fmt.Sprintf("actions[%d]", index)
	required := func(field, msg string) []model.ValidationError {
		return []model.ValidationError{{Field: prefix + "." + field, Message: msg, Code: model.CodeRequired}}
	}

	switch a := action.(type) {
	case nil:
		return required("type", "Tipo de ação é obrigatório")
	case model.AddTags:
		for _, tag := range a.Tags {
			if strings.TrimSpace(tag) != "" {
				return nil
			}
		}
		return required("tags", `Pelo menos uma tag é obrigatória para ação "adicionar tags"`)
	case model.SetCategory:
		if strings.TrimSpace(a.Category) == "" {
			return required("category", `Categoria é obrigatória para ação "definir categoria"`)
		}
	case model.SetType:
		if strings.TrimSpace(a.TransactionType) == "" {
			return required("transactionType", `Tipo é obrigatório para ação "definir tipo"`)
		}
	case model.SetDescription:
		if strings.TrimSpace(a.Description) == "" {
			return required("description", `Descrição é obrigatória para ação "definir descrição"`)
		}
	}
	return nil
}

// Sanitize returns a normalized copy of draft: strings trimmed, marketplaces
// and tags lowercased, priority clamped, and optional flags defaulted.
func (v *Validator) Sanitize(draft model.RuleDraft) model.RuleDraft {
	out := draft
	out.Name = strings.TrimSpace(draft.Name)
	out.Description = strings.TrimSpace(draft.Description)
	out.Marketplaces = model.NormalizeMarketplaces(draft.Marketplaces)

	out.ConditionLogic = model.ConditionLogic(strings.ToUpper(strings.TrimSpace(string(draft.ConditionLogic))))
	if !out.ConditionLogic.IsValid() {
		out.ConditionLogic = model.LogicAnd
	}

	out.Conditions = make([]model.RuleCondition, len(draft.Conditions))
	for i, cond := range draft.Conditions {
		cond.Field = model.NormalizeConditionField(string(cond.Field))
		cond.Operator = model.ConditionOperator(strings.ToLower(strings.TrimSpace(string(cond.Operator))))
		cond.Value = cond.Value.Trimmed()
		if cond.Value2 != nil {
			v2 := cond.Value2.Trimmed()
			cond.Value2 = &v2
		}
		if strings.TrimSpace(cond.ID) == "" {
			cond.ID = ConditionID(out.Name, i, cond)
		}
		out.Conditions[i] = cond
	}

	out.Actions = make(model.Actions, 0, len(draft.Actions))
	for _, action := range draft.Actions {
		if action == nil {
			continue
		}
		out.Actions = append(out.Actions, sanitizeAction(action))
	}

	out.Priority = ClampPriority(draft.Priority)

	enabled, stop := true, false
	if draft.Enabled != nil {
		enabled = *draft.Enabled
	}
	if draft.StopOnMatch != nil {
		stop = *draft.StopOnMatch
	}
	out.Enabled, out.StopOnMatch = &enabled, &stop

	return out
}

func sanitizeAction(action model.RuleAction) model.RuleAction {
	switch a := action.(type) {
	case model.AddTags:
		tags := make([]string, 0, len(a.Tags))
		for _, tag := range a.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			tags = append(tags, tag)
		}
		return model.AddTags{Tags: tags}
	case model.SetCategory:
		return model.SetCategory{Category: strings.ToLower(strings.TrimSpace(a.Category))}
	case model.SetType:
		return model.SetType{TransactionType: strings.TrimSpace(a.TransactionType)}
	case model.SetDescription:
		return model.SetDescription{Description: strings.TrimSpace(a.Description)}
	case model.FlagReview:
		return model.FlagReview{ReviewNote: strings.TrimSpace(a.ReviewNote)}
	}
	return action
}

// ClampPriority maps an unset priority to the default and clamps the rest to 1–100.
func ClampPriority(p int) int {
	if p == 0 {
		return model.DefaultPriority
	}
	return max(model.MinPriority, min(model.MaxPriority, p))
}

// ConditionID derives a stable id for a condition from its rule name and position.
func ConditionID(ruleName string, index int, cond model.RuleCondition) string {
	key := fmt.Sprintf("%s:%d:%s:%s:%s", ruleName, index, cond.Field, cond.Operator, cond.Value.String())
	return "cond_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()[:8]
}

// ValidateUnique reports DUPLICATE_NAME when another rule already uses the
// draft's name. selfID excludes the rule being updated.
func (v *Validator) ValidateUnique(draft model.RuleDraft, existing []model.AutoRule, selfID string) model.ValidationResult {
	name := NormalizeText(draft.Name)
	for _, r := range existing {
		if r.ID == selfID {
			continue
		}
		if NormalizeText(r.Name) == name {
			return model.ValidationResult{
				Valid: false,
				Errors: []model.ValidationError{{
					Field:   "name",
					Message: fmt.Sprintf("Já existe uma regra chamada %q", r.Name),
					Code:    model.CodeDuplicateName,
				}},
			}
		}
	}
	return model.ValidationResult{Valid: true}
}
