package engine

import "github.com/Veraticus/spice-rules/internal/model"

// Fold applies actions to result left to right. Tags are unioned, scalar
// overrides are last-writer-wins, expense and income exclude each other,
// skip is sticky and flag_review overwrites the note.
func Fold(result *model.RuleEngineResult, actions model.Actions) {
	for _, a := range actions {
		if a == nil {
			continue
		}
		a.Apply(result)
	}
}
