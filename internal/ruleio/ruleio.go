// Package ruleio reads and writes portable rule documents used to back up
// and share user rules.
package ruleio

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/pattern"
	"gopkg.in/yaml.v3"
)

// Version is the document format version written by Export.
const Version = "1.0"

// Format is a document encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Anything that is
// not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q", name)
	}
}

// Document is an exported rule set.
type Document struct {
	Version     string         `json:"version" yaml:"version"`
	ExportedAt  time.Time      `json:"exportedAt" yaml:"exportedAt"`
	Marketplace string         `json:"marketplace,omitempty" yaml:"marketplace,omitempty"`
	Rules       []ExportedRule `json:"rules" yaml:"rules"`
}

// ExportedRule is a rule without its identity, timestamps or usage metrics.
type ExportedRule struct {
	Name           string                `json:"name" yaml:"name"`
	Description    string                `json:"description,omitempty" yaml:"description,omitempty"`
	Marketplaces   []string              `json:"marketplaces" yaml:"marketplaces"`
	Conditions     []model.RuleCondition `json:"conditions" yaml:"conditions"`
	ConditionLogic model.ConditionLogic  `json:"conditionLogic" yaml:"conditionLogic"`
	Actions        model.Actions         `json:"actions" yaml:"actions"`
	Priority       int                   `json:"priority" yaml:"priority"`
	Enabled        bool                  `json:"enabled" yaml:"enabled"`
	StopOnMatch    bool                  `json:"stopOnMatch" yaml:"stopOnMatch"`
	IsSystemRule   bool                  `json:"isSystemRule" yaml:"isSystemRule"`
}

// Export builds a document from rules. System rules are left out.
func Export(rules []model.AutoRule, marketplace string, now time.Time) Document {
	doc := Document{
		Version:     Version,
		ExportedAt:  now.UTC(),
		Marketplace: marketplace,
		Rules:       make([]ExportedRule, 0, len(rules)),
	}
	for _, r := range rules {
		if r.IsSystemRule {
			continue
		}
		r = r.Clone()
		doc.Rules = append(doc.Rules, ExportedRule{
			Name:           r.Name,
			Description:    r.Description,
			Marketplaces:   r.Marketplaces,
			Conditions:     r.Conditions,
			ConditionLogic: r.ConditionLogic,
			Actions:        r.Actions,
			Priority:       r.Priority,
			Enabled:        r.Enabled,
			StopOnMatch:    r.StopOnMatch,
		})
	}
	return doc
}

// Encode writes doc in the given format.
func Encode(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode rules: %w", err)
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode rules: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
}

// Result is the outcome of an import. Success means the document parsed and
// at least one rule passed validation.
type Result struct {
	Rules   []model.RuleDraft
	Errors  []string
	Success bool
}

// importedRule is a rule as found in a document. Marketplace is the legacy
// single-marketplace field.
type importedRule struct {
	Enabled        *bool                 `json:"enabled" yaml:"enabled"`
	StopOnMatch    *bool                 `json:"stopOnMatch" yaml:"stopOnMatch"`
	Name           string                `json:"name" yaml:"name"`
	Description    string                `json:"description" yaml:"description"`
	Marketplace    string                `json:"marketplace" yaml:"marketplace"`
	ConditionLogic model.ConditionLogic  `json:"conditionLogic" yaml:"conditionLogic"`
	Marketplaces   []string              `json:"marketplaces" yaml:"marketplaces"`
	Conditions     []model.RuleCondition `json:"conditions" yaml:"conditions"`
	Actions        model.Actions         `json:"actions" yaml:"actions"`
	Priority       int                   `json:"priority" yaml:"priority"`
}

// rawRule decodes one rule of a document into v.
type rawRule func(v any) error

// Import parses a document and validates every rule in it. Invalid rules are
// reported in Errors and left out; the valid ones come back as drafts with
// defaults filled in.
func Import(data []byte, format Format, checker pattern.RuleChecker) Result {
	version, rules, err := decode(data, format)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Erro ao processar %s: %v", strings.ToUpper(string(format)), err)}}
	}
	if version == "" || rules == nil {
		return Result{Errors: []string{"Formato de arquivo inválido"}}
	}

	res := Result{Rules: make([]model.RuleDraft, 0, len(rules))}
	for i, raw := range rules {
		var in importedRule
		if err := raw(&in); err != nil {
			var named struct {
				Name string `json:"name" yaml:"name"`
			}
			_ = raw(&named)
			res.Errors = append(res.Errors, fmt.Sprintf("Regra %d (%s): %v", i+1, named.Name, err))
			continue
		}

		draft := in.draft(i)
		if v := checker.Validate(draft); !v.Valid {
			msgs := make([]string, len(v.Errors))
			for j, e := range v.Errors {
				msgs[j] = e.Message
			}
			res.Errors = append(res.Errors, fmt.Sprintf("Regra %d (%s): %s", i+1, in.Name, strings.Join(msgs, ", ")))
			continue
		}
		res.Rules = append(res.Rules, draft)
	}

	res.Success = len(res.Rules) > 0
	return res
}

func (in importedRule) draft(index int) model.RuleDraft {
	marketplaces := in.Marketplaces
	if marketplaces == nil {
		marketplaces = []string{model.ScopeAll}
		if in.Marketplace != "" {
			marketplaces = []string{in.Marketplace}
		}
	}

	d := model.RuleDraft{
		Name:           in.Name,
		Description:    in.Description,
		Marketplaces:   model.NormalizeMarketplaces(marketplaces),
		Conditions:     in.Conditions,
		ConditionLogic: in.ConditionLogic,
		Actions:        in.Actions,
		Priority:       in.Priority,
		Enabled:        in.Enabled,
		StopOnMatch:    in.StopOnMatch,
	}
	if d.Name == "" {
		d.Name = fmt.Sprintf("Regra Importada %d", index+1)
	}
	if d.Conditions == nil {
		d.Conditions = []model.RuleCondition{}
	}
	if d.Actions == nil {
		d.Actions = model.Actions{}
	}
	if d.ConditionLogic == "" {
		d.ConditionLogic = model.LogicAnd
	}
	if d.Priority == 0 {
		d.Priority = model.DefaultPriority
	}
	enabled, stop := true, false
	if d.Enabled == nil {
		d.Enabled = &enabled
	}
	if d.StopOnMatch == nil {
		d.StopOnMatch = &stop
	}
	return d
}

// DecodeDraft reads a single rule written the way a document lists it.
// Defaults are filled in as Import does, except for the name.
func DecodeDraft(data []byte, format Format) (model.RuleDraft, error) {
	var in importedRule
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &in)
	} else {
		err = json.Unmarshal(data, &in)
	}
	if err != nil {
		return model.RuleDraft{}, fmt.Errorf("%w: %w", common.ErrInvalidDocument, err)
	}

	d := in.draft(0)
	d.Name = in.Name
	return d, nil
}

// decode splits a document into its version and undecoded rules, so a bad
// rule does not sink the rest of the document.
func decode(data []byte, format Format) (string, []rawRule, error) {
	if format == FormatYAML {
		var doc struct {
			Version string      `yaml:"version"`
			Rules   []yaml.Node `yaml:"rules"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return "", nil, err
		}
		if doc.Rules == nil {
			return doc.Version, nil, nil
		}
		rules := make([]rawRule, len(doc.Rules))
		for i := range doc.Rules {
			node := doc.Rules[i]
			rules[i] = func(v any) error { return node.Decode(v) }
		}
		return doc.Version, rules, nil
	}

	var doc struct {
		Version string            `json:"version"`
		Rules   []json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, err
	}
	if doc.Rules == nil {
		return doc.Version, nil, nil
	}
	rules := make([]rawRule, len(doc.Rules))
	for i := range doc.Rules {
		raw := doc.Rules[i]
		rules[i] = func(v any) error { return json.Unmarshal(raw, v) }
	}
	return doc.Version, rules, nil
}
