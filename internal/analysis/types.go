// Package analysis inspects stored rule usage metrics and reports rules that
// behave unusually.
package analysis

import (
	"time"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/shopspring/decimal"
)

// AlertType names the kind of anomaly a rule shows.
type AlertType string

const (
	// AlertHighFrequency flags a rule that matches far more than its peers.
	AlertHighFrequency AlertType = "high_frequency"
	// AlertLowFrequency flags an old rule that has barely matched.
	AlertLowFrequency AlertType = "low_frequency"
	// AlertHighImpact flags a rule carrying a large share of the money classified.
	AlertHighImpact AlertType = "high_impact"
	// AlertDormant flags a rule that has not been applied recently.
	AlertDormant AlertType = "dormant"
)

// Severity ranks how urgent an alert is.
type Severity string

const (
	// SeverityInfo is worth knowing about.
	SeverityInfo Severity = "info"
	// SeverityWarning deserves a look.
	SeverityWarning Severity = "warning"
	// SeverityCritical needs action.
	SeverityCritical Severity = "critical"
)

// RuleStats is the usage of one enabled rule.
type RuleStats struct {
	CreatedAt     time.Time       `json:"createdAt"`
	LastAppliedAt *time.Time      `json:"lastAppliedAt,omitempty"`
	RuleID        string          `json:"ruleId"`
	RuleName      string          `json:"ruleName"`
	TotalImpact   decimal.Decimal `json:"totalImpact"`
	MatchCount    int             `json:"matchCount"`
}

// Alert is one anomaly found on a rule.
type Alert struct {
	Details  map[string]any `json:"details"`
	RuleID   string         `json:"ruleId"`
	RuleName string         `json:"ruleName"`
	Type     AlertType      `json:"type"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
}

// Summary counts alerts.
type Summary struct {
	ByType     map[AlertType]int `json:"byType"`
	BySeverity map[Severity]int  `json:"bySeverity"`
	Total      int               `json:"total"`
}

// Stats describes the rule set that was analyzed.
type Stats struct {
	AvgImpact     decimal.Decimal `json:"avgImpact"`
	TotalRules    int             `json:"totalRules"`
	AvgMatchCount int             `json:"avgMatchCount"`
	AnalyzedDays  int             `json:"analyzedDays"`
}

// Report is the outcome of an anomaly scan.
type Report struct {
	Alerts  []Alert `json:"alerts"`
	Summary Summary `json:"summary"`
	Stats   Stats   `json:"stats"`
}

// FromRules extracts usage stats from the enabled user rules. Built-in rules
// keep no metrics and are left out.
func FromRules(rules []model.AutoRule) []RuleStats {
	out := make([]RuleStats, 0, len(rules))
	for _, r := range rules {
		if !r.Enabled || r.IsSystemRule {
			continue
		}
		out = append(out, RuleStats{
			RuleID:        r.ID,
			RuleName:      r.Name,
			MatchCount:    r.MatchCount,
			TotalImpact:   r.TotalImpact,
			LastAppliedAt: r.LastAppliedAt,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out
}
