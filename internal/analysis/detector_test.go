package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return now.Add(-time.Duration(n) * 24 * time.Hour)
}

func stat(id string, matches int, impact int64, createdDaysAgo int, appliedDaysAgo int) RuleStats {
	s := RuleStats{
		RuleID:      id,
		RuleName:    "Regra " + id,
		MatchCount:  matches,
		TotalImpact: decimal.NewFromInt(impact),
		CreatedAt:   daysAgo(createdDaysAgo),
	}
	if appliedDaysAgo >= 0 {
		at := daysAgo(appliedDaysAgo)
		s.LastAppliedAt = &at
	}
	return s
}

func TestDetectAnomalies_Empty(t *testing.T) {
	report := DetectAnomalies(nil, now, 0)

	assert.Empty(t, report.Alerts)
	assert.NotNil(t, report.Alerts)
	assert.Equal(t, 0, report.Summary.Total)
	assert.Equal(t, DefaultDaysBack, report.Stats.AnalyzedDays)
	assert.Equal(t, 0, report.Stats.TotalRules)
}

func TestDetectAnomalies_HighFrequency(t *testing.T) {
	var stats []RuleStats
	for i := range 10 {
		stats = append(stats, stat(fmt.Sprintf("r%d", i), 2, 0, 5, -1))
	}
	stats = append(stats, stat("busy", 100, 0, 5, 1))

	report := DetectAnomalies(stats, now, 30)
	require.Len(t, report.Alerts, 1)

	a := report.Alerts[0]
	assert.Equal(t, "busy", a.RuleID)
	assert.Equal(t, AlertHighFrequency, a.Type)
	assert.Equal(t, SeverityWarning, a.Severity)
	assert.Equal(t, "Esta regra bateu 9x mais que a média", a.Message)
	assert.Equal(t, 11, a.Details["average"])
	assert.Equal(t, 9, a.Details["multiplier"])

	assert.Equal(t, 11, report.Stats.TotalRules)
	assert.Equal(t, 11, report.Stats.AvgMatchCount)
}

func TestDetectAnomalies_Dormant(t *testing.T) {
	stats := []RuleStats{
		stat("old", 5, 0, 40, 35),
		stat("never", 5, 0, 10, -1),
		stat("young", 5, 0, 6, -1),
	}

	report := DetectAnomalies(stats, now, 7)
	require.Len(t, report.Alerts, 2)

	assert.Equal(t, "old", report.Alerts[0].RuleID)
	assert.Equal(t, AlertDormant, report.Alerts[0].Type)
	assert.Equal(t, SeverityWarning, report.Alerts[0].Severity)
	assert.Equal(t, "Regra não aplicada há 35 dias", report.Alerts[0].Message)
	assert.Equal(t, 40, report.Alerts[0].Details["ruleAgeDays"])
	assert.Contains(t, report.Alerts[0].Details, "lastAppliedAt")

	assert.Equal(t, "never", report.Alerts[1].RuleID)
	assert.Equal(t, SeverityInfo, report.Alerts[1].Severity)
	assert.Equal(t, "Regra não aplicada há 10 dias", report.Alerts[1].Message)
	assert.NotContains(t, report.Alerts[1].Details, "lastAppliedAt")
}

func TestDetectAnomalies_HighImpact(t *testing.T) {
	stats := []RuleStats{
		stat("big", 10, 600, 3, 0),
		stat("mid", 10, 350, 3, 0),
		stat("small", 10, 100, 3, 0),
	}

	report := DetectAnomalies(stats, now, 30)
	require.Len(t, report.Alerts, 2)

	assert.Equal(t, "big", report.Alerts[0].RuleID)
	assert.Equal(t, SeverityWarning, report.Alerts[0].Severity)
	assert.Equal(t, "Esta regra representa 57% do impacto financeiro total", report.Alerts[0].Message)
	assert.Equal(t, "mid", report.Alerts[1].RuleID)
	assert.Equal(t, SeverityInfo, report.Alerts[1].Severity)
	assert.Equal(t, 33, report.Alerts[1].Details["percentage"])

	assert.Equal(t, 2, report.Summary.ByType[AlertHighImpact])
	assert.Equal(t, 1, report.Summary.BySeverity[SeverityWarning])
	assert.Equal(t, 1, report.Summary.BySeverity[SeverityInfo])
	assert.True(t, decimal.NewFromInt(350).Equal(report.Stats.AvgImpact))
}

func TestDetectAnomalies_LowFrequency(t *testing.T) {
	stats := []RuleStats{
		stat("rare", 2, 0, 20, 1),
		stat("unused", 0, 0, 20, -1),
	}

	report := DetectAnomalies(stats, now, 30)
	require.Len(t, report.Alerts, 1)

	a := report.Alerts[0]
	assert.Equal(t, "rare", a.RuleID)
	assert.Equal(t, AlertLowFrequency, a.Type)
	assert.Equal(t, SeverityInfo, a.Severity)
	assert.Equal(t, "Regra de 20 dias com apenas 2 match(es)", a.Message)
	assert.Equal(t, "0.100", a.Details["matchesPerDay"])
}

func TestDetectAnomalies_OrdersByMatchCount(t *testing.T) {
	stats := []RuleStats{
		stat("quiet", 1, 0, 40, 35),
		stat("loud", 9, 0, 40, 35),
	}

	report := DetectAnomalies(stats, now, 30)
	require.NotEmpty(t, report.Alerts)
	assert.Equal(t, "loud", report.Alerts[0].RuleID)
}

func TestFromRules(t *testing.T) {
	applied := daysAgo(2)
	rules := []model.AutoRule{
		{ID: "a", Name: "Ativa", Enabled: true, MatchCount: 4, TotalImpact: decimal.NewFromInt(20), LastAppliedAt: &applied, CreatedAt: daysAgo(10)},
		{ID: "b", Name: "Desligada", Enabled: false, MatchCount: 9},
		{ID: "system_frete", Name: "Frete", Enabled: true, IsSystemRule: true},
	}

	stats := FromRules(rules)
	require.Len(t, stats, 1)
	assert.Equal(t, "a", stats[0].RuleID)
	assert.Equal(t, 4, stats[0].MatchCount)
	assert.Equal(t, &applied, stats[0].LastAppliedAt)
}
