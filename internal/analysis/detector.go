package analysis

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDaysBack is the dormancy window used when none is given.
const DefaultDaysBack = 30

const (
	dormantMinAgeDays      = 7
	dormantWarnAgeDays     = 30
	lowFrequencyMinAgeDays = 14
	lowFrequencyMaxMatches = 3
	highFrequencyWarnRatio = 5
	highImpactShare        = 30
	highImpactWarnShare    = 50
)

var (
	hundred   = decimal.NewFromInt(100)
	impactCut = decimal.New(highImpactShare, -2)
)

// DetectAnomalies scans rule stats as of now. Rules are visited by match
// count, busiest first, so alerts come out in that order. A non-positive
// daysBack falls back to DefaultDaysBack.
func DetectAnomalies(stats []RuleStats, now time.Time, daysBack int) Report {
	if daysBack <= 0 {
		daysBack = DefaultDaysBack
	}

	report := Report{
		Alerts: []Alert{},
		Summary: Summary{
			ByType:     map[AlertType]int{},
			BySeverity: map[Severity]int{},
		},
		Stats: Stats{AnalyzedDays: daysBack, AvgImpact: decimal.Zero},
	}
	if len(stats) == 0 {
		return report
	}

	sorted := slices.Clone(stats)
	slices.SortStableFunc(sorted, func(a, b RuleStats) int {
		return cmp.Compare(b.MatchCount, a.MatchCount)
	})

	n := float64(len(sorted))
	var sumMatches float64
	totalImpact := decimal.Zero
	for _, s := range sorted {
		sumMatches += float64(s.MatchCount)
		totalImpact = totalImpact.Add(s.TotalImpact)
	}
	avgMatch := sumMatches / n

	var variance float64
	for _, s := range sorted {
		d := float64(s.MatchCount) - avgMatch
		variance += d * d
	}
	stdDev := math.Sqrt(variance / n)

	for _, s := range sorted {
		ageDays := days(now.Sub(s.CreatedAt))
		sinceApplied := ageDays
		if s.LastAppliedAt != nil {
			sinceApplied = days(now.Sub(*s.LastAppliedAt))
		}

		if avgMatch > 0 && float64(s.MatchCount) > avgMatch+2*stdDev {
			multiplier := int(math.Round(float64(s.MatchCount) / avgMatch))
			report.add(s, AlertHighFrequency,
				severityIf(multiplier > highFrequencyWarnRatio),
				fmt.Sprintf("Esta regra bateu %dx mais que a média", multiplier),
				map[string]any{
					"matchCount": s.MatchCount,
					"average":    int(math.Round(avgMatch)),
					"multiplier": multiplier,
				})
		}

		if ageDays > dormantMinAgeDays && sinceApplied > float64(daysBack) {
			details := map[string]any{
				"daysSinceApplied": int(math.Round(sinceApplied)),
				"ruleAgeDays":      int(math.Round(ageDays)),
			}
			if s.LastAppliedAt != nil {
				details["lastAppliedAt"] = s.LastAppliedAt.UTC().Format(time.RFC3339)
			}
			report.add(s, AlertDormant,
				severityIf(ageDays > dormantWarnAgeDays),
				fmt.Sprintf("Regra não aplicada há %d dias", int(math.Round(sinceApplied))),
				details)
		}

		if totalImpact.IsPositive() && s.TotalImpact.GreaterThan(totalImpact.Mul(impactCut)) {
			pct := int(s.TotalImpact.Div(totalImpact).Mul(hundred).Round(0).IntPart())
			report.add(s, AlertHighImpact,
				severityIf(pct > highImpactWarnShare),
				fmt.Sprintf("Esta regra representa %d%% do impacto financeiro total", pct),
				map[string]any{
					"impact":      s.TotalImpact.StringFixed(2),
					"totalImpact": totalImpact.StringFixed(2),
					"percentage":  pct,
				})
		}

		if ageDays > lowFrequencyMinAgeDays && s.MatchCount > 0 && s.MatchCount < lowFrequencyMaxMatches {
			report.add(s, AlertLowFrequency, SeverityInfo,
				fmt.Sprintf("Regra de %d dias com apenas %d match(es)", int(math.Round(ageDays)), s.MatchCount),
				map[string]any{
					"matchCount":    s.MatchCount,
					"ruleAgeDays":   int(math.Round(ageDays)),
					"matchesPerDay": fmt.Sprintf("%.3f", float64(s.MatchCount)/ageDays),
				})
		}
	}

	report.Stats.TotalRules = len(sorted)
	report.Stats.AvgMatchCount = int(math.Round(avgMatch))
	report.Stats.AvgImpact = totalImpact.Div(decimal.NewFromInt(int64(len(sorted)))).Round(0)
	return report
}

func (r *Report) add(s RuleStats, typ AlertType, sev Severity, msg string, details map[string]any) {
	r.Alerts = append(r.Alerts, Alert{
		RuleID:   s.RuleID,
		RuleName: s.RuleName,
		Type:     typ,
		Severity: sev,
		Message:  msg,
		Details:  details,
	})
	r.Summary.Total++
	r.Summary.ByType[typ]++
	r.Summary.BySeverity[sev]++
}

func severityIf(warn bool) Severity {
	if warn {
		return SeverityWarning
	}
	return SeverityInfo
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}
