// Package engine implements the rule engine that classifies marketplace payments.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/pattern"
)

// RuleEngine evaluates a prioritized rule list against payments. It is safe
// for concurrent use: SetRules and memo writes take the write lock, and
// evaluation runs under the read lock on an immutable rule snapshot.
type RuleEngine struct {
	logger     *slog.Logger
	now        func() time.Time
	memo       map[string]model.RuleEngineResult
	rules      []*pattern.CompiledRule
	generation uint64
	memoize    bool
	mu         sync.RWMutex
}

// Option configures a RuleEngine.
type Option func(*RuleEngine)

// WithMemoization enables or disables the per-payment result memo.
func WithMemoization(enabled bool) Option {
	return func(e *RuleEngine) {
		e.memoize = enabled
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *RuleEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces the time source used to measure processing time.
func WithClock(now func() time.Time) Option {
	return func(e *RuleEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// Stats summarizes the loaded rules.
type Stats struct {
	ByMarketplace map[string]int `json:"byMarketplace"`
	TotalRules    int            `json:"totalRules"`
}

// New creates an engine loaded with rules. Memoization is on by default.
func New(rules []model.AutoRule, opts ...Option) *RuleEngine {
	e := &RuleEngine{
		logger:  slog.Default(),
		now:     time.Now,
		memo:    make(map[string]model.RuleEngineResult),
		memoize: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.SetRules(rules)
	return e
}

// SetRules replaces the rule list. Disabled rules are dropped, the rest are
// stable-sorted by descending priority and compiled. The memo is cleared.
func (e *RuleEngine) SetRules(rules []model.AutoRule) {
	enabled := make([]model.AutoRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r.Clone())
		}
	}
	model.SortByPriority(enabled)

	compiled := make([]*pattern.CompiledRule, len(enabled))
	for i, r := range enabled {
		compiled[i] = pattern.CompileRule(r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = compiled
	e.memo = make(map[string]model.RuleEngineResult)
	e.generation++

	e.logger.Debug("Rules loaded", "enabled", len(compiled), "dropped", len(rules)-len(compiled))
}

// Rules returns a copy of the active rules in evaluation order.
func (e *RuleEngine) Rules() []model.AutoRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.AutoRule, len(e.rules))
	for i, c := range e.rules {
		out[i] = c.Rule.Clone()
	}
	return out
}

// Process classifies one payment within a marketplace scope. An empty scope
// means "all". A memoized result is returned as a copy with zero processing time.
func (e *RuleEngine) Process(payment model.PaymentInput, scope string) model.RuleEngineResult {
	scope = model.NormalizeScope(scope)
	key := memoKey(payment, scope)

	e.mu.RLock()
	if e.memoize {
		if cached, ok := e.memo[key]; ok {
			e.mu.RUnlock()
			out := cached.Clone()
			out.ProcessingTime = 0
			return out
		}
	}
	rules, memoize, gen := e.rules, e.memoize, e.generation
	e.mu.RUnlock()

	result := e.walk(rules, payment, scope)

	if memoize {
		e.mu.Lock()
		// Rules may have been replaced while this payment was being walked.
		if e.memoize && e.generation == gen {
			e.memo[key] = result.Clone()
		}
		e.mu.Unlock()
	}

	return result
}

// walk evaluates rules in order, folding the actions of each match into the
// result. Every walked rule is traced. A matching stopOnMatch rule ends the walk.
func (e *RuleEngine) walk(rules []*pattern.CompiledRule, payment model.PaymentInput, scope string) model.RuleEngineResult {
	start := e.now()
	result := model.NewRuleEngineResult()

	for _, c := range rules {
		if !c.Rule.AppliesTo(scope) {
			continue
		}
		result.TotalRulesEvaluated++

		matched, conditions := c.Evaluate(payment)
		trace := model.RuleMatchResult{
			RuleID:            c.Rule.ID,
			RuleName:          c.Rule.Name,
			Matched:           matched,
			ConditionResults:  conditions,
			MatchedConditions: countMatched(conditions),
			TotalConditions:   len(conditions),
			AppliedActions:    model.Actions{},
			StoppedProcessing: matched && c.Rule.StopOnMatch,
		}
		if matched {
			trace.AppliedActions = c.Rule.Actions.Clone()
			Fold(&result, c.Rule.Actions)
		}
		result.MatchedRules = append(result.MatchedRules, trace)

		if trace.StoppedProcessing {
			break
		}
	}

	result.ProcessingTime = e.now().Sub(start)

	e.logger.Debug("Processed payment",
		"order_id", payment.MarketplaceOrderID,
		"scope", scope,
		"rules_evaluated", result.TotalRulesEvaluated,
		"tags", result.Tags,
		"duration", result.ProcessingTime)

	return result
}

func countMatched(results []model.ConditionEvalResult) int {
	n := 0
	for _, r := range results {
		if r.Matched {
			n++
		}
	}
	return n
}

func memoKey(payment model.PaymentInput, scope string) string {
	return scope + "|" + payment.Fingerprint()
}

// ProcessBatch classifies payments in order. Results are keyed by order id,
// or by the payment fingerprint when the order id is empty. Payments sharing
// a key overwrite each other; the last one wins.
func (e *RuleEngine) ProcessBatch(payments []model.PaymentInput, scope string) map[string]model.RuleEngineResult {
	results := make(map[string]model.RuleEngineResult, len(payments))
	for _, p := range payments {
		results[p.BatchKey()] = e.Process(p, scope)
	}
	return results
}

// SetMemoization turns the memo on or off. Turning it off clears it.
func (e *RuleEngine) SetMemoization(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.memoize = enabled
	if !enabled {
		e.memo = make(map[string]model.RuleEngineResult)
	}
}

// ClearCache empties the memo.
func (e *RuleEngine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.memo = make(map[string]model.RuleEngineResult)
}

// Stats counts active rules overall and per marketplace. Rules without a
// marketplace scope are counted under "all".
func (e *RuleEngine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := Stats{
		TotalRules:    len(e.rules),
		ByMarketplace: make(map[string]int),
	}
	for _, c := range e.rules {
		if len(c.Rule.Marketplaces) == 0 {
			stats.ByMarketplace[model.ScopeAll]++
			continue
		}
		for _, m := range c.Rule.Marketplaces {
			stats.ByMarketplace[m]++
		}
	}
	return stats
}

// ProcessPayment classifies a single payment with a throwaway engine.
func ProcessPayment(payment model.PaymentInput, rules []model.AutoRule, scope string) model.RuleEngineResult {
	return New(rules, WithMemoization(false)).Process(payment, scope)
}
