// Package repository assembles the rule set the engine runs: built-in system
// rules with their persisted enabled state plus user rules from the store,
// cached per marketplace scope. All rule mutations go through it.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Veraticus/spice-rules/internal/cache"
	"github.com/Veraticus/spice-rules/internal/classification"
	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/pattern"
	"github.com/Veraticus/spice-rules/internal/service"
	"github.com/google/uuid"
)

// InvalidRuleError carries the validation result of a rejected draft.
type InvalidRuleError struct {
	Result model.ValidationResult
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("%s: %s", common.ErrInvalidRule, e.Result.Messages())
}

func (e *InvalidRuleError) Unwrap() error {
	return common.ErrInvalidRule
}

// ConflictError reports the existing rule a mutation collides with.
type ConflictError struct {
	Existing model.AutoRule
	Kind     pattern.ConflictKind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s with %q (%s)", common.ErrRuleConflict, e.Kind, e.Existing.Name, e.Existing.ID)
}

func (e *ConflictError) Unwrap() error {
	return common.ErrRuleConflict
}

// Repository serves rules to the engine and applies rule changes.
type Repository struct {
	store   service.RuleStore
	cache   *cache.RuleCache
	checker pattern.RuleChecker
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	retry   service.RetryOptions
}

// Option configures a Repository.
type Option func(*Repository)

// WithCache replaces the rule cache.
func WithCache(c *cache.RuleCache) Option {
	return func(r *Repository) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithChecker replaces the rule validator.
func WithChecker(c pattern.RuleChecker) Option {
	return func(r *Repository) {
		if c != nil {
			r.checker = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator replaces the generator of new rule ids.
func WithIDGenerator(gen func() string) Option {
	return func(r *Repository) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithRetryOptions configures retries of store reads.
func WithRetryOptions(opts service.RetryOptions) Option {
	return func(r *Repository) {
		r.retry = opts
	}
}

// New creates a repository over store.
func New(store service.RuleStore, opts ...Option) *Repository {
	r := &Repository{
		store:   store,
		cache:   cache.New(cache.DefaultTTL),
		checker: pattern.NewValidator(),
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules returns every rule in scope, enabled or not, highest priority first.
// When the store cannot be read the built-in rules are returned alone and
// nothing is cached, so the next call tries the store again.
func (r *Repository) Rules(ctx context.Context, scope string) ([]model.AutoRule, error) {
	scope = model.NormalizeScope(scope)

	if rules, ok := r.cache.Get(scope); ok {
		return rules, nil
	}

	rules, err := r.load(ctx, scope)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("Failed to load rules, using system rules only",
			"scope", scope,
			"error", err)
		return filterScope(classification.SystemRules(), scope), nil
	}

	r.cache.Set(scope, rules)
	return rules, nil
}

// load reads user rules and system rule states and merges them.
func (r *Repository) load(ctx context.Context, scope string) ([]model.AutoRule, error) {
	var user []model.AutoRule
	var states map[string]bool

	err := common.WithRetry(ctx, func() error {
		var err error
		user, err = r.store.ListRules(ctx, service.RuleFilter{Marketplace: scope})
		if err != nil {
			return err
		}
		states, err = r.store.SystemRuleStates(ctx)
		return err
	}, r.retry)
	if err != nil {
		return nil, err
	}

	rules := make([]model.AutoRule, 0, len(user)+len(classification.SystemRules()))
	rules = append(rules, user...)
	rules = append(rules, systemRulesWithStates(states)...)
	rules = filterScope(rules, scope)
	model.SortByPriority(rules)

	r.logger.Debug("Loaded rules",
		"scope", scope,
		"user", len(user),
		"total", len(rules))

	return rules, nil
}

func systemRulesWithStates(states map[string]bool) []model.AutoRule {
	rules := classification.SystemRules()
	for i := range rules {
		if enabled, ok := states[rules[i].ID]; ok {
			rules[i].Enabled = enabled
		}
	}
	return rules
}

func filterScope(rules []model.AutoRule, scope string) []model.AutoRule {
	out := make([]model.AutoRule, 0, len(rules))
	for _, rule := range rules {
		if rule.AppliesTo(scope) {
			out = append(out, rule)
		}
	}
	return out
}

// RulesByID returns the named rules in priority order. Unknown ids fail.
func (r *Repository) RulesByID(ctx context.Context, ids []string) ([]model.AutoRule, error) {
	all, err := r.Rules(ctx, model.ScopeAll)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.AutoRule, len(all))
	for _, rule := range all {
		byID[rule.ID] = rule
	}

	out := make([]model.AutoRule, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		rule, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("rule %q: %w", id, common.ErrNotFound)
		}
		seen[id] = true
		out = append(out, rule)
	}
	model.SortByPriority(out)
	return out, nil
}

// Get returns one rule. System rules carry their persisted enabled state.
func (r *Repository) Get(ctx context.Context, id string) (model.AutoRule, error) {
	if model.IsSystemRuleID(id) {
		rule, ok := classification.SystemRule(id)
		if !ok {
			return model.AutoRule{}, fmt.Errorf("rule %q: %w", id, common.ErrNotFound)
		}
		states, err := r.store.SystemRuleStates(ctx)
		if err != nil {
			return model.AutoRule{}, fmt.Errorf("failed to load system rule state: %w", err)
		}
		if enabled, ok := states[id]; ok {
			rule.Enabled = enabled
		}
		return rule, nil
	}

	rule, err := r.store.GetRule(ctx, id)
	if err != nil {
		return model.AutoRule{}, err
	}
	return *rule, nil
}

// catalog is every enabled rule, read from the store without the cache or
// the fallback. Mutations must not decide on a partial view.
func (r *Repository) catalog(ctx context.Context) ([]model.AutoRule, error) {
	user, err := r.store.ListRules(ctx, service.RuleFilter{EnabledOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	states, err := r.store.SystemRuleStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list system rule states: %w", err)
	}

	out := append([]model.AutoRule{}, user...)
	for _, rule := range systemRulesWithStates(states) {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	return out, nil
}

// names returns every rule name, enabled or not, for uniqueness checks.
func (r *Repository) names(ctx context.Context) ([]model.AutoRule, error) {
	user, err := r.store.ListRules(ctx, service.RuleFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return append(user, classification.SystemRules()...), nil
}

// prepare validates and sanitizes a draft.
func (r *Repository) prepare(ctx context.Context, draft model.RuleDraft, selfID string) (model.RuleDraft, error) {
	if res := r.checker.Validate(draft); !res.Valid {
		return model.RuleDraft{}, &InvalidRuleError{Result: res}
	}
	clean := r.checker.Sanitize(draft)

	existing, err := r.names(ctx)
	if err != nil {
		return model.RuleDraft{}, err
	}
	if res := r.checker.ValidateUnique(clean, existing, selfID); !res.Valid {
		return model.RuleDraft{}, &InvalidRuleError{Result: res}
	}
	return clean, nil
}

// Create validates and stores a new rule. An enabled draft that duplicates an enabled
// user rule is merged into it: the existing rule gains the draft's
// marketplaces and is returned with merged set. Duplicating a system rule, or
// matching the same payments as another rule with different actions on an
// overlapping scope, is a conflict.
func (r *Repository) Create(ctx context.Context, draft model.RuleDraft) (rule model.AutoRule, merged bool, err error) {
	if res := r.checker.Validate(draft); !res.Valid {
		return model.AutoRule{}, false, &InvalidRuleError{Result: res}
	}
	clean := r.checker.Sanitize(draft)
	now := r.now()
	candidate := clean.ToRule(r.newID(), now)

	if candidate.Enabled {
		existing, err := r.catalog(ctx)
		if err != nil {
			return model.AutoRule{}, false, err
		}

		switch conflict := pattern.FindConflict(candidate, existing); conflict.Kind {
		case pattern.ConflictDuplicate:
			return r.mergeInto(ctx, conflict.Rule, candidate)
		case pattern.ConflictSystemDuplicate, pattern.ConflictDiffersInAction:
			return model.AutoRule{}, false, &ConflictError{Kind: conflict.Kind, Existing: conflict.Rule}
		}
	}

	all, err := r.names(ctx)
	if err != nil {
		return model.AutoRule{}, false, err
	}
	if res := r.checker.ValidateUnique(clean, all, ""); !res.Valid {
		return model.AutoRule{}, false, &InvalidRuleError{Result: res}
	}

	if err := r.store.CreateRule(ctx, &candidate); err != nil {
		return model.AutoRule{}, false, fmt.Errorf("failed to create rule: %w", err)
	}

	r.audit(ctx, model.AuditCreated, nil, &candidate, "")
	r.invalidate(candidate.Marketplaces)

	r.logger.Info("Created rule", "id", candidate.ID, "name", candidate.Name)
	return candidate, false, nil
}

func (r *Repository) mergeInto(ctx context.Context, existing, candidate model.AutoRule) (model.AutoRule, bool, error) {
	merged := model.MergeMarketplaces(existing.Marketplaces, candidate.Marketplaces)
	if len(merged) == len(existing.Marketplaces) {
		return existing, true, nil
	}

	before := existing.Clone()
	existing.Marketplaces = merged
	existing.UpdatedAt = r.now()
	if err := r.store.UpdateRule(ctx, &existing); err != nil {
		return model.AutoRule{}, false, fmt.Errorf("failed to merge marketplaces: %w", err)
	}

	r.audit(ctx, model.AuditUpdated, &before, &existing, "marketplaces merged from duplicate rule")
	r.invalidate(merged)

	r.logger.Info("Merged duplicate rule", "id", existing.ID, "marketplaces", merged)
	return existing, true, nil
}

// Update replaces the authored fields of a user rule. Usage metrics and the
// creation time are kept.
func (r *Repository) Update(ctx context.Context, id string, draft model.RuleDraft) (model.AutoRule, error) {
	if model.IsSystemRuleID(id) {
		return model.AutoRule{}, fmt.Errorf("rule %q: %w", id, common.ErrSystemRuleImmutable)
	}

	current, err := r.store.GetRule(ctx, id)
	if err != nil {
		return model.AutoRule{}, err
	}

	clean, err := r.prepare(ctx, draft, id)
	if err != nil {
		return model.AutoRule{}, err
	}

	next := clean.ToRule(id, r.now())
	next.CreatedAt = current.CreatedAt
	next.MatchCount = current.MatchCount
	next.TotalImpact = current.TotalImpact
	next.LastAppliedAt = current.LastAppliedAt

	if next.Enabled {
		if err := r.checkConflict(ctx, next); err != nil {
			return model.AutoRule{}, err
		}
	}

	if err := r.store.UpdateRule(ctx, &next); err != nil {
		return model.AutoRule{}, fmt.Errorf("failed to update rule: %w", err)
	}

	r.audit(ctx, model.AuditUpdated, current, &next, "")
	r.invalidate(slices.Concat(current.Marketplaces, next.Marketplaces))
	return next, nil
}

// checkConflict rejects a rule that would collide with an enabled rule on an
// overlapping scope.
func (r *Repository) checkConflict(ctx context.Context, rule model.AutoRule) error {
	existing, err := r.catalog(ctx)
	if err != nil {
		return err
	}

	conflict := pattern.FindConflict(rule, existing)
	if conflict.Kind == pattern.ConflictNone {
		return nil
	}
	if conflict.Kind != pattern.ConflictDiffersInAction &&
		!model.MarketplacesOverlap(conflict.Rule.Marketplaces, rule.Marketplaces) {
		return nil
	}
	return &ConflictError{Kind: conflict.Kind, Existing: conflict.Rule}
}

// Delete removes a user rule.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if model.IsSystemRuleID(id) {
		return fmt.Errorf("rule %q: %w", id, common.ErrSystemRuleImmutable)
	}

	current, err := r.store.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	r.audit(ctx, model.AuditDeleted, current, nil, "")
	r.invalidate(current.Marketplaces)
	return nil
}

// SetEnabled turns a rule on or off. This is the only change system rules accept.
func (r *Repository) SetEnabled(ctx context.Context, id string, enabled bool) (model.AutoRule, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return model.AutoRule{}, err
	}

	action := model.AuditDisabled
	if enabled {
		action = model.AuditEnabled
	}

	next := current.Clone()
	next.Enabled = enabled

	if current.IsSystemRule {
		if err := r.store.SetSystemRuleState(ctx, id, enabled); err != nil {
			return model.AutoRule{}, fmt.Errorf("failed to save system rule state: %w", err)
		}
	} else {
		if enabled && !current.Enabled {
			if err := r.checkConflict(ctx, next); err != nil {
				return model.AutoRule{}, err
			}
		}
		next.UpdatedAt = r.now()
		if err := r.store.UpdateRule(ctx, &next); err != nil {
			return model.AutoRule{}, fmt.Errorf("failed to update rule: %w", err)
		}
	}

	r.audit(ctx, action, &current, &next, "")
	r.invalidate(next.Marketplaces)
	return next, nil
}

// RecordUsage adds per-rule match counts and impact. System rules are not
// stored as rows and are dropped here.
func (r *Repository) RecordUsage(ctx context.Context, usage map[string]model.RuleUsage) error {
	user := make(map[string]model.RuleUsage, len(usage))
	for id, u := range usage {
		if !model.IsSystemRuleID(id) && u.Matches > 0 {
			user[id] = u
		}
	}
	if len(user) == 0 {
		return nil
	}

	if err := r.store.RecordUsage(ctx, user, r.now()); err != nil {
		return fmt.Errorf("failed to record rule usage: %w", err)
	}
	r.cache.InvalidateAll()
	return nil
}

// History lists audit entries newest first. An empty id lists every rule.
func (r *Repository) History(ctx context.Context, id string, limit int) ([]model.AuditEntry, error) {
	return r.store.ListAudit(ctx, id, limit)
}

// Lint reports likely unintended interactions among the enabled rules.
func (r *Repository) Lint(ctx context.Context) ([]model.LintWarning, error) {
	rules, err := r.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return r.checker.Lint(rules), nil
}

// UserRules returns the stored rules, enabled or not.
func (r *Repository) UserRules(ctx context.Context, scope string) ([]model.AutoRule, error) {
	return r.store.ListRules(ctx, service.RuleFilter{Marketplace: scope})
}

// audit appends an audit entry. A failure is logged; the change itself stands.
func (r *Repository) audit(ctx context.Context, action model.AuditAction, before, after *model.AutoRule, reason string) {
	entry := &model.AuditEntry{
		Action:       action,
		ChangeReason: reason,
		ChangedAt:    r.now(),
	}
	for _, snap := range []*model.AutoRule{after, before} {
		if snap != nil {
			entry.RuleID, entry.RuleName = snap.ID, snap.Name
			break
		}
	}
	entry.PreviousData = snapshot(before)
	entry.NewData = snapshot(after)

	if err := r.store.AppendAudit(ctx, entry); err != nil {
		r.logger.Warn("Failed to append audit entry",
			"rule_id", entry.RuleID,
			"action", action,
			"error", err)
	}
}

func snapshot(rule *model.AutoRule) json.RawMessage {
	if rule == nil {
		return nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return nil
	}
	return data
}

// invalidate evicts the cached scopes a change touched.
func (r *Repository) invalidate(marketplaces []string) {
	if len(marketplaces) == 0 {
		r.cache.InvalidateAll()
		return
	}
	for _, m := range marketplaces {
		r.cache.Invalidate(m)
	}
}

// IsConflict reports whether err is a rule conflict and returns it.
func IsConflict(err error) (*ConflictError, bool) {
	var c *ConflictError
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}
