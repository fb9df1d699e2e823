// Package service defines the interfaces between the rule engine and its adapters.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-rules/internal/model"
)

// RuleFilter narrows a rule listing.
type RuleFilter struct {
	// Marketplace keeps rules whose scope includes it. Empty or "all" keeps every rule.
	Marketplace string
	// EnabledOnly drops disabled rules.
	EnabledOnly bool
}

// RuleSource is the read side of rule persistence.
type RuleSource interface {
	// ListRules returns user-authored rules.
	ListRules(ctx context.Context, filter RuleFilter) ([]model.AutoRule, error)
	// SystemRuleStates returns persisted enabled flags for built-in rules, keyed by id.
	SystemRuleStates(ctx context.Context) (map[string]bool, error)
}

// RuleStore is the full contract of rule persistence.
type RuleStore interface {
	RuleSource

	GetRule(ctx context.Context, id string) (*model.AutoRule, error)
	CreateRule(ctx context.Context, rule *model.AutoRule) error
	UpdateRule(ctx context.Context, rule *model.AutoRule) error
	DeleteRule(ctx context.Context, id string) error
	SetSystemRuleState(ctx context.Context, id string, enabled bool) error
	// RecordUsage adds match counts and impact to the usage metrics of user rules.
	RecordUsage(ctx context.Context, usage map[string]model.RuleUsage, at time.Time) error
	// AppendAudit records a change to a rule.
	AppendAudit(ctx context.Context, entry *model.AuditEntry) error
	// ListAudit returns audit entries newest first. An empty ruleID lists every rule.
	ListAudit(ctx context.Context, ruleID string, limit int) ([]model.AuditEntry, error)

	Migrate(ctx context.Context) error
	Close() error
}

// PaymentReader decodes payment records from an input stream.
type PaymentReader interface {
	ReadPayments(ctx context.Context) ([]model.PaymentInput, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
