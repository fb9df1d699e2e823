package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-rules/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRow   = errors.New("invalid rule row")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRule checks the columns the schema cannot enforce.
func validateRule(rule *model.AutoRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRow)
	}
	if model.IsSystemRuleID(rule.ID) || rule.IsSystemRule {
		return fmt.Errorf("%w: system rules are not stored as rows", ErrInvalidRow)
	}
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRow)
	}
	if len(rule.Conditions) == 0 {
		return fmt.Errorf("%w: no conditions", ErrInvalidRow)
	}
	if len(rule.Actions) == 0 {
		return fmt.Errorf("%w: no actions", ErrInvalidRow)
	}
	if rule.Priority < model.MinPriority || rule.Priority > model.MaxPriority {
		return fmt.Errorf("%w: priority %d out of range", ErrInvalidRow, rule.Priority)
	}
	return nil
}

// validateAuditEntry checks an audit entry before it is appended.
func validateAuditEntry(entry *model.AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: audit entry", ErrNilParameter)
	}
	if err := validateString(entry.RuleID, "ruleID"); err != nil {
		return err
	}
	switch entry.Action {
	case model.AuditCreated, model.AuditUpdated, model.AuditDeleted, model.AuditEnabled, model.AuditDisabled:
		return nil
	}
	return fmt.Errorf("%w: unknown audit action %q", ErrInvalidRow, entry.Action)
}
