package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// AuditAction names a change recorded in the rule audit log.
type AuditAction string

// Audit actions.
const (
	AuditCreated  AuditAction = "created"
	AuditUpdated  AuditAction = "updated"
	AuditDeleted  AuditAction = "deleted"
	AuditEnabled  AuditAction = "enabled"
	AuditDisabled AuditAction = "disabled"
)

// AuditEntry is one change to a rule. Snapshots are JSON encoded rules.
type AuditEntry struct {
	ChangedAt    time.Time       `json:"changedAt"`
	RuleID       string          `json:"ruleId"`
	RuleName     string          `json:"ruleName"`
	Action       AuditAction     `json:"action"`
	ChangeReason string          `json:"changeReason,omitempty"`
	PreviousData json.RawMessage `json:"previousData,omitempty"`
	NewData      json.RawMessage `json:"newData,omitempty"`
	ID           int64           `json:"id"`
}

// RuleUsage accumulates how often a rule matched and the money it touched.
type RuleUsage struct {
	Impact  decimal.Decimal
	Matches int
}
