package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/spice-rules/internal/model"
)

// Audit listing limits.
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

// AppendAudit records a change to a rule.
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAuditEntry(entry); err != nil {
		return err
	}

	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_audit_log (
			rule_id, rule_name, action, previous_data, new_data, change_reason, changed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RuleID, entry.RuleName, string(entry.Action),
		nullJSON(entry.PreviousData), nullJSON(entry.NewData),
		entry.ChangeReason, entry.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry ID: %w", err)
	}
	entry.ID = id

	return nil
}

// ListAudit returns audit entries newest first. An empty ruleID lists every
// rule. The limit defaults to DefaultAuditLimit and is capped at MaxAuditLimit.
func (s *SQLiteStore) ListAudit(ctx context.Context, ruleID string, limit int) ([]model.AuditEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}

	query := `SELECT id, rule_id, rule_name, action, previous_data, new_data, change_reason, changed_at
		FROM rule_audit_log`
	args := []any{}
	if ruleID != "" {
		query += ` WHERE rule_id = ?`
		args = append(args, ruleID)
	}
	query += ` ORDER BY changed_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var name, prev, next, reason sql.NullString
		var action string
		if err := rows.Scan(&e.ID, &e.RuleID, &name, &action, &prev, &next, &reason, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.RuleName = name.String
		e.Action = model.AuditAction(action)
		e.ChangeReason = reason.String
		if prev.Valid {
			e.PreviousData = []byte(prev.String)
		}
		if next.Valid {
			e.NewData = []byte(next.String)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return entries, nil
}

func nullJSON(data []byte) sql.NullString {
	if len(data) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}
