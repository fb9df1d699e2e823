package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/service"
	"github.com/shopspring/decimal"
)

const ruleColumns = `
	id, name, description, marketplaces, marketplace, conditions, condition_logic,
	actions, priority, enabled, stop_on_match, match_count, total_impact,
	last_applied_at, created_at, updated_at`

// ruleRow mirrors an auto_rules row. Nullable columns predate later migrations
// or were written by older clients.
type ruleRow struct {
	createdAt      time.Time
	updatedAt      time.Time
	lastAppliedAt  sql.NullTime
	id             string
	name           string
	conditions     string
	actions        string
	description    sql.NullString
	marketplaces   sql.NullString
	marketplace    sql.NullString
	conditionLogic sql.NullString
	totalImpact    sql.NullString
	priority       sql.NullInt64
	matchCount     sql.NullInt64
	enabled        sql.NullBool
	stopOnMatch    sql.NullBool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRuleRow(sc rowScanner) (ruleRow, error) {
	var r ruleRow
	err := sc.Scan(
		&r.id, &r.name, &r.description, &r.marketplaces, &r.marketplace, &r.conditions, &r.conditionLogic,
		&r.actions, &r.priority, &r.enabled, &r.stopOnMatch, &r.matchCount, &r.totalImpact,
		&r.lastAppliedAt, &r.createdAt, &r.updatedAt,
	)
	return r, err
}

// toRule maps a row onto a rule, filling defaults for missing columns and
// normalizing legacy condition field names.
func (r ruleRow) toRule() (model.AutoRule, error) {
	rule := model.AutoRule{
		ID:             r.id,
		Name:           r.name,
		Description:    r.description.String,
		ConditionLogic: model.ConditionLogic(r.conditionLogic.String),
		Priority:       model.DefaultPriority,
		Enabled:        true,
		StopOnMatch:    r.stopOnMatch.Bool,
		MatchCount:     int(r.matchCount.Int64),
		CreatedAt:      r.createdAt,
		UpdatedAt:      r.updatedAt,
	}
	if rule.ConditionLogic == "" {
		rule.ConditionLogic = model.LogicAnd
	}
	if r.priority.Valid {
		rule.Priority = int(r.priority.Int64)
	}
	if r.enabled.Valid {
		rule.Enabled = r.enabled.Bool
	}
	if r.lastAppliedAt.Valid {
		t := r.lastAppliedAt.Time
		rule.LastAppliedAt = &t
	}
	if r.totalImpact.Valid {
		if d, err := decimal.NewFromString(r.totalImpact.String); err == nil {
			rule.TotalImpact = d
		}
	}

	var marketplaces []string
	if r.marketplaces.Valid && r.marketplaces.String != "" {
		if err := json.Unmarshal([]byte(r.marketplaces.String), &marketplaces); err != nil {
			return model.AutoRule{}, fmt.Errorf("rule %s: invalid marketplaces: %w", r.id, err)
		}
	} else if r.marketplace.Valid {
		marketplaces = []string{r.marketplace.String}
	}
	rule.Marketplaces = model.NormalizeMarketplaces(marketplaces)

	if err := json.Unmarshal([]byte(r.conditions), &rule.Conditions); err != nil {
		return model.AutoRule{}, fmt.Errorf("rule %s: invalid conditions: %w", r.id, err)
	}
	for i := range rule.Conditions {
		rule.Conditions[i].Field = model.NormalizeConditionField(string(rule.Conditions[i].Field))
	}
	if err := json.Unmarshal([]byte(r.actions), &rule.Actions); err != nil {
		return model.AutoRule{}, fmt.Errorf("rule %s: invalid actions: %w", r.id, err)
	}

	return rule, nil
}

type ruleColumnsJSON struct {
	marketplaces string
	conditions   string
	actions      string
}

func encodeRule(rule *model.AutoRule) (ruleColumnsJSON, error) {
	var out ruleColumnsJSON

	m, err := json.Marshal(model.NormalizeMarketplaces(rule.Marketplaces))
	if err != nil {
		return out, fmt.Errorf("failed to encode marketplaces: %w", err)
	}
	c, err := json.Marshal(rule.Conditions)
	if err != nil {
		return out, fmt.Errorf("failed to encode conditions: %w", err)
	}
	a, err := json.Marshal(rule.Actions)
	if err != nil {
		return out, fmt.Errorf("failed to encode actions: %w", err)
	}

	out.marketplaces, out.conditions, out.actions = string(m), string(c), string(a)
	return out, nil
}

// ListRules returns stored rules ordered by priority. Rows that can no longer
// be decoded are skipped with a warning.
func (s *SQLiteStore) ListRules(ctx context.Context, filter service.RuleFilter) ([]model.AutoRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM auto_rules`
	if filter.EnabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY priority DESC, created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	var rules []model.AutoRule
	for rows.Next() {
		row, err := scanRuleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", classify(err))
		}
		rule, err := row.toRule()
		if err != nil {
			slog.Warn("Skipping undecodable rule row", "id", row.id, "error", err)
			continue
		}
		if !rule.AppliesTo(filter.Marketplace) {
			continue
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", classify(err))
	}

	return rules, nil
}

// GetRule retrieves a rule by id.
func (s *SQLiteStore) GetRule(ctx context.Context, id string) (*model.AutoRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row, err := scanRuleRow(s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM auto_rules WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(classify(err), "rule", id)
	}

	rule, err := row.toRule()
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// CreateRule inserts a user rule. Zero timestamps are set to now.
func (s *SQLiteStore) CreateRule(ctx context.Context, rule *model.AutoRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	cols, err := encodeRule(rule)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = rule.CreatedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auto_rules (
			id, name, description, marketplaces, conditions, condition_logic, actions,
			priority, enabled, stop_on_match, is_system_rule, match_count, total_impact,
			last_applied_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, rule.Description, cols.marketplaces, cols.conditions,
		string(rule.ConditionLogic), cols.actions, rule.Priority, rule.Enabled, rule.StopOnMatch,
		rule.MatchCount, rule.TotalImpact.String(), nullTime(rule.LastAppliedAt),
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", classify(err))
	}

	return nil
}

// UpdateRule rewrites the authored columns of a rule. Usage metrics are left alone.
func (s *SQLiteStore) UpdateRule(ctx context.Context, rule *model.AutoRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	cols, err := encodeRule(rule)
	if err != nil {
		return err
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE auto_rules SET
			name = ?, description = ?, marketplaces = ?, conditions = ?, condition_logic = ?,
			actions = ?, priority = ?, enabled = ?, stop_on_match = ?, updated_at = ?
		WHERE id = ?`,
		rule.Name, rule.Description, cols.marketplaces, cols.conditions, string(rule.ConditionLogic),
		cols.actions, rule.Priority, rule.Enabled, rule.StopOnMatch, rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", classify(err))
	}

	return expectRow(result, "rule", rule.ID)
}

// DeleteRule deletes a rule by id.
func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM auto_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", classify(err))
	}

	return expectRow(result, "rule", id)
}

// SystemRuleStates returns the persisted enabled flags of built-in rules.
func (s *SQLiteStore) SystemRuleStates(ctx context.Context) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT rule_id, enabled FROM system_rule_states`)
	if err != nil {
		return nil, fmt.Errorf("failed to list system rule states: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	states := make(map[string]bool)
	for rows.Next() {
		var id string
		var enabled bool
		if err := rows.Scan(&id, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan system rule state: %w", err)
		}
		states[id] = enabled
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating system rule states: %w", err)
	}

	return states, nil
}

// SetSystemRuleState persists the enabled flag of a built-in rule.
func (s *SQLiteStore) SetSystemRuleState(ctx context.Context, id string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if !model.IsSystemRuleID(id) {
		return fmt.Errorf("%w: %q is not a system rule", ErrInvalidRow, id)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_rule_states (rule_id, enabled, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(rule_id) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at`,
		id, enabled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save system rule state: %w", classify(err))
	}
	return nil
}

// RecordUsage adds matches and impact to user rules in one transaction.
// System rules and rules deleted since classification are ignored.
func (s *SQLiteStore) RecordUsage(ctx context.Context, usage map[string]model.RuleUsage, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(usage) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() { _ = tx.Rollback() }()

	for id, u := range usage {
		if model.IsSystemRuleID(id) || u.Matches <= 0 {
			continue
		}

		var current sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT total_impact FROM auto_rules WHERE id = ?`, id).Scan(&current)
		if err == sql.ErrNoRows {
			slog.Debug("Usage recorded for missing rule", "id", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read usage of rule %s: %w", id, classify(err))
		}

		total := decimal.Zero
		if current.Valid {
			if d, parseErr := decimal.NewFromString(current.String); parseErr == nil {
				total = d
			}
		}
		total = total.Add(u.Impact)

		if _, err := tx.ExecContext(ctx, `
			UPDATE auto_rules SET
				match_count = COALESCE(match_count, 0) + ?, total_impact = ?, last_applied_at = ?
			WHERE id = ?`,
			u.Matches, total.String(), at.UTC(), id); err != nil {
			return fmt.Errorf("failed to record usage of rule %s: %w", id, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage: %w", classify(err))
	}
	return nil
}

func expectRow(result sql.Result, what, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %q: %w", what, id, common.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
