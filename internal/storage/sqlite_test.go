package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/service"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testRule(id string, priority int, marketplaces ...string) *model.AutoRule {
	v2 := model.NumberValue(100)
	return &model.AutoRule{
		ID:             id,
		Name:           "Regra " + id,
		Description:    "descrição",
		Marketplaces:   marketplaces,
		ConditionLogic: model.LogicOr,
		Conditions: []model.RuleCondition{
			{ID: "c1", Field: model.FieldFullText, Operator: model.OperatorRegex, Value: model.TextValue("frete|envio")},
			{ID: "c2", Field: model.FieldAmount, Operator: model.OperatorBetween, Value: model.NumberValue(-50.5), Value2: &v2},
		},
		Actions: model.Actions{
			model.AddTags{Tags: []string{"frete"}},
			model.FlagReview{ReviewNote: "conferir"},
		},
		Priority:    priority,
		Enabled:     true,
		StopOnMatch: true,
		CreatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewSQLiteStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rules.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(context.Background()))
	assert.Equal(t, path, store.Path())

	_, err = NewSQLiteStore(" ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStore_RuleRoundTrip(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	in := testRule("r1", 70, "shopee", "magalu")
	require.NoError(t, store.CreateRule(ctx, in))

	got, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)

	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, []string{"shopee", "magalu"}, got.Marketplaces)
	assert.Equal(t, in.ConditionLogic, got.ConditionLogic)
	assert.Equal(t, in.Conditions, got.Conditions)
	assert.Equal(t, in.Actions, got.Actions)
	assert.Equal(t, 70, got.Priority)
	assert.True(t, got.Enabled)
	assert.True(t, got.StopOnMatch)
	assert.False(t, got.IsSystemRule)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt))

	_, err = store.GetRule(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.CreateRule(ctx, testRule("r1", 10))
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestSQLiteStore_ListRules(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	low := testRule("low", 10, "shopee")
	high := testRule("high", 90, "magalu")
	off := testRule("off", 50)
	off.Enabled = false
	for _, r := range []*model.AutoRule{low, high, off} {
		require.NoError(t, store.CreateRule(ctx, r))
	}

	ids := func(rules []model.AutoRule) []string {
		var out []string
		for _, r := range rules {
			out = append(out, r.ID)
		}
		return out
	}

	all, err := store.ListRules(ctx, service.RuleFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "off", "low"}, ids(all))
	assert.Equal(t, model.KnownMarketplaces(), all[1].Marketplaces, "empty scope is stored as every marketplace")

	enabled, err := store.ListRules(ctx, service.RuleFilter{EnabledOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "low"}, ids(enabled))

	shopee, err := store.ListRules(ctx, service.RuleFilter{Marketplace: "Shopee"})
	require.NoError(t, err)
	assert.Equal(t, []string{"off", "low"}, ids(shopee))
}

func TestSQLiteStore_ListRulesSkipsUndecodableRows(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, testRule("good", 50)))
	_, err := store.db.ExecContext(ctx, `INSERT INTO auto_rules (id, name, conditions, actions)
		VALUES ('bad', 'Quebrada', '[]', '[{"type":"teleport"}]')`)
	require.NoError(t, err)

	rules, err := store.ListRules(ctx, service.RuleFilter{})
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "good", rules[0].ID)

	_, err = store.GetRule(ctx, "bad")
	assert.Error(t, err)
}

func TestSQLiteStore_UpdateAndDelete(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	r := testRule("r1", 50, "shopee")
	require.NoError(t, store.CreateRule(ctx, r))

	r.Name = "Renomeada"
	r.Enabled = false
	r.Actions = model.Actions{model.Skip{}}
	r.UpdatedAt = time.Time{}
	require.NoError(t, store.UpdateRule(ctx, r))
	assert.False(t, r.UpdatedAt.IsZero())

	got, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Renomeada", got.Name)
	assert.False(t, got.Enabled)
	assert.Equal(t, model.Actions{model.Skip{}}, got.Actions)

	missing := testRule("nope", 50)
	assert.ErrorIs(t, store.UpdateRule(ctx, missing), common.ErrNotFound)

	require.NoError(t, store.DeleteRule(ctx, "r1"))
	assert.ErrorIs(t, store.DeleteRule(ctx, "r1"), common.ErrNotFound)
}

func TestSQLiteStore_RejectsSystemRows(t *testing.T) {
	store := createTestStore(t)
	err := store.CreateRule(context.Background(), testRule("system_frete", 50))
	assert.ErrorIs(t, err, ErrInvalidRow)
}

func TestSQLiteStore_SystemRuleStates(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	states, err := store.SystemRuleStates(ctx)
	require.NoError(t, err)
	assert.Empty(t, states)

	require.NoError(t, store.SetSystemRuleState(ctx, "system_frete", false))
	require.NoError(t, store.SetSystemRuleState(ctx, "system_taxas", false))
	require.NoError(t, store.SetSystemRuleState(ctx, "system_frete", true))

	states, err = store.SystemRuleStates(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"system_frete": true, "system_taxas": false}, states)

	assert.ErrorIs(t, store.SetSystemRuleState(ctx, "user_rule", true), ErrInvalidRow)
}

func TestSQLiteStore_RecordUsage(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, testRule("r1", 50)))
	require.NoError(t, store.CreateRule(ctx, testRule("r2", 50)))

	first := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordUsage(ctx, map[string]model.RuleUsage{
		"r1":               {Matches: 2, Impact: decimal.RequireFromString("25.50")},
		"system_reembolso": {Matches: 9, Impact: decimal.NewFromInt(9)},
		"deleted":          {Matches: 1, Impact: decimal.NewFromInt(1)},
	}, first))

	second := first.Add(24 * time.Hour)
	require.NoError(t, store.RecordUsage(ctx, map[string]model.RuleUsage{
		"r1": {Matches: 1, Impact: decimal.RequireFromString("4.50")},
	}, second))

	r1, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 3, r1.MatchCount)
	assert.True(t, decimal.NewFromInt(30).Equal(r1.TotalImpact), r1.TotalImpact.String())
	require.NotNil(t, r1.LastAppliedAt)
	assert.True(t, second.Equal(*r1.LastAppliedAt))

	r2, err := store.GetRule(ctx, "r2")
	require.NoError(t, err)
	assert.Zero(t, r2.MatchCount)
	assert.Nil(t, r2.LastAppliedAt)

	require.NoError(t, store.RecordUsage(ctx, nil, second))
}

func TestSQLiteStore_UpdateKeepsUsage(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	r := testRule("r1", 50)
	require.NoError(t, store.CreateRule(ctx, r))
	require.NoError(t, store.RecordUsage(ctx, map[string]model.RuleUsage{"r1": {Matches: 4, Impact: decimal.NewFromInt(8)}}, time.Now()))

	r.Priority = 60
	require.NoError(t, store.UpdateRule(ctx, r))

	got, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.MatchCount)
	assert.Equal(t, 60, got.Priority)
}

func TestSQLiteStore_Audit(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	snapshot, err := json.Marshal(testRule("r1", 50))
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	entries := []*model.AuditEntry{
		{RuleID: "r1", RuleName: "Regra r1", Action: model.AuditCreated, NewData: snapshot, ChangedAt: base},
		{RuleID: "r1", RuleName: "Regra r1", Action: model.AuditDisabled, PreviousData: snapshot, NewData: snapshot, ChangedAt: base.Add(time.Minute)},
		{RuleID: "system_frete", RuleName: "Frete", Action: model.AuditEnabled, ChangeReason: "revisão", ChangedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendAudit(ctx, e))
		assert.NotZero(t, e.ID)
	}

	all, err := store.ListAudit(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, model.AuditEnabled, all[0].Action)
	assert.Equal(t, "revisão", all[0].ChangeReason)
	assert.Nil(t, all[0].PreviousData)

	r1, err := store.ListAudit(ctx, "r1", 1)
	require.NoError(t, err)
	require.Len(t, r1, 1)
	assert.Equal(t, model.AuditDisabled, r1[0].Action)
	assert.JSONEq(t, string(snapshot), string(r1[0].PreviousData))

	assert.Error(t, store.AppendAudit(ctx, &model.AuditEntry{RuleID: "r1", Action: "renamed"}))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err       error
		wantIs    error
		name      string
		retryable bool
	}{
		{name: "busy", err: sqlite3.Error{Code: sqlite3.ErrBusy}, wantIs: common.ErrStoreBusy, retryable: true},
		{name: "locked", err: sqlite3.Error{Code: sqlite3.ErrLocked}, wantIs: common.ErrStoreBusy, retryable: true},
		{name: "corrupt", err: sqlite3.Error{Code: sqlite3.ErrCorrupt}, wantIs: common.ErrDatabaseCorrupted},
		{name: "not a database", err: sqlite3.Error{Code: sqlite3.ErrNotADB}, wantIs: common.ErrDatabaseCorrupted},
		{
			name:   "unique constraint",
			err:    sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			wantIs: common.ErrDuplicateEntry,
		},
		{name: "io error", err: sqlite3.Error{Code: sqlite3.ErrIoErr}, retryable: true},
		{name: "read only", err: sqlite3.Error{Code: sqlite3.ErrReadonly}},
		{name: "locked message", err: errors.New("database is locked"), wantIs: common.ErrStoreBusy, retryable: true},
		{name: "other", err: errors.New("syntax error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, got, tt.wantIs)
			}
			assert.Equal(t, tt.retryable, common.IsRetryable(got))
		})
	}
	assert.NoError(t, classify(nil))
}
