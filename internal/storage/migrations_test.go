package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Veraticus/spice-rules/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_ReachesExpectedVersion(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	for _, table := range []string{"auto_rules", "system_rule_states", "rule_audit_log"} {
		var count int
		err := store.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, table)
	}
}

// A rule written under the first schema has a single marketplace, no logic,
// no usage metrics and legacy field names. It must load with defaults.
func TestMigrate_LegacyRowsLoad(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	tx, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, migrations[0].Up(tx))
	_, err = tx.Exec(`PRAGMA user_version = 1`)
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO auto_rules (id, name, marketplace, conditions, actions, priority)
		VALUES ('legacy', 'Frete antigo', 'Shopee',
			'[{"id":"c1","field":"descricao","operator":"contains","value":"frete"}]',
			'[{"type":"add_tags","tags":["frete"]}]', NULL)`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.NoError(t, store.Migrate(ctx))

	var marketplaces sql.NullString
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT marketplaces FROM auto_rules WHERE id = 'legacy'`).Scan(&marketplaces))
	assert.Equal(t, `["Shopee"]`, marketplaces.String)

	rules, err := store.ListRules(ctx, service.RuleFilter{})
	require.NoError(t, err)
	require.Len(t, rules, 1)

	r := rules[0]
	assert.Equal(t, []string{"shopee"}, r.Marketplaces)
	assert.Equal(t, "description", string(r.Conditions[0].Field))
	assert.Equal(t, "AND", string(r.ConditionLogic))
	assert.Equal(t, 50, r.Priority)
	assert.True(t, r.Enabled)
	assert.Zero(t, r.MatchCount)
	assert.True(t, r.TotalImpact.IsZero())
	assert.Nil(t, r.LastAppliedAt)
}
