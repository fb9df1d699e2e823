// Package testutil provides test helpers shared by the rule packages: a
// migrated in-memory rule store and a fluent rule builder.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/storage"
)

// TestStore is a migrated in-memory rule store bound to a test.
type TestStore struct {
	*storage.SQLiteStore
	t *testing.T
}

// SetupTestStore creates a new in-memory store, migrates it and seeds rules.
// The store is closed when the test finishes.
//
// Example:
//
//	store := testutil.SetupTestStore(t,
//		testutil.NewRule("frete").Contains(model.FieldDescription, "frete").Tags("frete").Build(),
//	)
func SetupTestStore(t *testing.T, seed ...model.AutoRule) *TestStore {
	t.Helper()

	s, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	db := &TestStore{SQLiteStore: s, t: t}
	for _, r := range seed {
		db.MustCreate(r)
	}
	return db
}

// MustCreate stores a rule or fails the test.
func (db *TestStore) MustCreate(rule model.AutoRule) {
	db.t.Helper()
	if err := db.CreateRule(context.Background(), &rule); err != nil {
		db.t.Fatalf("failed to seed rule %q: %v", rule.ID, err)
	}
}

// MustGet loads a rule or fails the test.
func (db *TestStore) MustGet(id string) model.AutoRule {
	db.t.Helper()
	r, err := db.GetRule(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load rule %q: %v", id, err)
	}
	return *r
}
