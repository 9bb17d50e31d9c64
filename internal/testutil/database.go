// Package testutil provides shared helpers for tests that need a real
// database: in-memory SQLite with migrations applied and categories seeded.
package testutil

import (
	"context"
	"testing"

	"github.com/mtowers/ledgermind/internal/model"
	"github.com/mtowers/ledgermind/internal/service"
	"github.com/mtowers/ledgermind/internal/storage"
)

// DefaultTestCategories covers the common resolution scenarios in tests.
var DefaultTestCategories = []string{
	"Coffee",
	"Groceries",
	"Dining",
	"Transportation",
	"Home",
	"Miscellaneous",
}

// TestDB wraps an in-memory database and its seeded categories.
type TestDB struct {
	Storage    service.Storage
	byName     map[string]model.Category
	t          *testing.T
	Categories []model.Category
}

// SetupTestDB creates a migrated in-memory database seeded with the given
// category names (DefaultTestCategories when none are given). Cleanup is
// registered automatically.
func SetupTestDB(t *testing.T, categoryNames ...string) *TestDB {
	t.Helper()

	if len(categoryNames) == 0 {
		categoryNames = DefaultTestCategories
	}

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{
		Storage: store,
		byName:  make(map[string]model.Category, len(categoryNames)),
		t:       t,
	}

	for _, name := range categoryNames {
		cat, createErr := store.CreateCategory(ctx, name, "")
		if createErr != nil {
			t.Fatalf("failed to seed category %q: %v", name, createErr)
		}
		db.Categories = append(db.Categories, *cat)
		db.byName[name] = *cat
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return db
}

// MustCategory returns the seeded category with the given name.
func (db *TestDB) MustCategory(name string) model.Category {
	db.t.Helper()
	cat, ok := db.byName[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return cat
}
