package storage

import (
	"context"
	"testing"
	"time"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/model"
	"github.com/mtowers/ledgermind/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedCategory(t *testing.T, store *SQLiteStorage, name string) model.Category {
	t.Helper()
	cat, err := store.CreateCategory(context.Background(), name, "")
	require.NoError(t, err)
	return *cat
}

func seedExpense(t *testing.T, store *SQLiteStorage, userID, merchant string, cat model.Category, amount float64, spentAt time.Time) *model.Expense {
	t.Helper()
	expense := &model.Expense{
		UserID:       userID,
		Merchant:     merchant,
		Amount:       amount,
		SpentAt:      spentAt,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		ResolvedBy:   model.SourceKeyword,
		Confidence:   model.ConfidenceKeyword,
	}
	require.NoError(t, store.SaveExpense(context.Background(), expense))
	return expense
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	t.Run("create and list", func(t *testing.T) {
		coffee := seedCategory(t, store, "Coffee")
		assert.Positive(t, coffee.ID)

		seedCategory(t, store, "Dining")

		categories, err := store.GetCategories(ctx)
		require.NoError(t, err)
		require.Len(t, categories, 2)
		assert.Equal(t, "Coffee", categories[0].Name)
		assert.Equal(t, "Dining", categories[1].Name)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		_, err := store.CreateCategory(ctx, "Coffee", "")
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})

	t.Run("lookup by name is case insensitive", func(t *testing.T) {
		cat, err := store.GetCategoryByName(ctx, "coffee")
		require.NoError(t, err)
		assert.Equal(t, "Coffee", cat.Name)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := store.GetCategoryByName(ctx, "Yachting")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestExpenses(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("save assigns an id and round trips", func(t *testing.T) {
		store := setupStorage(t)
		coffee := seedCategory(t, store, "Coffee")

		expense := seedExpense(t, store, "alice", "Starbucks", coffee, 6.25, now)
		require.Positive(t, expense.ID)

		got, err := store.GetExpenseByID(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, "Starbucks", got.Merchant)
		assert.InDelta(t, 6.25, got.Amount, 1e-9)
		assert.Equal(t, "Coffee", got.CategoryName)
		assert.Equal(t, model.SourceKeyword, got.ResolvedBy)
	})

	t.Run("save rejects invalid records", func(t *testing.T) {
		store := setupStorage(t)
		coffee := seedCategory(t, store, "Coffee")

		err := store.SaveExpense(ctx, &model.Expense{
			UserID: "alice", Merchant: "Starbucks", Amount: -1,
			CategoryID: coffee.ID, SpentAt: now,
		})
		assert.Error(t, err)

		err = store.SaveExpense(ctx, &model.Expense{
			UserID: "alice", Merchant: "", Amount: 5,
			CategoryID: coffee.ID, SpentAt: now,
		})
		assert.Error(t, err)
	})

	t.Run("recent expenses newest first and user scoped", func(t *testing.T) {
		store := setupStorage(t)
		coffee := seedCategory(t, store, "Coffee")

		seedExpense(t, store, "alice", "Old", coffee, 1, now.AddDate(0, 0, -3))
		seedExpense(t, store, "alice", "New", coffee, 2, now)
		seedExpense(t, store, "bob", "Other", coffee, 3, now)

		expenses, err := store.GetRecentExpenses(ctx, "alice", 10)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, "New", expenses[0].Merchant)
		assert.Equal(t, "Old", expenses[1].Merchant)
	})

	t.Run("period query uses the half open range", func(t *testing.T) {
		store := setupStorage(t)
		coffee := seedCategory(t, store, "Coffee")

		seedExpense(t, store, "alice", "Inside", coffee, 1, now.AddDate(0, 0, -2))
		seedExpense(t, store, "alice", "Before", coffee, 2, now.AddDate(0, 0, -20))

		expenses, err := store.GetExpensesByPeriod(ctx, "alice", now.AddDate(0, 0, -7), now)
		require.NoError(t, err)
		require.Len(t, expenses, 1)
		assert.Equal(t, "Inside", expenses[0].Merchant)
	})

	t.Run("update applies only set fields", func(t *testing.T) {
		store := setupStorage(t)
		coffee := seedCategory(t, store, "Coffee")
		dining := seedCategory(t, store, "Dining")

		expense := seedExpense(t, store, "alice", "Starbucks", coffee, 6, now)

		amount := 8.5
		require.NoError(t, store.UpdateExpense(ctx, expense.ID, service.ExpenseUpdate{Amount: &amount}))

		got, err := store.GetExpenseByID(ctx, expense.ID)
		require.NoError(t, err)
		assert.InDelta(t, 8.5, got.Amount, 1e-9)
		assert.Equal(t, "Coffee", got.CategoryName)

		require.NoError(t, store.UpdateExpense(ctx, expense.ID, service.ExpenseUpdate{
			CategoryID:   &dining.ID,
			CategoryName: &dining.Name,
		}))

		got, err = store.GetExpenseByID(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dining", got.CategoryName)
		assert.InDelta(t, 8.5, got.Amount, 1e-9)
	})

	t.Run("update of a missing expense", func(t *testing.T) {
		store := setupStorage(t)
		amount := 5.0
		err := store.UpdateExpense(ctx, 9999, service.ExpenseUpdate{Amount: &amount})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("search matches merchant and description", func(t *testing.T) {
		store := setupStorage(t)
		coffee := seedCategory(t, store, "Coffee")

		seedExpense(t, store, "alice", "Starbucks", coffee, 6, now)
		expense := &model.Expense{
			UserID: "alice", Merchant: "Corner Shop", Description: "oat milk latte",
			Amount: 4, SpentAt: now, CategoryID: coffee.ID,
			ResolvedBy: model.SourceKeyword, Confidence: model.ConfidenceKeyword,
		}
		require.NoError(t, store.SaveExpense(ctx, expense))

		byMerchant, err := store.SearchExpenses(ctx, "alice", "starbucks")
		require.NoError(t, err)
		assert.Len(t, byMerchant, 1)

		byDescription, err := store.SearchExpenses(ctx, "alice", "latte")
		require.NoError(t, err)
		assert.Len(t, byDescription, 1)

		none, err := store.SearchExpenses(ctx, "alice", "yacht")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestOverrides(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	t.Run("missing override", func(t *testing.T) {
		_, err := store.GetOverride(ctx, "alice", "starbucks")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("save and get", func(t *testing.T) {
		require.NoError(t, store.SaveOverride(ctx, &model.UserOverride{
			UserID: "alice", MerchantKey: "starbucks", Category: "Coffee",
		}))

		override, err := store.GetOverride(ctx, "alice", "starbucks")
		require.NoError(t, err)
		assert.Equal(t, "Coffee", override.Category)
		assert.False(t, override.UpdatedAt.IsZero())
	})

	t.Run("later correction replaces the row", func(t *testing.T) {
		require.NoError(t, store.SaveOverride(ctx, &model.UserOverride{
			UserID: "alice", MerchantKey: "starbucks", Category: "Dining",
		}))

		override, err := store.GetOverride(ctx, "alice", "starbucks")
		require.NoError(t, err)
		assert.Equal(t, "Dining", override.Category)

		overrides, err := store.GetOverridesForUser(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, overrides, 1)
	})

	t.Run("non canonical key rejected", func(t *testing.T) {
		err := store.SaveOverride(ctx, &model.UserOverride{
			UserID: "alice", MerchantKey: "Starbucks", Category: "Coffee",
		})
		assert.Error(t, err)
	})

	t.Run("scoped per user", func(t *testing.T) {
		_, err := store.GetOverride(ctx, "bob", "starbucks")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("warm cache then read", func(t *testing.T) {
		require.NoError(t, store.WarmOverrideCache(ctx, "alice"))

		override, err := store.GetOverride(ctx, "alice", "starbucks")
		require.NoError(t, err)
		assert.Equal(t, "Dining", override.Category)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteOverride(ctx, "alice", "starbucks"))

		_, err := store.GetOverride(ctx, "alice", "starbucks")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestResolutions(t *testing.T) {
	ctx := context.Background()

	t.Run("missing entry", func(t *testing.T) {
		store := setupStorage(t)
		_, err := store.GetResolution(ctx, "starbucks")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("first record creates the entry", func(t *testing.T) {
		store := setupStorage(t)
		require.NoError(t, store.RecordResolution(ctx, "starbucks", "Coffee", 0.7))

		entry, err := store.GetResolution(ctx, "starbucks")
		require.NoError(t, err)
		assert.Equal(t, "Coffee", entry.Category)
		assert.InDelta(t, 0.7, entry.Confidence, 1e-9)
		assert.Equal(t, 1, entry.ResolutionCount)
	})

	t.Run("subsequent records blend", func(t *testing.T) {
		store := setupStorage(t)
		require.NoError(t, store.RecordResolution(ctx, "starbucks", "Coffee", 0.7))
		require.NoError(t, store.RecordResolution(ctx, "starbucks", "Coffee", 0.9))

		entry, err := store.GetResolution(ctx, "starbucks")
		require.NoError(t, err)
		assert.InDelta(t, 0.8, entry.Confidence, 1e-9)
		assert.Equal(t, 2, entry.ResolutionCount)
	})

	t.Run("confidence out of range rejected", func(t *testing.T) {
		store := setupStorage(t)
		assert.Error(t, store.RecordResolution(ctx, "starbucks", "Coffee", 1.3))
		assert.Error(t, store.RecordResolution(ctx, "starbucks", "Coffee", -0.1))
	})
}

func TestResolutionLog(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	first := &model.ResolutionLog{
		UserID: "alice", ExpenseID: 1, MerchantKey: "starbucks",
		Category: "Coffee", ResolvedBy: model.SourceKeyword, Confidence: 0.7,
		CreatedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.AppendResolutionLog(ctx, first))
	assert.Positive(t, first.ID)

	second := &model.ResolutionLog{
		UserID: "alice", ExpenseID: 1, MerchantKey: "starbucks",
		Category: "Dining", ResolvedBy: model.SourceUserCorrection, Confidence: 1.0,
		CreatedAt: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.AppendResolutionLog(ctx, second))

	entries, err := store.GetResolutionLog(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.SourceUserCorrection, entries[0].ResolvedBy, "newest first")
	assert.Equal(t, model.SourceKeyword, entries[1].ResolvedBy)
}

func TestBudgetGoals(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)
	dining := seedCategory(t, store, "Dining")

	t.Run("save and list", func(t *testing.T) {
		require.NoError(t, store.SaveBudgetGoal(ctx, &model.BudgetGoal{
			UserID: "alice", CategoryID: dining.ID, Limit: 400,
		}))

		goals, err := store.GetBudgetGoals(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, goals, 1)
		assert.Equal(t, "Dining", goals[0].CategoryName)
		assert.InDelta(t, 400, goals[0].Limit, 1e-9)
	})

	t.Run("save replaces the limit", func(t *testing.T) {
		require.NoError(t, store.SaveBudgetGoal(ctx, &model.BudgetGoal{
			UserID: "alice", CategoryID: dining.ID, Limit: 250,
		}))

		goals, err := store.GetBudgetGoals(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, goals, 1)
		assert.InDelta(t, 250, goals[0].Limit, 1e-9)
	})

	t.Run("non positive limit rejected", func(t *testing.T) {
		err := store.SaveBudgetGoal(ctx, &model.BudgetGoal{
			UserID: "alice", CategoryID: dining.ID, Limit: 0,
		})
		assert.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteBudgetGoal(ctx, "alice", dining.ID))
		assert.ErrorIs(t, store.DeleteBudgetGoal(ctx, "alice", dining.ID), common.ErrNotFound)
	})
}

func TestSchemaVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh database", func(t *testing.T) {
		store, err := NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		version, err := store.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, version)
	})

	t.Run("migrated database", func(t *testing.T) {
		store := setupStorage(t)

		version, err := store.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, ExpectedSchemaVersion, version)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		store := setupStorage(t)
		require.NoError(t, store.Migrate(ctx))

		version, err := store.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, ExpectedSchemaVersion, version)
	})
}
