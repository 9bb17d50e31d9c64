// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/mtowers/ledgermind/internal/model"
)

// ExpenseUpdate describes a partial update to a persisted expense. Nil
// fields are left untouched.
type ExpenseUpdate struct {
	Amount       *float64
	CategoryID   *int
	CategoryName *string
	Description  *string
	SpentAt      *time.Time
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)

	// Expense operations
	SaveExpense(ctx context.Context, expense *model.Expense) error
	GetExpenseByID(ctx context.Context, id int64) (*model.Expense, error)
	GetRecentExpenses(ctx context.Context, userID string, limit int) ([]model.Expense, error)
	GetExpensesByPeriod(ctx context.Context, userID string, start, end time.Time) ([]model.Expense, error)
	UpdateExpense(ctx context.Context, id int64, update ExpenseUpdate) error
	SearchExpenses(ctx context.Context, userID, query string) ([]model.Expense, error)

	// Override operations
	GetOverride(ctx context.Context, userID, merchantKey string) (*model.UserOverride, error)
	SaveOverride(ctx context.Context, override *model.UserOverride) error
	GetOverridesForUser(ctx context.Context, userID string) ([]model.UserOverride, error)
	DeleteOverride(ctx context.Context, userID, merchantKey string) error
	WarmOverrideCache(ctx context.Context, userID string) error

	// Shared resolution cache operations
	GetResolution(ctx context.Context, merchantKey string) (*model.MerchantResolution, error)
	RecordResolution(ctx context.Context, merchantKey, category string, confidence float64) error

	// Categorization audit log
	AppendResolutionLog(ctx context.Context, entry *model.ResolutionLog) error

	// Budget goal operations
	GetBudgetGoals(ctx context.Context, userID string) ([]model.BudgetGoal, error)
	SaveBudgetGoal(ctx context.Context, goal *model.BudgetGoal) error
	DeleteBudgetGoal(ctx context.Context, userID string, categoryID int) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
}
