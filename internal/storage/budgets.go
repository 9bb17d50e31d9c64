package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/model"
)

// GetBudgetGoals retrieves all of a user's budget goals ordered by category.
func (s *SQLiteStorage) GetBudgetGoals(ctx context.Context, userID string) ([]model.BudgetGoal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.category_id, COALESCE(c.name, ''), b.monthly_limit, b.created_at, b.updated_at
		FROM budget_goals b LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ?
		ORDER BY c.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var goals []model.BudgetGoal
	for rows.Next() {
		var goal model.BudgetGoal
		if err := rows.Scan(&goal.ID, &goal.UserID, &goal.CategoryID, &goal.CategoryName,
			&goal.Limit, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget goal: %w", err)
		}
		goals = append(goals, goal)
	}

	return goals, rows.Err()
}

// SaveBudgetGoal creates or replaces a user's budget goal for a category.
func (s *SQLiteStorage) SaveBudgetGoal(ctx context.Context, goal *model.BudgetGoal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if goal == nil {
		return fmt.Errorf("budget goal cannot be nil")
	}
	if goal.CategoryID <= 0 {
		return fmt.Errorf("budget goal category id must be set")
	}
	if goal.Limit <= 0 {
		return fmt.Errorf("budget limit must be positive, got %f", goal.Limit)
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_goals (user_id, category_id, monthly_limit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, category_id) DO UPDATE SET
			monthly_limit = excluded.monthly_limit,
			updated_at = excluded.updated_at
	`, goal.UserID, goal.CategoryID, goal.Limit, now, now)
	if err != nil {
		return fmt.Errorf("failed to save budget goal: %w", err)
	}

	return nil
}

// DeleteBudgetGoal removes a user's budget goal for a category.
func (s *SQLiteStorage) DeleteBudgetGoal(ctx context.Context, userID string, categoryID int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM budget_goals WHERE user_id = ? AND category_id = ?
	`, userID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete budget goal: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}
