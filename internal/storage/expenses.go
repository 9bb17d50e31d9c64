package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/model"
	"github.com/mtowers/ledgermind/internal/service"
)

const expenseColumns = `
	e.id, e.user_id, e.merchant, e.amount, e.category_id,
	COALESCE(c.name, ''), e.description, e.spent_at,
	e.resolved_by, e.confidence, e.created_at`

func scanExpense(scanner interface{ Scan(...any) error }) (model.Expense, error) {
	var e model.Expense
	err := scanner.Scan(
		&e.ID, &e.UserID, &e.Merchant, &e.Amount, &e.CategoryID,
		&e.CategoryName, &e.Description, &e.SpentAt,
		&e.ResolvedBy, &e.Confidence, &e.CreatedAt,
	)
	return e, err
}

// SaveExpense inserts a new expense and fills in its assigned ID. No partial
// record is left behind on failure.
func (s *SQLiteStorage) SaveExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, merchant, amount, category_id, description, spent_at, resolved_by, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, expense.UserID, expense.Merchant, expense.Amount, expense.CategoryID,
		expense.Description, expense.SpentAt, string(expense.ResolvedBy),
		expense.Confidence, expense.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get expense id: %w", err)
	}
	expense.ID = id

	return nil
}

// GetExpenseByID retrieves a single expense.
func (s *SQLiteStorage) GetExpenseByID(ctx context.Context, id int64) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.id = ?
	`, id)

	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return &expense, nil
}

// GetRecentExpenses retrieves a user's most recent expenses, newest first.
func (s *SQLiteStorage) GetRecentExpenses(ctx context.Context, userID string, limit int) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ?
		ORDER BY e.spent_at DESC, e.id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectExpenses(rows)
}

// GetExpensesByPeriod retrieves a user's expenses within [start, end).
func (s *SQLiteStorage) GetExpensesByPeriod(ctx context.Context, userID string, start, end time.Time) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %v is before start date %v", end, start)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ? AND e.spent_at >= ? AND e.spent_at < ?
		ORDER BY e.spent_at
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectExpenses(rows)
}

// UpdateExpense applies a partial update to one expense.
func (s *SQLiteStorage) UpdateExpense(ctx context.Context, id int64, update service.ExpenseUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	setClauses := ""
	args := make([]any, 0, 4)
	add := func(clause string, value any) {
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += clause
		args = append(args, value)
	}

	if update.Amount != nil {
		add("amount = ?", *update.Amount)
	}
	if update.CategoryID != nil {
		add("category_id = ?", *update.CategoryID)
	}
	if update.Description != nil {
		add("description = ?", *update.Description)
	}
	if update.SpentAt != nil {
		add("spent_at = ?", *update.SpentAt)
	}

	if setClauses == "" {
		return fmt.Errorf("no fields to update")
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx, `UPDATE expenses SET `+setClauses+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
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

// SearchExpenses finds a user's expenses whose merchant or description
// contains the query, case-insensitively, newest first.
func (s *SQLiteStorage) SearchExpenses(ctx context.Context, userID, query string) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(query, "query"); err != nil {
		return nil, err
	}

	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ? AND (e.merchant LIKE ? COLLATE NOCASE OR e.description LIKE ? COLLATE NOCASE)
		ORDER BY e.spent_at DESC
	`, userID, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectExpenses(rows)
}

func collectExpenses(rows *sql.Rows) ([]model.Expense, error) {
	var expenses []model.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}
