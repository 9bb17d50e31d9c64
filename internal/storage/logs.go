package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/mtowers/ledgermind/internal/model"
)

// AppendResolutionLog appends one categorization audit record. The decision
// procedure never reads these back.
func (s *SQLiteStorage) AppendResolutionLog(ctx context.Context, entry *model.ResolutionLog) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("log entry cannot be nil")
	}
	if err := validateString(entry.MerchantKey, "merchantKey"); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categorization_log (user_id, expense_id, merchant_key, category, resolved_by, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.UserID, entry.ExpenseID, entry.MerchantKey, entry.Category,
		string(entry.ResolvedBy), entry.Confidence, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append resolution log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get log id: %w", err)
	}
	entry.ID = id

	return nil
}

// GetResolutionLog retrieves recent audit records for a user, newest first.
// This exists for operator inspection only.
func (s *SQLiteStorage) GetResolutionLog(ctx context.Context, userID string, limit int) ([]model.ResolutionLog, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, expense_id, merchant_key, category, resolved_by, confidence, created_at
		FROM categorization_log
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolution log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.ResolutionLog
	for rows.Next() {
		var entry model.ResolutionLog
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.ExpenseID, &entry.MerchantKey,
			&entry.Category, &entry.ResolvedBy, &entry.Confidence, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
