package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/model"
)

// GetOverride retrieves a user's category override for a merchant key.
// Returns common.ErrNotFound when no override exists.
func (s *SQLiteStorage) GetOverride(ctx context.Context, userID, merchantKey string) (*model.UserOverride, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(merchantKey, "merchantKey"); err != nil {
		return nil, err
	}

	// Check cache first
	if override := s.getCachedOverride(userID, merchantKey); override != nil {
		return override, nil
	}

	var override model.UserOverride
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, merchant_key, category, updated_at
		FROM user_category_overrides
		WHERE user_id = ? AND merchant_key = ?
	`, userID, merchantKey).Scan(
		&override.UserID,
		&override.MerchantKey,
		&override.Category,
		&override.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get override: %w", err)
	}

	s.cacheOverride(&override)

	return &override, nil
}

// SaveOverride creates or replaces a user's override. Later corrections
// replace earlier ones outright, one row per user and merchant.
func (s *SQLiteStorage) SaveOverride(ctx context.Context, override *model.UserOverride) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOverride(override); err != nil {
		return err
	}
	if override.UpdatedAt.IsZero() {
		override.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_category_overrides (user_id, merchant_key, category, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, merchant_key) DO UPDATE SET
			category = excluded.category,
			updated_at = excluded.updated_at
	`, override.UserID, override.MerchantKey, override.Category, override.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}

	s.cacheOverride(override)

	return nil
}

// GetOverridesForUser retrieves all of a user's overrides.
func (s *SQLiteStorage) GetOverridesForUser(ctx context.Context, userID string) ([]model.UserOverride, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, merchant_key, category, updated_at
		FROM user_category_overrides
		WHERE user_id = ?
		ORDER BY merchant_key
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var overrides []model.UserOverride
	for rows.Next() {
		var override model.UserOverride
		if err := rows.Scan(&override.UserID, &override.MerchantKey, &override.Category, &override.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		overrides = append(overrides, override)
	}

	return overrides, rows.Err()
}

// DeleteOverride removes a user's override for a merchant key.
func (s *SQLiteStorage) DeleteOverride(ctx context.Context, userID, merchantKey string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(merchantKey, "merchantKey"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM user_category_overrides WHERE user_id = ? AND merchant_key = ?
	`, userID, merchantKey)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	s.cacheMutex.Lock()
	delete(s.overrideCache, overrideCacheKey(userID, merchantKey))
	s.cacheMutex.Unlock()

	return nil
}
