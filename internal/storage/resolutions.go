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

// GetResolution retrieves the shared cache entry for a merchant key.
// Returns common.ErrNotFound when the merchant has never been resolved.
func (s *SQLiteStorage) GetResolution(ctx context.Context, merchantKey string) (*model.MerchantResolution, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchantKey, "merchantKey"); err != nil {
		return nil, err
	}

	var resolution model.MerchantResolution
	err := s.db.QueryRowContext(ctx, `
		SELECT merchant_key, category, confidence, resolution_count, last_resolved_at
		FROM merchant_resolutions
		WHERE merchant_key = ?
	`, merchantKey).Scan(
		&resolution.MerchantKey,
		&resolution.Category,
		&resolution.Confidence,
		&resolution.ResolutionCount,
		&resolution.LastResolvedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resolution: %w", err)
	}

	return &resolution, nil
}

// RecordResolution folds an incoming confidence signal into the shared cache
// entry for a merchant key, creating the entry on first resolution. Two
// near-simultaneous updates for the same key race benignly: last writer
// wins, and the cache is an optimization layer, not a source of truth.
func (s *SQLiteStorage) RecordResolution(ctx context.Context, merchantKey, category string, confidence float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(merchantKey, "merchantKey"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}
	if err := validateConfidence(confidence); err != nil {
		return err
	}

	entry, err := s.GetResolution(ctx, merchantKey)
	if errors.Is(err, common.ErrNotFound) {
		entry = &model.MerchantResolution{MerchantKey: merchantKey}
	} else if err != nil {
		return err
	}

	entry.Blend(category, confidence, time.Now())

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO merchant_resolutions (merchant_key, category, confidence, resolution_count, last_resolved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(merchant_key) DO UPDATE SET
			category = excluded.category,
			confidence = excluded.confidence,
			resolution_count = excluded.resolution_count,
			last_resolved_at = excluded.last_resolved_at
	`, entry.MerchantKey, entry.Category, entry.Confidence, entry.ResolutionCount, entry.LastResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to record resolution: %w", err)
	}

	return nil
}
