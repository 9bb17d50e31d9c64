package storage

import (
	"context"
	"fmt"

	"github.com/mtowers/ledgermind/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return nil
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateExpense(expense *model.Expense) error {
	if expense == nil {
		return fmt.Errorf("expense cannot be nil")
	}
	if expense.Merchant == "" {
		return fmt.Errorf("expense merchant cannot be empty")
	}
	if expense.Amount <= 0 {
		return fmt.Errorf("expense amount must be positive, got %f", expense.Amount)
	}
	if expense.CategoryID <= 0 {
		return fmt.Errorf("expense category id must be set")
	}
	if expense.SpentAt.IsZero() {
		return fmt.Errorf("expense date cannot be zero")
	}
	return nil
}

func validateOverride(override *model.UserOverride) error {
	if override == nil {
		return fmt.Errorf("override cannot be nil")
	}
	if override.UserID == "" {
		return fmt.Errorf("override user id cannot be empty")
	}
	if override.MerchantKey == "" {
		return fmt.Errorf("override merchant key cannot be empty")
	}
	if override.MerchantKey != model.MerchantKey(override.MerchantKey) {
		return fmt.Errorf("override merchant key %q is not canonical", override.MerchantKey)
	}
	if override.Category == "" {
		return fmt.Errorf("override category cannot be empty")
	}
	return nil
}

func validateConfidence(confidence float64) error {
	if confidence < 0 || confidence > 1 {
		return fmt.Errorf("confidence must be in [0, 1], got %f", confidence)
	}
	return nil
}
