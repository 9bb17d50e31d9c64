package dispatcher

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/model"
	"github.com/mtowers/ledgermind/internal/service"
)

// recentUpdateWindow bounds how many expenses the target cascade scans.
const recentUpdateWindow = 100

var (
	updateRe = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:change|update|move|recategorize|correct)\b\s+(?:the\s+|that\s+|my\s+)?(.+?)\s+(?:expense\s+|purchase\s+|one\s+)?to\s+(.+?)\s*$`)

	plainAmountRe = regexp.MustCompile(`^\$?(\d+(?:\.\d{1,2})?)$`)
	monthDayRe    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
)

// handleUpdate parses "change <query> to <value>" messages, locates the
// target expense through the ordered cascade, and applies either an amount
// or a category change. A category change also feeds the learning loop.
func (d *Dispatcher) handleUpdate(ctx context.Context, text string) (string, bool, error) {
	m := updateRe.FindStringSubmatch(text)
	if m == nil {
		return "", false, nil
	}
	query := strings.TrimSpace(m[1])
	value := strings.Trim(strings.TrimSpace(m[2]), ".!?")

	expenses, err := d.store.GetRecentExpenses(ctx, d.userID, recentUpdateWindow)
	if err != nil {
		d.logger.Error("expense load for update failed", "error", err)
		return "", true, common.NewUserError("I couldn't load your recent expenses.", err)
	}

	target := findExpense(expenses, query)
	if target == nil {
		return fmt.Sprintf("I couldn't find a match for %q.", query), true, nil
	}

	if am := plainAmountRe.FindStringSubmatch(value); am != nil {
		amount, _ := strconv.ParseFloat(am[1], 64)
		return d.applyAmountUpdate(ctx, target, amount)
	}
	return d.applyCategoryUpdate(ctx, target, value)
}

func (d *Dispatcher) applyAmountUpdate(ctx context.Context, target *model.Expense, amount float64) (string, bool, error) {
	if err := d.store.UpdateExpense(ctx, target.ID, service.ExpenseUpdate{Amount: &amount}); err != nil {
		d.logger.Error("amount update failed", "expense_id", target.ID, "error", err)
		return "", true, common.NewUserError(
			fmt.Sprintf("I couldn't update the %s expense.", target.Merchant), err)
	}
	if d.callbacks.ReloadExpenses != nil {
		d.callbacks.ReloadExpenses()
	}
	return fmt.Sprintf("Updated %s from $%.2f to $%.2f.",
		target.Merchant, target.Amount, amount), true, nil
}

// applyCategoryUpdate moves the expense to a fuzzy-matched category and
// records the correction so future resolutions learn from it.
func (d *Dispatcher) applyCategoryUpdate(ctx context.Context, target *model.Expense, name string) (string, bool, error) {
	categories, err := d.store.GetCategories(ctx)
	if err != nil {
		d.logger.Error("category list load failed", "error", err)
		return "", true, common.NewUserError("I couldn't load your categories.", err)
	}

	category, ok := findCategoryFuzzy(categories, name)
	if !ok {
		return fmt.Sprintf("I couldn't find a category matching %q.", name), true, nil
	}

	update := service.ExpenseUpdate{
		CategoryID:   &category.ID,
		CategoryName: &category.Name,
	}
	if err := d.store.UpdateExpense(ctx, target.ID, update); err != nil {
		d.logger.Error("category update failed", "expense_id", target.ID, "error", err)
		return "", true, common.NewUserError(
			fmt.Sprintf("I couldn't update the %s expense.", target.Merchant), err)
	}

	d.resolver.RecordCorrection(ctx, d.userID, target.ID, target.Merchant, category.Name)

	if d.callbacks.ReloadExpenses != nil {
		d.callbacks.ReloadExpenses()
	}
	return fmt.Sprintf("Moved %s from %s to %s. I'll remember that.",
		target.Merchant, target.CategoryName, category.Name), true, nil
}

// findExpense runs the target cascade: exact merchant equality, merchant
// substring, amount within a cent, then an M/D date token. The first
// non-empty tier wins and within a tier the first match in recency order
// is taken; tiers are never merged.
func findExpense(expenses []model.Expense, query string) *model.Expense {
	q := strings.ToLower(strings.TrimSpace(query))

	for i := range expenses {
		if strings.EqualFold(expenses[i].Merchant, q) {
			return &expenses[i]
		}
	}

	for i := range expenses {
		if strings.Contains(strings.ToLower(expenses[i].Merchant), q) {
			return &expenses[i]
		}
	}

	if am := plainAmountRe.FindStringSubmatch(q); am != nil {
		amount, _ := strconv.ParseFloat(am[1], 64)
		for i := range expenses {
			if math.Abs(expenses[i].Amount-amount) < 0.01 {
				return &expenses[i]
			}
		}
	}

	if md := monthDayRe.FindStringSubmatch(q); md != nil {
		month, _ := strconv.Atoi(md[1])
		day, _ := strconv.Atoi(md[2])
		for i := range expenses {
			if int(expenses[i].SpentAt.Month()) == month && expenses[i].SpentAt.Day() == day {
				return &expenses[i]
			}
		}
	}

	return nil
}
