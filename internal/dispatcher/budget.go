package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/model"
)

// Budget phrasing variants. The category name and the limit can arrive in
// either order, so each pattern captures both with its own group layout.
var (
	budgetWordRe = regexp.MustCompile(`(?i)\bbudget\b`)

	// "set my dining budget to $400" / "set dining budget at 400"
	budgetSetARe = regexp.MustCompile(`(?i)\bset\s+(?:my\s+|the\s+|a\s+)?(.+?)\s+budget\s+(?:to|at|of)\s+\$?(\d+(?:\.\d{1,2})?)`)
	// "$400 budget for dining" / "400 budget on groceries"
	budgetSetBRe = regexp.MustCompile(`(?i)\$?(\d+(?:\.\d{1,2})?)\s+budget\s+(?:for|on)\s+(.+?)\s*$`)
	// "budget $400 for dining" / "budget of 400 for groceries"
	budgetSetCRe = regexp.MustCompile(`(?i)\bbudget\s+(?:of\s+)?\$?(\d+(?:\.\d{1,2})?)\s+(?:for|on)\s+(.+?)\s*$`)

	// "remove my dining budget" / "clear the groceries budget"
	budgetRemoveRe = regexp.MustCompile(`(?i)\b(?:remove|delete|clear|drop)\s+(?:my\s+|the\s+)?(.+?)\s+budget\b`)
)

// handleBudget detects budget goal set/remove phrasing. An extracted
// category name that matches nothing is reported back verbatim, never
// guessed at.
func (d *Dispatcher) handleBudget(ctx context.Context, text string) (string, bool, error) {
	if !budgetWordRe.MatchString(text) {
		return "", false, nil
	}

	if m := budgetRemoveRe.FindStringSubmatch(text); m != nil {
		return d.removeBudget(ctx, strings.TrimSpace(m[1]))
	}

	var name, amountToken string
	switch {
	case budgetSetARe.MatchString(text):
		m := budgetSetARe.FindStringSubmatch(text)
		name, amountToken = m[1], m[2]
	case budgetSetBRe.MatchString(text):
		m := budgetSetBRe.FindStringSubmatch(text)
		amountToken, name = m[1], m[2]
	case budgetSetCRe.MatchString(text):
		m := budgetSetCRe.FindStringSubmatch(text)
		amountToken, name = m[1], m[2]
	default:
		return "You can say \"set groceries budget to $400\" or \"remove the groceries budget\".", true, nil
	}

	limit, err := strconv.ParseFloat(amountToken, 64)
	if err != nil || limit <= 0 {
		return fmt.Sprintf("I couldn't read %q as a budget amount.", amountToken), true, nil
	}
	return d.setBudget(ctx, strings.TrimSpace(name), limit)
}

func (d *Dispatcher) setBudget(ctx context.Context, name string, limit float64) (string, bool, error) {
	category, reply, err := d.matchBudgetCategory(ctx, name)
	if category == nil {
		return reply, true, err
	}

	goal := &model.BudgetGoal{
		UserID:       d.userID,
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Limit:        limit,
	}
	if err := d.store.SaveBudgetGoal(ctx, goal); err != nil {
		d.logger.Error("budget goal save failed", "category", category.Name, "error", err)
		return "", true, common.NewUserError(
			fmt.Sprintf("I couldn't save the %s budget.", category.Name), err)
	}
	return fmt.Sprintf("Set a $%.2f monthly budget for %s.", limit, category.Name), true, nil
}

func (d *Dispatcher) removeBudget(ctx context.Context, name string) (string, bool, error) {
	category, reply, err := d.matchBudgetCategory(ctx, name)
	if category == nil {
		return reply, true, err
	}

	if err := d.store.DeleteBudgetGoal(ctx, d.userID, category.ID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Sprintf("There's no budget set for %s.", category.Name), true, nil
		}
		d.logger.Error("budget goal delete failed", "category", category.Name, "error", err)
		return "", true, common.NewUserError(
			fmt.Sprintf("I couldn't remove the %s budget.", category.Name), err)
	}
	return fmt.Sprintf("Removed the budget for %s.", category.Name), true, nil
}

// matchBudgetCategory loads categories and fuzzy-matches the extracted
// name. A nil category means the returned reply or error should be used.
func (d *Dispatcher) matchBudgetCategory(ctx context.Context, name string) (*model.Category, string, error) {
	categories, err := d.store.GetCategories(ctx)
	if err != nil {
		d.logger.Error("category list load failed", "error", err)
		return nil, "", common.NewUserError("I couldn't load your categories.", err)
	}

	category, ok := findCategoryFuzzy(categories, name)
	if !ok {
		return nil, fmt.Sprintf("I couldn't find a category matching %q.", name), nil
	}
	return category, "", nil
}

// findCategoryFuzzy matches a spoken category name: exact fold first, then
// substring containment in either direction.
func findCategoryFuzzy(categories []model.Category, name string) (*model.Category, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, false
	}

	for i := range categories {
		if strings.EqualFold(categories[i].Name, needle) {
			return &categories[i], true
		}
	}

	for i := range categories {
		have := strings.ToLower(categories[i].Name)
		if strings.Contains(have, needle) || strings.Contains(needle, have) {
			return &categories[i], true
		}
	}

	return nil, false
}
