package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtowers/ledgermind/internal/cli"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Show budget goals and month-to-date spending",
		Long: `List each budget goal with how much has been spent against it this
month. Budgets are set in chat ("set groceries budget to $400").`,
		RunE: runBudgets,
	}

	return cmd
}

func runBudgets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	userID := currentUserID()

	goals, err := store.GetBudgetGoals(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load budget goals: %w", err)
	}
	if len(goals) == 0 {
		fmt.Println(cli.InfoStyle.Render("No budget goals set. Try \"set groceries budget to $400\" in chat.")) //nolint:forbidigo // User-facing output
		return nil
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	expenses, err := store.GetExpensesByPeriod(ctx, userID, monthStart, now)
	if err != nil {
		return fmt.Errorf("failed to load expenses: %w", err)
	}

	spentByCategory := make(map[int]float64)
	for _, e := range expenses {
		spentByCategory[e.CategoryID] += e.Amount
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Budgets for %s", now.Format("January 2006")))) //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Category"),
		cli.TableHeaderStyle.Render("Limit"),
		cli.TableHeaderStyle.Render("Spent"),
		cli.TableHeaderStyle.Render("Status"))

	for _, goal := range goals {
		spent := spentByCategory[goal.CategoryID]
		status := cli.SuccessStyle.Render("on track")
		switch {
		case spent > goal.Limit:
			status = cli.ErrorStyle.Render(fmt.Sprintf("over by $%.2f", spent-goal.Limit))
		case spent > goal.Limit*0.8:
			status = cli.WarningStyle.Render("approaching limit")
		}

		fmt.Fprintf(w, "%s\t$%.2f\t$%.2f\t%s\n",
			goal.CategoryName, goal.Limit, spent, status)
	}

	return nil
}
