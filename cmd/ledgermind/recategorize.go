package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mtowers/ledgermind/internal/cli"
	"github.com/mtowers/ledgermind/internal/model"
	"github.com/mtowers/ledgermind/internal/resolver"
	"github.com/mtowers/ledgermind/internal/service"
)

func recategorizeCmd() *cobra.Command {
	var (
		fromDate string
		toDate   string
		category string
		force    bool
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "recategorize",
		Short: "Re-run categorization over stored expenses",
		Long: `Re-run the resolution waterfall over expenses you have already
recorded. Useful after adding overrides or new categories.

Examples:
  # Recategorize everything from 2026
  ledgermind recategorize --from 2026-01-01

  # Only revisit expenses that fell back to Miscellaneous
  ledgermind recategorize --category Miscellaneous

  # See what would change without writing
  ledgermind recategorize --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var fromTime, toTime *time.Time
			if fromDate != "" {
				parsed, err := time.Parse("2006-01-02", fromDate)
				if err != nil {
					return fmt.Errorf("invalid from date format (use YYYY-MM-DD): %w", err)
				}
				fromTime = &parsed
			}
			if toDate != "" {
				parsed, err := time.Parse("2006-01-02", toDate)
				if err != nil {
					return fmt.Errorf("invalid to date format (use YYYY-MM-DD): %w", err)
				}
				endOfDay := parsed.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
				toTime = &endOfDay
			}
			if fromTime != nil && toTime != nil && fromTime.After(*toTime) {
				return fmt.Errorf("from date must be before to date")
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Error("failed to close storage", "error", closeErr)
				}
			}()

			_, r, oracle, err := buildPipeline(store)
			if err != nil {
				return err
			}
			if oracle != nil {
				defer oracle.Close()
			}

			userID := currentUserID()

			expenses, err := findExpensesToRecategorize(cmd, store, userID, fromTime, toTime, category)
			if err != nil {
				return err
			}
			if len(expenses) == 0 {
				fmt.Println(cli.InfoStyle.Render("No expenses matched the criteria")) //nolint:forbidigo // User-facing output
				return nil
			}

			fmt.Printf("Found %d expenses to recategorize\n", len(expenses)) //nolint:forbidigo // User-facing output

			if dryRun {
				return previewRecategorization(cmd, r, store, userID, expenses)
			}

			if !force {
				fmt.Printf("Recategorize %d expenses? (y/N): ", len(expenses)) //nolint:forbidigo // User prompt
				var response string
				if _, scanErr := fmt.Scanln(&response); scanErr != nil {
					response = "n"
				}
				if strings.ToLower(response) != "y" {
					fmt.Println("Canceled.") //nolint:forbidigo // User-facing output
					return nil
				}
			}

			return recategorizeExpenses(cmd, r, store, userID, expenses)
		},
	}

	cmd.Flags().StringVar(&fromDate, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDate, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "only expenses currently in this category")
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without writing")

	return cmd
}

func findExpensesToRecategorize(cmd *cobra.Command, store service.Storage, userID string, from, to *time.Time, category string) ([]model.Expense, error) {
	ctx := cmd.Context()

	start := time.Time{}
	end := time.Now()
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}

	expenses, err := store.GetExpensesByPeriod(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	if category == "" {
		return expenses, nil
	}

	filtered := expenses[:0]
	for _, e := range expenses {
		if strings.EqualFold(e.CategoryName, category) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// resolveCurrent runs the waterfall for one stored expense.
func resolveCurrent(cmd *cobra.Command, r *resolver.Resolver, categories []model.Category, userID string, e model.Expense) (resolver.Resolution, error) {
	return r.Resolve(cmd.Context(), resolver.Request{
		Merchant:    e.Merchant,
		Description: e.Description,
		UserID:      userID,
		Categories:  categories,
	})
}

func previewRecategorization(cmd *cobra.Command, r *resolver.Resolver, store service.Storage, userID string, expenses []model.Expense) error {
	categories, err := store.GetCategories(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	changes := 0
	for _, e := range expenses {
		resolution, err := resolveCurrent(cmd, r, categories, userID, e)
		if err != nil {
			return err
		}
		if resolution.CategoryID != e.CategoryID {
			changes++
			fmt.Printf("  %s: %s -> %s (%s, %.2f)\n", //nolint:forbidigo // User-facing output
				e.Merchant, e.CategoryName, resolution.CategoryName,
				resolution.Source, resolution.Confidence)
		}
	}

	fmt.Println(cli.InfoStyle.Render(fmt.Sprintf("\nDry run complete: %d of %d expenses would change", changes, len(expenses)))) //nolint:forbidigo // User-facing output
	return nil
}

func recategorizeExpenses(cmd *cobra.Command, r *resolver.Resolver, store service.Storage, userID string, expenses []model.Expense) error {
	ctx := cmd.Context()

	categories, err := store.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	bar := progressbar.NewOptions(len(expenses),
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Recategorizing expenses...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println() //nolint:forbidigo // Progress bar newline
		}),
	)

	changed := 0
	for _, e := range expenses {
		if err := ctx.Err(); err != nil {
			return err
		}

		resolution, err := resolveCurrent(cmd, r, categories, userID, e)
		if err != nil {
			return err
		}

		if resolution.CategoryID != e.CategoryID {
			update := service.ExpenseUpdate{
				CategoryID:   &resolution.CategoryID,
				CategoryName: &resolution.CategoryName,
			}
			if err := store.UpdateExpense(ctx, e.ID, update); err != nil {
				slog.Error("failed to update expense", "id", e.ID, "error", err)
			} else {
				changed++
			}
		}

		_ = bar.Add(1)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recategorized %d of %d expenses", changed, len(expenses)))) //nolint:forbidigo // User-facing output
	return nil
}
