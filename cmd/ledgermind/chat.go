package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtowers/ledgermind/internal/config"
	"github.com/mtowers/ledgermind/internal/dispatcher"
	"github.com/mtowers/ledgermind/internal/insights"
	"github.com/mtowers/ledgermind/internal/model"
	"github.com/mtowers/ledgermind/internal/service"
	"github.com/mtowers/ledgermind/internal/sheets"
	"github.com/mtowers/ledgermind/internal/tui"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive expense tracking chat",
		Long: `Open a conversational session. Tell it things like "add $6 coffee at
Starbucks" or "i spent 2500 fixing the AC", ask it to search or export
your expenses, or set budgets.`,
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	p, r, oracle, err := buildPipeline(store)
	if err != nil {
		return err
	}
	if oracle != nil {
		defer oracle.Close()
	}

	userID := currentUserID()
	if err := store.WarmOverrideCache(ctx, userID); err != nil {
		slog.Debug("override cache warm failed", "error", err)
	}

	d := dispatcher.New(p, r, store, insights.New(store, slog.Default()),
		dispatcher.Callbacks{
			Search: searchCallback(store, userID),
			Export: exportCallback(store, userID),
		},
		userID, slog.Default())

	return tui.Run(ctx, d)
}

// searchCallback answers search intents from storage.
func searchCallback(store service.Storage, userID string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, query string) (string, error) {
		expenses, err := store.SearchExpenses(ctx, userID, query)
		if err != nil {
			return "", err
		}
		if len(expenses) == 0 {
			return fmt.Sprintf("No expenses matched %q.", query), nil
		}
		return formatExpenseList(expenses), nil
	}
}

// exportCallback exports the last 90 days of expenses to Google Sheets.
func exportCallback(store service.Storage, userID string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		sheetsCfg, err := config.LoadSheetsConfig()
		if err != nil {
			return "Google Sheets isn't configured. Run \"ledgermind auth sheets\" first.", nil
		}

		exporter, err := sheets.NewExporter(ctx, *sheetsCfg, slog.Default())
		if err != nil {
			return "", err
		}

		end := time.Now()
		start := end.AddDate(0, 0, -90)
		expenses, err := store.GetExpensesByPeriod(ctx, userID, start, end)
		if err != nil {
			return "", err
		}

		spreadsheetID, err := exporter.Export(ctx, expenses, start, end)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Exported %d expenses to spreadsheet %s.", len(expenses), spreadsheetID), nil
	}
}

// formatExpenseList renders a short readable listing for chat replies.
func formatExpenseList(expenses []model.Expense) string {
	const maxShown = 10

	shown := expenses
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}

	out := fmt.Sprintf("Found %d expense(s):", len(expenses))
	for _, e := range shown {
		out += fmt.Sprintf("\n  %s  $%.2f  %s (%s)",
			e.SpentAt.Format("Jan 2"), e.Amount, e.Merchant, e.CategoryName)
	}
	if len(expenses) > maxShown {
		out += fmt.Sprintf("\n  ...and %d more", len(expenses)-maxShown)
	}
	return out
}
