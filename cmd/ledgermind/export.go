package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtowers/ledgermind/internal/cli"
	"github.com/mtowers/ledgermind/internal/config"
	"github.com/mtowers/ledgermind/internal/sheets"
)

func exportCmd() *cobra.Command {
	var (
		fromDate string
		toDate   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export expenses to Google Sheets",
		Long: `Write your expenses and a category summary to a Google Sheets
spreadsheet. Defaults to the last 90 days.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			end := time.Now()
			start := end.AddDate(0, 0, -90)
			if fromDate != "" {
				parsed, err := time.Parse("2006-01-02", fromDate)
				if err != nil {
					return fmt.Errorf("invalid from date format (use YYYY-MM-DD): %w", err)
				}
				start = parsed
			}
			if toDate != "" {
				parsed, err := time.Parse("2006-01-02", toDate)
				if err != nil {
					return fmt.Errorf("invalid to date format (use YYYY-MM-DD): %w", err)
				}
				end = parsed.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
			}
			if start.After(end) {
				return fmt.Errorf("from date must be before to date")
			}

			sheetsCfg, err := config.LoadSheetsConfig()
			if err != nil {
				return fmt.Errorf("google sheets is not configured (run \"ledgermind auth sheets\"): %w", err)
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

			expenses, err := store.GetExpensesByPeriod(ctx, currentUserID(), start, end)
			if err != nil {
				return fmt.Errorf("failed to load expenses: %w", err)
			}
			if len(expenses) == 0 {
				fmt.Println(cli.InfoStyle.Render("No expenses in the selected period")) //nolint:forbidigo // User-facing output
				return nil
			}

			exporter, err := sheets.NewExporter(ctx, *sheetsCfg, slog.Default())
			if err != nil {
				return err
			}

			spreadsheetID, err := exporter.Export(ctx, expenses, start, end)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d expenses to spreadsheet %s", len(expenses), spreadsheetID))) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().StringVar(&fromDate, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDate, "to", "", "end date (YYYY-MM-DD)")

	return cmd
}
