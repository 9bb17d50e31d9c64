package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mtowers/ledgermind/internal/cli"
	"github.com/mtowers/ledgermind/internal/sheets"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Run the browser OAuth2 flow for Google Sheets and save the resulting
token for future exports. Requires sheets.client_id and
sheets.client_secret in your config.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			clientID := viper.GetString("sheets.client_id")
			clientSecret := viper.GetString("sheets.client_secret")
			if clientID == "" {
				clientID = os.Getenv("LEDGERMIND_SHEETS_CLIENT_ID")
			}
			if clientSecret == "" {
				clientSecret = os.Getenv("LEDGERMIND_SHEETS_CLIENT_SECRET")
			}
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("google sheets credentials missing: set sheets.client_id and sheets.client_secret in the config file or LEDGERMIND_SHEETS_CLIENT_ID / LEDGERMIND_SHEETS_CLIENT_SECRET")
			}

			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			tokenFile := filepath.Join(home, ".config", "ledgermind", "sheets-token.json")

			token, err := sheets.GetOrCreateToken(ctx, sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    tokenFile,
			})
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Google Sheets authentication complete")) //nolint:forbidigo // User-facing output
			if token.RefreshToken != "" {
				fmt.Println(cli.SubtleStyle.Render("Add the refresh token to your config as sheets.refresh_token:")) //nolint:forbidigo // User-facing output
				fmt.Println(token.RefreshToken)                                                                      //nolint:forbidigo // User-facing output
			}
			return nil
		},
	}
}
