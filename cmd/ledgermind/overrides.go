package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mtowers/ledgermind/internal/cli"
	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/model"
)

func overridesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Manage merchant category overrides",
		Long: `Overrides pin a merchant to a category for your account. They always
win over cached and automatic categorization.`,
	}

	cmd.AddCommand(listOverridesCmd())
	cmd.AddCommand(setOverrideCmd())
	cmd.AddCommand(deleteOverrideCmd())

	return cmd
}

func listOverridesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your merchant overrides",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			overrides, err := store.GetOverridesForUser(ctx, currentUserID())
			if err != nil {
				return fmt.Errorf("failed to list overrides: %w", err)
			}

			if len(overrides) == 0 {
				fmt.Println(cli.InfoStyle.Render("No overrides recorded yet. Correcting a category in chat creates one.")) //nolint:forbidigo // User-facing output
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Merchant"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Updated"))
			for _, o := range overrides {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					o.MerchantKey, o.Category, o.UpdatedAt.Format("2006-01-02"))
			}

			return nil
		},
	}
}

func setOverrideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <merchant> <category>",
		Short: "Pin a merchant to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			merchant, categoryName := args[0], args[1]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.GetCategoryByName(ctx, categoryName)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					fmt.Println(cli.FormatError(fmt.Sprintf("No category named %q", categoryName))) //nolint:forbidigo // User-facing output
					return nil
				}
				return err
			}

			override := &model.UserOverride{
				UserID:      currentUserID(),
				MerchantKey: model.MerchantKey(merchant),
				Category:    category.Name,
			}
			if err := store.SaveOverride(ctx, override); err != nil {
				return fmt.Errorf("failed to save override: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s will always be categorized as %s", //nolint:forbidigo // User-facing output
				model.TitleCase(merchant), category.Name)))
			return nil
		},
	}
}

func deleteOverrideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <merchant>",
		Short: "Remove a merchant override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			merchant := strings.TrimSpace(args[0])

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			err = store.DeleteOverride(ctx, currentUserID(), model.MerchantKey(merchant))
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					fmt.Println(cli.FormatWarning(fmt.Sprintf("No override found for %q", merchant))) //nolint:forbidigo // User-facing output
					return nil
				}
				return fmt.Errorf("failed to delete override: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed override for %q", merchant))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}
