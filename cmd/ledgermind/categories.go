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
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage expense categories",
		Long:  `List, add, and seed the expense categories the pipeline resolves against.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(seedCategoriesCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories found. Use 'ledgermind categories seed' to create the defaults.")) //nolint:forbidigo // User-facing output
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Name"),
				cli.TableHeaderStyle.Render("Description"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 20),
				strings.Repeat("-", 40))

			for _, cat := range categories {
				desc := cat.Description
				if desc == "" {
					desc = cli.SubtleStyle.Render("(no description)")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", cat.ID, cat.Name, desc)
			}

			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := strings.TrimSpace(args[0])

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.CreateCategory(ctx, name, description)
			if err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					fmt.Println(cli.FormatWarning(fmt.Sprintf("Category %q already exists", name))) //nolint:forbidigo // User-facing output
					return nil
				}
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created category %q (id %d)", category.Name, category.ID))) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "category description")

	return cmd
}

// defaultCategories is the starter taxonomy seeded into a fresh database.
var defaultCategories = []struct {
	name        string
	description string
}{
	{"Coffee", "Coffee shops and cafes"},
	{"Groceries", "Supermarkets and food stores"},
	{"Dining", "Restaurants and takeout"},
	{"Transportation", "Gas, rideshare, transit, parking"},
	{"Entertainment", "Streaming, movies, games, events"},
	{"Shopping", "Retail and online purchases"},
	{"Utilities", "Power, water, internet, phone"},
	{"Health", "Pharmacies, doctors, fitness"},
	{"Home", "Repairs, furnishings, services"},
	{"Travel", "Flights, hotels, vacations"},
	{"Miscellaneous", "Everything else"},
}

func seedCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default category set",
		Long:  `Create the starter categories. Existing categories are left alone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			created := 0
			for _, dc := range defaultCategories {
				if _, err := store.CreateCategory(ctx, dc.name, dc.description); err != nil {
					if errors.Is(err, common.ErrDuplicateEntry) {
						continue
					}
					return fmt.Errorf("failed to create category %q: %w", dc.name, err)
				}
				created++
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Seeded %d categories (%d already existed)", //nolint:forbidigo // User-facing output
				created, len(defaultCategories)-created)))
			return nil
		},
	}
}
