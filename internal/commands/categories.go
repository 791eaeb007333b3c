package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fpachecos/dashboard-faturas/internal/model"
	"github.com/fpachecos/dashboard-faturas/internal/store"
)

func newCategoriesCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List and manage spending categories",
	}
	cmd.AddCommand(
		newCategoriesListCommand(g),
		newCategoriesAddCommand(g),
		newCategoriesUpdateCommand(g),
		newCategoriesDeleteCommand(g),
	)
	return cmd
}

func newCategoriesListCommand(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the user's categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			cats, err := p.backend.ListCategories(cmd.Context(), p.user)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), cats)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR")
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Color)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newCategoriesAddCommand(g *globalFlags) *cobra.Command {
	var catID, color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Long: `Add a category. Imports classify into it when its name matches one of
the classification rules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			c, err := p.backend.AddCategory(cmd.Context(), p.user, model.Category{ID: catID, Name: args[0], Color: color})
			if err != nil {
				return fmt.Errorf("adding category: %w", err)
			}
			if _, err := p.commit(cmd.Context(), "category: add "+c.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added category %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&catID, "id", "", "category id (generated when empty)")
	cmd.Flags().StringVar(&color, "color", "", "hex color, e.g. #FF6B6B")
	return cmd
}

func newCategoriesUpdateCommand(g *globalFlags) *cobra.Command {
	var name, color string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or recolor a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u store.CategoryUpdate
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("color") {
				u.Color = &color
			}

			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			c, err := p.backend.UpdateCategory(cmd.Context(), p.user, args[0], u)
			if err != nil {
				return fmt.Errorf("updating category %s: %w", args[0], err)
			}
			if _, err := p.commit(cmd.Context(), "category: update "+c.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated category %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&color, "color", "", "new hex color")
	return cmd
}

func newCategoriesDeleteCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Long:  `Delete a category. Transactions already classified into it keep its id.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.backend.DeleteCategory(cmd.Context(), p.user, args[0]); err != nil {
				return fmt.Errorf("deleting category %s: %w", args[0], err)
			}
			if _, err := p.commit(cmd.Context(), "category: delete "+args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", args[0])
			return nil
		},
	}
}
