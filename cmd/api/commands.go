package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"culinary/internal/api"
	"culinary/internal/platform/mealdb"
	"culinary/internal/recipe"
	"culinary/internal/search"
)

// errNotFound is returned when a recipe id does not resolve.
var errNotFound = errors.New("recipe not found")

func (a *app) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout())
}

// userError converts transport failures into the message shown to users.
func userError(err error) error {
	if errors.Is(err, mealdb.ErrUnavailable) {
		return fmt.Errorf("%s (%w)", api.ConnectivityMessage, err)
	}
	return err
}

func (a *app) searchCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search recipes by name, falling back to ingredient",
		Long: `Searches recipes by name first and by main ingredient when the name
search finds nothing. With --category, lists the category instead and keeps
only recipes whose name contains the query.

Examples:
  recipes search chicken
  recipes search salmon --category Seafood`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd)
			defer cancel()

			client := a.mealDB()
			result, err := search.NewSearcher(client, a.logger).Browse(ctx, category, strings.Join(args, " "))
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			if len(result.Recipes) == 0 {
				fmt.Fprintln(out, "No recipes found.")
				return nil
			}
			fmt.Fprintf(out, "%d recipes (matched by %s)\n", len(result.Recipes), result.Strategy)
			printRecipes(out, result.Recipes)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "restrict results to a category")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a recipe with its ingredients and steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd)
			defer cancel()

			detail, err := a.mealDB().LookupByID(ctx, args[0])
			if err != nil {
				return userError(err)
			}
			if detail == nil {
				return fmt.Errorf("%w: %s", errNotFound, args[0])
			}
			printDetail(cmd.OutOrStdout(), detail)
			return nil
		},
	}
}

func (a *app) randomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Show a random recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd)
			defer cancel()

			detail, err := a.mealDB().Random(ctx)
			if err != nil {
				return userError(err)
			}
			if detail == nil {
				return errNotFound
			}
			printDetail(cmd.OutOrStdout(), detail)
			return nil
		},
	}
}

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List recipe categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd)
			defer cancel()

			categories, err := a.mealDB().Categories(ctx)
			if err != nil {
				return userError(err)
			}
			for _, c := range categories {
				fmt.Fprintln(cmd.OutOrStdout(), c.Name)
			}
			return nil
		},
	}
}

func (a *app) favoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage the favorites list",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List favorite recipes in the order they were added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, slot, err := a.openFavorites(cmd.Context())
			if err != nil {
				return err
			}
			defer slot.Close()

			list := store.Favorites()
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No favorites yet.")
				return nil
			}
			printRecipes(cmd.OutOrStdout(), list)
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add [id]",
		Short: "Add a recipe to favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateFavorite(cmd, args[0], "add")
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a recipe from favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, slot, err := a.openFavorites(cmd.Context())
			if err != nil {
				return err
			}
			defer slot.Close()

			if store.Remove(cmd.Context(), args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites.\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not a favorite.\n", args[0])
			}
			return nil
		},
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle [id]",
		Short: "Add a recipe to favorites, or remove it if already there",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateFavorite(cmd, args[0], "toggle")
		},
	}

	cmd.AddCommand(listCmd, addCmd, removeCmd, toggleCmd)
	return cmd
}

// mutateFavorite resolves id to a recipe summary and adds or toggles it.
func (a *app) mutateFavorite(cmd *cobra.Command, id, op string) error {
	store, slot, err := a.openFavorites(cmd.Context())
	if err != nil {
		return err
	}
	defer slot.Close()

	out := cmd.OutOrStdout()
	if op == "toggle" && store.IsFavorite(id) {
		store.Remove(cmd.Context(), id)
		fmt.Fprintf(out, "Removed %s from favorites.\n", id)
		return nil
	}

	ctx, cancel := a.requestContext(cmd)
	defer cancel()

	detail, err := a.mealDB().LookupByID(ctx, id)
	if err != nil {
		return userError(err)
	}
	if detail == nil {
		return fmt.Errorf("%w: %s", errNotFound, id)
	}

	r := detail.Summary()
	var added bool
	if op == "toggle" {
		added = store.Toggle(cmd.Context(), r)
	} else {
		added = store.Add(cmd.Context(), r)
	}
	if added {
		fmt.Fprintf(out, "Added %q to favorites.\n", r.Name)
	} else {
		fmt.Fprintf(out, "%q is already a favorite.\n", r.Name)
	}
	return nil
}

func printRecipes(w io.Writer, recipes []recipe.Recipe) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range recipes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Category, r.Area)
	}
	tw.Flush()
}

func printDetail(w io.Writer, d *recipe.RecipeDetail) {
	fmt.Fprintf(w, "%s (%s)\n", d.Name, d.ID)
	if d.Category != "" || d.Area != "" {
		fmt.Fprintf(w, "%s\n", strings.Trim(d.Category+" / "+d.Area, " /"))
	}
	if tags := d.TagList(); len(tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(tags, ", "))
	}

	fmt.Fprintln(w, "\nIngredients:")
	for _, ing := range d.IngredientList() {
		if ing.Measure != "" {
			fmt.Fprintf(w, "  - %s %s\n", ing.Measure, ing.Ingredient)
		} else {
			fmt.Fprintf(w, "  - %s\n", ing.Ingredient)
		}
	}

	fmt.Fprintln(w, "\nInstructions:")
	for i, step := range d.InstructionSteps() {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}

	if d.YouTube != "" {
		fmt.Fprintf(w, "\nVideo: %s\n", d.YouTube)
	}
	if d.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", d.Source)
	}
}
