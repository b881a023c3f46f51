package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
	}

	featured := &cobra.Command{
		Use:   "featured",
		Short: "List featured products",
		Args:  cobra.NoArgs,
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			items, err := a.api.FeaturedProducts(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		}),
	}

	category := &cobra.Command{
		Use:   "category <name>",
		Short: "List products in a category",
		Args:  cobra.ExactArgs(1),
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			items, err := a.api.ProductsByCategory(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		}),
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			p, err := a.api.Product(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		}),
	}

	var page, size int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Full text search",
		Args:  cobra.ExactArgs(1),
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			res, err := a.api.SearchProducts(ctx, args[0], page, size)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
	search.Flags().IntVar(&page, "page", 1, "page number")
	search.Flags().IntVar(&size, "size", 10, "page size")

	cmd.AddCommand(featured, category, get, search)
	return cmd
}
