package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/pkg/storeclient"
)

type cartView struct {
	Items  []storeclient.CartItem `json:"items"`
	Coupon *storeclient.Coupon    `json:"coupon,omitempty"`
	Totals storeclient.Totals     `json:"totals"`
}

func printCart(w io.Writer, s *storeclient.CartStore) error {
	return printJSON(w, cartView{Items: s.Items(), Coupon: s.Coupon(), Totals: s.Totals()})
}

func newCartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and change the cart",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show cart lines and totals",
		Args:  cobra.NoArgs,
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			store := storeclient.NewCartStore(a.api)
			if err := store.Load(ctx); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), store)
		}),
	}

	var qty int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product",
		Args:  cobra.ExactArgs(1),
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			if qty < 1 {
				return errors.New("--qty must be at least 1")
			}
			items, err := a.api.AddToCart(ctx, args[0], qty)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cartView{Items: items, Totals: storeclient.ComputeTotals(items, nil)})
		}),
	}
	add.Flags().IntVar(&qty, "qty", 1, "quantity to add")

	set := &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set the quantity of a line, 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			store := storeclient.NewCartStore(a.api)
			if err := store.UpdateQuantity(ctx, args[0], n); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), store)
		}),
	}

	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(1),
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			store := storeclient.NewCartStore(a.api)
			if err := store.Remove(ctx, args[0]); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), store)
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if err := a.api.ClearCart(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cart cleared")
			return nil
		}),
	}

	cmd.AddCommand(show, add, set, remove, clearCmd)
	return cmd
}

func newCouponCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coupon",
		Short: "Show the active coupon",
		Args:  cobra.NoArgs,
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			c, err := a.api.Coupon(ctx)
			if err != nil {
				return err
			}
			if c == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no active coupon")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), c)
		}),
	}

	validate := &cobra.Command{
		Use:   "validate <code>",
		Short: "Check that a coupon code can be used",
		Args:  cobra.ExactArgs(1),
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			c, err := a.api.ValidateCoupon(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		}),
	}
	cmd.AddCommand(validate)
	return cmd
}

func newCheckoutCmd(a *app) *cobra.Command {
	var (
		coupon  string
		confirm bool
	)
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Long: `Place a pending order for the current cart. With --confirm the order is
also marked paid, which empties the cart and may issue a reward coupon.`,
		Args: cobra.NoArgs,
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			store := storeclient.NewCartStore(a.api)
			if err := store.Load(ctx); err != nil {
				return err
			}
			if coupon != "" {
				if err := store.ApplyCoupon(ctx, coupon); err != nil {
					return fmt.Errorf("apply coupon: %w", err)
				}
			}

			order, err := store.Checkout(ctx)
			if err != nil {
				return err
			}
			if !confirm {
				return printJSON(cmd.OutOrStdout(), order)
			}

			paid, err := store.CompletePayment(ctx, order.OrderID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), paid)
		}),
	}
	cmd.Flags().StringVar(&coupon, "coupon", "", "coupon code to apply")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "mark the order as paid")
	return cmd
}
