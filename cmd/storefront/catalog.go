package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/raamul-storefront/internal/products"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

func productsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Browse the catalogue",
	}

	var filters products.ListFilters
	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.products.List(cmd.Context(), filters)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := newTable(out)
			fmt.Fprintln(tw, "ID\tSKU\tNAME\tCATEGORY\tPRICE\tSTOCK")
			for _, p := range page.Products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
					p.ID, orDash(p.SKU), p.Name, orDash(p.Category), formatMoney(p.Price), p.StockQuantity)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if categories := products.Categories(page.Products); len(categories) > 0 {
				fmt.Fprintln(out, "Categories:", strings.Join(categories, ", "))
			}
			fmt.Fprintf(out, "Page %d of %d (%d products)\n",
				page.Pagination.Page, max(page.Pagination.TotalPages, 1), page.Pagination.Total)
			return nil
		},
	}
	flags := list.Flags()
	flags.StringVar(&filters.Search, "search", "", "match name or description")
	flags.StringVar(&filters.Category, "category", "", "category filter")
	flags.StringVar(&filters.Brand, "brand", "", "brand filter")
	flags.IntVar(&filters.Page, "page", 1, "page number")
	flags.IntVar(&filters.Limit, "limit", 0, "page size")

	var bySKU bool
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				p   *products.Product
				err error
			)
			if bySKU {
				p, err = a.products.GetBySKU(cmd.Context(), args[0])
			} else {
				p, err = a.products.Get(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "ID\t%s\n", p.ID)
			fmt.Fprintf(tw, "SKU\t%s\n", orDash(p.SKU))
			fmt.Fprintf(tw, "Name\t%s\n", p.Name)
			fmt.Fprintf(tw, "Brand\t%s\n", orDash(p.Brand))
			fmt.Fprintf(tw, "Category\t%s\n", orDash(p.Category))
			fmt.Fprintf(tw, "Price\t%s\n", formatMoney(p.Price))
			if p.OriginalPrice != nil {
				fmt.Fprintf(tw, "Was\t%s\n", formatMoney(*p.OriginalPrice))
			}
			fmt.Fprintf(tw, "Unit\t%s\n", orDash(p.Unit))
			fmt.Fprintf(tw, "In stock\t%t (%d)\n", p.InStock(), p.StockQuantity)
			fmt.Fprintf(tw, "Image\t%s\n", orDash(p.PrimaryImage()))
			fmt.Fprintf(tw, "Wishlisted\t%t\n", a.wishlist.Contains(p.ID))
			if p.Description != "" {
				fmt.Fprintf(tw, "Description\t%s\n", p.Description)
			}
			return tw.Flush()
		},
	}
	show.Flags().BoolVar(&bySKU, "sku", false, "treat the argument as a SKU")

	cmd.AddCommand(list, show)
	return cmd
}

func cartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the shopping cart",
	}

	var quantity int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.products.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.cart.Add(cmd.Context(), p.CartItem(), quantity); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d x %s (cart: %d items)\n", quantity, p.Name, a.cart.Count())
			return nil
		},
	}
	add.Flags().IntVarP(&quantity, "quantity", "q", 1, "units to add")

	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cart.Remove(cmd.Context(), types.ID(args[0]))
		},
	}

	set := &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Change a line quantity; 0 removes the line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			return a.cart.UpdateQuantity(cmd.Context(), types.ID(args[0]), qty)
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			lines := a.cart.Lines()
			if len(lines) == 0 {
				fmt.Fprintln(out, "Your cart is empty")
				return nil
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tLINE TOTAL")
			for _, line := range lines {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					line.ProductID, line.Name, line.Quantity, formatMoney(line.Price), formatMoney(line.LineTotal()))
			}
			fmt.Fprintf(tw, "\t\t\tSubtotal\t%s\n", formatMoney(a.cart.Subtotal()))
			fmt.Fprintf(tw, "\t\t\tShipping\t%s\n", formatMoney(a.cart.Shipping()))
			fmt.Fprintf(tw, "\t\t\tTax\t%s\n", formatMoney(a.cart.Tax()))
			fmt.Fprintf(tw, "\t\t\tTotal\t%s\n", formatMoney(a.cart.Total()))
			return tw.Flush()
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cart.Clear(cmd.Context())
		},
	}

	cmd.AddCommand(add, remove, set, show, clear)
	return cmd
}

func wishlistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Saved products",
	}

	toggle := &cobra.Command{
		Use:   "toggle <product-id>",
		Short: "Add or remove a product from the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.products.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			added, err := a.wishlist.Toggle(cmd.Context(), p.CartItem())
			if err != nil {
				return err
			}
			verb := "Removed"
			if added {
				verb = "Saved"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d in wishlist)\n", verb, p.Name, a.wishlist.Count())
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "List saved products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := a.wishlist.Items()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Your wishlist is empty")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSAVED")
			for _, entry := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					entry.ProductID, entry.Name, formatMoney(entry.Price), entry.AddedAt.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}

	var quantity int
	move := &cobra.Command{
		Use:   "move-to-cart <product-id>",
		Short: "Move a saved product into the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := types.ID(args[0])
			for _, entry := range a.wishlist.Items() {
				if entry.ProductID != id {
					continue
				}
				if err := a.cart.Add(cmd.Context(), entry.Item, quantity); err != nil {
					return err
				}
				return a.wishlist.Remove(cmd.Context(), id)
			}
			return fmt.Errorf("product %s is not in the wishlist", id)
		},
	}
	move.Flags().IntVarP(&quantity, "quantity", "q", 1, "units to add")

	cmd.AddCommand(toggle, show, move)
	return cmd
}
