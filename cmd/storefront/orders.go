package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/internal/tracking"
)

func ordersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order"},
		Short:   "Order history",
	}

	var filters orders.ListFilters
	list := &cobra.Command{
		Use:   "list",
		Short: "List your orders, or every order for an admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.requireUser()
			if err != nil {
				return err
			}
			var page *orders.OrderList
			if a.session.IsAdmin() {
				page, err = a.orders.List(cmd.Context(), filters)
			} else {
				page, err = a.orders.ListByCustomer(cmd.Context(), user.ID.String(), filters)
			}
			if err != nil {
				return err
			}
			if len(page.Orders) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No orders yet")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tORDER\tSTATUS\tPAYMENT\tTOTAL\tPLACED")
			for _, o := range page.Orders {
				placed := "-"
				if o.CreatedAt != nil {
					placed = o.CreatedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					o.ID, o.OrderID, o.OrderStatus.Label(), orDash(string(o.PaymentStatus())), formatMoney(o.Total()), placed)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&filters.Status, "status", "", "order status filter")
	list.Flags().StringVar(&filters.Search, "search", "", "match order number or customer")
	list.Flags().IntVar(&filters.Page, "page", 1, "page number")
	list.Flags().IntVar(&filters.Limit, "limit", 0, "page size")

	show := &cobra.Command{
		Use:   "show <order>",
		Short: "Show an order by id or order number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			id, err := a.resolveOrderID(cmd, args[0])
			if err != nil {
				return err
			}
			order, err := a.orders.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printOrder(cmd.OutOrStdout(), order)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func printOrder(out io.Writer, order *orders.Order) error {
	tw := newTable(out)
	fmt.Fprintf(tw, "Order\t%s\n", order.OrderID)
	fmt.Fprintf(tw, "Status\t%s\n", order.OrderStatus.Label())
	fmt.Fprintf(tw, "Payment\t%s\n", orDash(string(order.PaymentStatus())))
	if customer, ok := order.Customer.Get(); ok {
		fmt.Fprintf(tw, "Customer\t%s <%s>\n", customer.Name, customer.Email)
	}
	if shipping, ok := order.Shipping.Get(); ok {
		fmt.Fprintf(tw, "Deliver to\t%s (%s)\n", orDash(shipping.Address), orDash(shipping.Method))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	items, _ := order.Items.Get()
	tw = newTable(out)
	fmt.Fprintln(tw, "\nITEM\tQTY\tPRICE\tLINE TOTAL")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", item.Name, item.Quantity, formatMoney(item.Price), formatMoney(item.LineTotal()))
	}
	fmt.Fprintf(tw, "\t\tTotal\t%s\n", formatMoney(order.Total()))
	return tw.Flush()
}

func trackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "track <order-number>",
		Short: "Show the delivery timeline of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			entries, err := a.tracking.GetByOrderID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			timeline := tracking.BuildTimeline(entries)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Order %s: %s\n\n", args[0], timeline.Current.Label())
			for _, step := range timeline.Steps() {
				marker := "[ ]"
				switch {
				case step.Current:
					marker = "[>]"
				case step.Reached:
					marker = "[x]"
				}
				fmt.Fprintf(out, "%s %s\n", marker, step.Label)
			}

			if len(timeline.Entries) > 0 {
				tw := newTable(out)
				fmt.Fprintln(tw, "\nWHEN\tSTATUS\tNOTES")
				for _, entry := range timeline.Entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.CreatedAt.Format("2006-01-02 15:04"), entry.Status.Label(), orDash(entry.Notes))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			if timeline.HasRegression() {
				fmt.Fprintln(cmd.ErrOrStderr(), "[warn] tracking history contains out-of-order status changes")
			}
			return nil
		},
	}
}
