package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/internal/tracking"
	"github.com/angelmondragon/raamul-storefront/internal/uploads"
	"github.com/angelmondragon/raamul-storefront/internal/users"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
)

func uploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <image>...",
		Short: "Upload images to the image host and print their URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]uploads.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				files = append(files, uploads.File{Name: filepath.Base(path), Data: data})
			}

			out := cmd.OutOrStdout()
			if len(files) == 1 {
				uploaded, err := a.uploads.UploadSingle(cmd.Context(), files[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, uploaded.URL)
				return nil
			}

			result, err := a.uploads.UploadMultiple(cmd.Context(), files)
			if err != nil {
				return err
			}
			for _, item := range result.Uploaded {
				fmt.Fprintf(out, "%s\t%s\n", item.OriginalName, item.URL)
			}
			for _, failed := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "[error] %s: %s\n", failed.File, failed.Error)
			}
			if !result.Success {
				return fmt.Errorf("%d of %d uploads failed", len(result.Errors), len(files))
			}
			return nil
		},
	}
}

func adminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Store administration",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.init(cmd.Context()); err != nil {
				return err
			}
			return a.requireAdmin()
		},
	}

	var (
		notes string
		force bool
	)
	orderStatus := &cobra.Command{
		Use:   "order-status <order-number> <status>",
		Short: "Move an order along the fulfilment workflow",
		Long: "Adds a tracking update, which the API only accepts for a legal next status.\n" +
			"--force writes the status onto the order directly and skips that check.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := enums.ParseOrderStatus(args[1])
			if err != nil {
				return err
			}
			if !force {
				entry, err := a.tracking.AddUpdate(cmd.Context(), tracking.UpdateRequest{
					OrderID: args[0],
					Status:  status,
					Notes:   notes,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s\n", entry.OrderID, entry.Status.Label())
				return nil
			}

			order, err := a.orders.GetByOrderID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			updated, err := a.orders.Update(cmd.Context(), order.ID.String(), orders.UpdateRequest{OrderStatus: status, Notes: notes})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s\n", updated.OrderID, updated.OrderStatus.Label())
			return nil
		},
	}
	orderStatus.Flags().StringVar(&notes, "note", "", "note shown on the tracking timeline")
	orderStatus.Flags().BoolVar(&force, "force", false, "set the status without the workflow check")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "User and payment totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userStats, err := a.users.Stats(cmd.Context())
			if err != nil {
				return err
			}
			paymentStats, err := a.payments.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Users\t%d (%d active, %d suspended, %d admins)\n",
				userStats.TotalUsers, userStats.ActiveUsers, userStats.SuspendedUsers, userStats.Admins)
			fmt.Fprintf(tw, "New this month\t%d\n", userStats.NewThisMonth)
			fmt.Fprintf(tw, "Payments\t%d (%d completed, %d pending, %d failed)\n",
				paymentStats.TotalPayments, paymentStats.CompletedPayments, paymentStats.PendingPayments, paymentStats.FailedPayments)
			fmt.Fprintf(tw, "Collected\t%s of %s\n", formatMoney(paymentStats.CompletedAmount), formatMoney(paymentStats.TotalAmount))
			return tw.Flush()
		},
	}

	var userFilters users.ListFilters
	listUsers := &cobra.Command{
		Use:   "users",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.users.List(cmd.Context(), userFilters)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tSTATUS")
			for _, u := range page.Users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role, orDash(u.Status))
			}
			return tw.Flush()
		},
	}
	listUsers.Flags().StringVar(&userFilters.Search, "search", "", "match username or email")
	listUsers.Flags().StringVar(&userFilters.Role, "role", "", "role filter")
	listUsers.Flags().StringVar(&userFilters.Status, "status", "", "status filter")
	listUsers.Flags().IntVar(&userFilters.Page, "page", 1, "page number")

	userStatus := &cobra.Command{
		Use:   "user-status <user-id> <status>",
		Short: "Change an account status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := enums.ParseUserStatus(args[1])
			if err != nil {
				return err
			}
			user, err := a.users.ChangeStatus(cmd.Context(), args[0], status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Username, user.Status)
			return nil
		},
	}

	cmd.AddCommand(orderStatus, stats, listUsers, userStatus)
	return cmd
}
