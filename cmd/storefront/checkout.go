package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/raamul-storefront/internal/checkout"
	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/pkg/metrics"
)

const orderRefPrefix = "ORD-"

type paymentOptions struct {
	phone       string
	noWait      bool
	checkOnLine bool
}

func (o *paymentOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.phone, "phone", "", "M-Pesa number for the STK push; defaults to the account phone")
	flags.BoolVar(&o.noWait, "no-wait", false, "send the STK push and exit without waiting for confirmation")
	flags.BoolVar(&o.checkOnLine, "check-on-enter", true, "check the payment status immediately when Enter is pressed")
}

func (a *app) newFlow(cmd *cobra.Command) (*checkout.Flow, error) {
	stderr := cmd.ErrOrStderr()
	return checkout.NewFlow(checkout.FlowParams{
		Orders:   a.orders,
		Payments: a.payments,
		Cart:     a.cart,
		Notifier: consoleNotifier{out: stderr},
		Observer: func(snap checkout.Snapshot) {
			if snap.State == checkout.StatePolling {
				fmt.Fprintln(stderr, "Waiting for M-Pesa confirmation. Press Enter to check now.")
			}
		},
		Logger:  a.logg,
		Metrics: metrics.NewPollMetrics(a.registry),
		Config:  a.cfg.Checkout,
	})
}

func checkoutCmd(a *app) *cobra.Command {
	var (
		opts    paymentOptions
		address string
	)
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart and pay with M-Pesa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.requireUser()
			if err != nil {
				return err
			}
			flow, err := a.newFlow(cmd)
			if err != nil {
				return err
			}
			customer, location := checkout.CustomerFromUser(user)
			if strings.TrimSpace(address) == "" {
				address = location
			}

			order, err := flow.PlaceOrder(cmd.Context(), customer, address)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s placed, total %s\n", order.OrderID, formatMoney(order.Total()))

			if opts.phone == "" {
				opts.phone = user.Phone
			}
			return a.pay(cmd, flow, opts)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "delivery address; defaults to the account location")
	opts.bind(cmd)
	return cmd
}

func payCmd(a *app) *cobra.Command {
	var opts paymentOptions
	cmd := &cobra.Command{
		Use:   "pay <order>",
		Short: "Pay for an existing order by id or order number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.requireUser()
			if err != nil {
				return err
			}
			id, err := a.resolveOrderID(cmd, args[0])
			if err != nil {
				return err
			}
			flow, err := a.newFlow(cmd)
			if err != nil {
				return err
			}
			order, err := flow.LoadOrder(cmd.Context(), id)
			if err != nil {
				return err
			}
			if flow.State() == checkout.StateCompleted {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s, total %s\n", order.OrderID, formatMoney(order.Total()))

			if opts.phone == "" {
				opts.phone = user.Phone
			}
			return a.pay(cmd, flow, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

// resolveOrderID maps an order number to the order's id; anything else is taken as the id.
func (a *app) resolveOrderID(cmd *cobra.Command, ref string) (string, error) {
	if !strings.HasPrefix(strings.ToUpper(ref), orderRefPrefix) {
		return ref, nil
	}
	order, err := a.orders.GetByOrderID(cmd.Context(), ref)
	if err != nil {
		return "", err
	}
	return order.ID.String(), nil
}

func (a *app) pay(cmd *cobra.Command, flow *checkout.Flow, opts paymentOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	initiation, err := flow.InitiatePayment(ctx, opts.phone)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Checkout request %s\n", initiation.CheckoutRequestID)
	if opts.noWait {
		return nil
	}

	done := make(chan struct{})
	if opts.checkOnLine {
		go a.checkOnEnter(ctx, cmd.InOrStdin(), done, flow.CheckNow)
	}

	state, err := flow.AwaitPayment(ctx)
	close(done)
	if err != nil {
		return err
	}
	snap := flow.Snapshot()
	switch state {
	case checkout.StateCompleted:
		fmt.Fprintf(out, "Paid. Track it with `storefront track %s`\n", orderNumber(snap.Order))
		return nil
	case checkout.StateTimedOut:
		return fmt.Errorf("payment for %s not confirmed yet; check again with `storefront orders show %s`",
			orderNumber(snap.Order), orderNumber(snap.Order))
	default:
		return fmt.Errorf("payment %s", state)
	}
}

// checkOnEnter runs check for every line read from in until done is closed or a check
// reaches a terminal state. Lines read after done are dropped.
func (a *app) checkOnEnter(ctx context.Context, in io.Reader, done <-chan struct{}, check func(context.Context) (checkout.State, error)) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case <-done:
			return
		default:
		}
		state, err := check(ctx)
		if err != nil && !errors.Is(err, checkout.ErrCheckInFlight) {
			a.logg.WarnErr(ctx, "manual status check failed", err)
		}
		if state.IsTerminal() {
			return
		}
	}
}

func orderNumber(order *orders.Order) string {
	if order == nil {
		return ""
	}
	return order.OrderID
}
