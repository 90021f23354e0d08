package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

// consoleNotifier prints checkout notices, standing in for the browser toasts.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Success(_ context.Context, message string) {
	fmt.Fprintln(n.out, "[ok]", message)
}

func (n consoleNotifier) Error(_ context.Context, message string) {
	fmt.Fprintln(n.out, "[error]", message)
}

func (n consoleNotifier) Info(_ context.Context, message string) {
	fmt.Fprintln(n.out, "[info]", message)
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func formatMoney(m types.Money) string {
	return "KES " + m.StringFixed(2)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
