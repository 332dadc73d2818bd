package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"dealer-ledger/internal/app"
	"dealer-ledger/internal/core"
)

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage")

const usage = `Available commands:
  invoices                                   list saved invoices
  sales <dealerID>                           list a dealer's sales
  sale <dealerID> <saleID>                   show one sale with its lines
  pay <dealerID> <saleID> <amount> <method>  record a payment (CASH, CARD, CHECK, UNPAID)
  cancel-payment <dealerID> <saleID>         reset a sale's payment
  orders                                     list storefront orders
  ship <orderID>                             mark an order shipped and book its sale
  export <file.xlsx>                         write saved invoices to a workbook`

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// Run executes a one-shot CLI command, writing human-readable output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageErr("missing command\n%s", usage)
	}

	switch args[0] {
	case "invoices", "inv":
		result, err := svc.ListInvoices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}
		printSales(out, "SAVED INVOICES", result)

	case "sales":
		ids, err := intArgs(args, 1, "sales <dealerID>")
		if err != nil {
			return err
		}
		result, err := svc.ListSalesForDealer(ctx, ids[0])
		if err != nil {
			return fmt.Errorf("failed to list sales: %w", err)
		}
		printSales(out, fmt.Sprintf("SALES FOR DEALER %d", ids[0]), result)

	case "sale":
		ids, err := intArgs(args, 2, "sale <dealerID> <saleID>")
		if err != nil {
			return err
		}
		result, err := svc.GetSale(ctx, ids[0], ids[1])
		if err != nil {
			return fmt.Errorf("failed to load sale: %w", err)
		}
		printSale(out, result)

	case "pay":
		if len(args) != 5 {
			return usageErr("pay <dealerID> <saleID> <amount> <method>")
		}
		ids, err := intArgs(args[:3], 2, "pay <dealerID> <saleID> <amount> <method>")
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(args[3])
		if err != nil {
			return usageErr("invalid amount %q", args[3])
		}
		result, err := svc.RecordPayment(ctx, app.RecordPaymentRequest{
			DealerID:      ids[0],
			SaleID:        ids[1],
			Amount:        &amount,
			PaymentMethod: args[4],
		})
		if err != nil {
			return fmt.Errorf("payment failed: %w", err)
		}
		fmt.Fprintf(out, "Payment recorded on %s. Paid: %s  Remaining: %s\n",
			result.Sale.SaleNumber, result.PaidAmount.StringFixed(2), result.Remaining.StringFixed(2))

	case "cancel-payment":
		ids, err := intArgs(args, 2, "cancel-payment <dealerID> <saleID>")
		if err != nil {
			return err
		}
		result, err := svc.CancelPayment(ctx, ids[0], ids[1])
		if err != nil {
			return fmt.Errorf("cancel payment failed: %w", err)
		}
		fmt.Fprintf(out, "Payment cancelled on %s. Remaining: %s\n",
			result.Sale.SaleNumber, result.Remaining.StringFixed(2))

	case "orders":
		result, err := svc.ListOrders(ctx)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		printOrders(out, result)

	case "ship":
		ids, err := intArgs(args, 1, "ship <orderID>")
		if err != nil {
			return err
		}
		result, err := svc.TransitionOrder(ctx, ids[0], string(core.OrderShipped))
		if err != nil {
			return fmt.Errorf("ship failed: %w", err)
		}
		if !result.Changed {
			fmt.Fprintf(out, "Order %s is already %s.\n", result.Order.OrderNumber, result.Order.Status)
			return nil
		}
		fmt.Fprintf(out, "Order %s shipped.", result.Order.OrderNumber)
		if result.Sale != nil {
			fmt.Fprintf(out, " Sale %s booked for %s.", result.Sale.SaleNumber, result.Sale.Total.StringFixed(2))
		}
		fmt.Fprintln(out)

	case "export":
		if len(args) != 2 {
			return usageErr("export <file.xlsx>")
		}
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", args[1], err)
		}
		n, err := svc.ExportInvoices(ctx, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(out, "Exported %d invoices to %s\n", n, args[1])

	default:
		return usageErr("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

// intArgs parses args[1:n+1] as positive integers.
func intArgs(args []string, n int, form string) ([]int, error) {
	if len(args) != n+1 {
		return nil, usageErr("%s", form)
	}
	out := make([]int, n)
	for i := range n {
		v, err := strconv.Atoi(args[i+1])
		if err != nil || v <= 0 {
			return nil, usageErr("invalid id %q in %s", args[i+1], form)
		}
		out[i] = v
	}
	return out, nil
}

func printSales(out io.Writer, title string, result *app.SaleListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 84))
	fmt.Fprintf(out, "  %s\n", title)
	fmt.Fprintln(out, strings.Repeat("=", 84))
	fmt.Fprintf(out, "  %-11s %-20s %-10s %-7s %12s %12s %-7s\n", "NUMBER", "DEALER", "DATE", "METHOD", "TOTAL", "PAID", "STATUS")
	fmt.Fprintln(out, strings.Repeat("-", 84))
	for _, s := range result.Sales {
		fmt.Fprintf(out, "  %-11s %-20s %-10s %-7s %12s %12s %-7s\n",
			s.SaleNumber, truncate(s.DealerName, 20), s.CreatedAt.Format("2006-01-02"), s.PaymentMethod,
			s.Total.StringFixed(2), s.PaidAmount.StringFixed(2), saleStatus(s))
	}
	fmt.Fprintln(out, strings.Repeat("-", 84))
	fmt.Fprintf(out, "  %-51s %12s %12s\n", fmt.Sprintf("%d sales", len(result.Sales)),
		result.TotalAmount.StringFixed(2), result.TotalPaid.StringFixed(2))
	fmt.Fprintf(out, "  %-51s %12s\n", "Pending", result.TotalPending.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 84))
}

func printSale(out io.Writer, result *app.SaleResult) {
	s := result.Sale
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  SALE %s\n", s.SaleNumber)
	fmt.Fprintf(out, "  Dealer  : %s\n", s.DealerName)
	fmt.Fprintf(out, "  Date    : %s\n", s.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "  Method  : %s\n", s.PaymentMethod)
	if s.Notes != nil {
		fmt.Fprintf(out, "  Notes   : %s\n", *s.Notes)
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-30s %6s %10s %10s\n", "PRODUCT", "QTY", "PRICE", "TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, it := range s.Items {
		fmt.Fprintf(out, "  %-30s %6d %10s %10s\n", truncate(it.ProductName, 30), it.Quantity,
			it.Price.StringFixed(2), it.Total.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-48s %10s\n", "Subtotal", s.Subtotal.StringFixed(2))
	fmt.Fprintf(out, "  %-48s %10s\n", fmt.Sprintf("Discount (%s%%)", s.DiscountPercent.String()), s.Discount.StringFixed(2))
	fmt.Fprintf(out, "  %-48s %10s\n", "Total", s.Total.StringFixed(2))
	fmt.Fprintf(out, "  %-48s %10s\n", "Paid", s.PaidAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-48s %10s\n", "Remaining", result.Remaining.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printOrders(out io.Writer, result *app.OrderListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-11s %-20s %-10s %15s\n", "NUMBER", "CUSTOMER", "STATUS", "TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, o := range result.Orders {
		fmt.Fprintf(out, "  %-11s %-20s %-10s %15s\n", o.OrderNumber, truncate(o.CustomerName, 20), o.Status, o.Total.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func saleStatus(s core.Sale) string {
	switch {
	case s.IsPaid:
		return "PAID"
	case s.PaidAmount.IsPositive():
		return "PARTIAL"
	default:
		return "UNPAID"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
