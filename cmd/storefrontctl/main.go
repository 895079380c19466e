// Command storefrontctl runs admin operations against a storefront server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/irevive/storefront/internal/orders"
	"github.com/irevive/storefront/pkg/client"
)

const usage = `usage: storefrontctl [-addr URL] <command> [flags]

commands:
  stock-get     -variant ID
  stock-set     -variant ID -stock N
  stock-adjust  -variant ID -delta N
  low-stock     [-threshold N]
  stats
  orders        [-status S]
  order-status  -order ID -status S
  order-cancel  -order ID
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("storefrontctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	addr := global.String("addr", envOr("STOREFRONT_ADDR", "http://localhost:8080"), "storefront base URL")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if global.NArg() == 0 {
		return errUsage
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	variant := fs.String("variant", "", "variant id")
	order := fs.String("order", "", "order id")
	stock := fs.Int("stock", -1, "absolute stock")
	delta := fs.Int("delta", 0, "stock delta")
	threshold := fs.Int("threshold", -1, "low stock threshold")
	status := fs.String("status", "", "order status")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	c := client.New(*addr)

	var (
		result any
		err    error
	)
	switch cmd {
	case "stock-get":
		if *variant == "" {
			return fmt.Errorf("-variant is required: %w", errUsage)
		}
		var n int
		n, err = c.GetStock(ctx, *variant)
		result = map[string]any{"variant_id": *variant, "stock": n}
	case "stock-set":
		if *variant == "" || *stock < 0 {
			return fmt.Errorf("-variant and -stock are required: %w", errUsage)
		}
		result, err = c.SetStock(ctx, *variant, *stock)
	case "stock-adjust":
		if *variant == "" || *delta == 0 {
			return fmt.Errorf("-variant and a non-zero -delta are required: %w", errUsage)
		}
		result, err = c.AdjustStock(ctx, *variant, *delta)
	case "low-stock":
		result, err = c.LowStock(ctx, *threshold)
	case "stats":
		result, err = c.Stats(ctx)
	case "orders":
		result, err = c.ListOrders(ctx, orders.Status(*status))
	case "order-status":
		if *order == "" || *status == "" {
			return fmt.Errorf("-order and -status are required: %w", errUsage)
		}
		result, err = c.UpdateOrderStatus(ctx, *order, orders.Status(*status))
	case "order-cancel":
		if *order == "" {
			return fmt.Errorf("-order is required: %w", errUsage)
		}
		result, err = c.CancelOrder(ctx, *order)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
